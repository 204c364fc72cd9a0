package commands

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	application "quorum/contexts/governance/ballot-engine/application"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"
)

// CastVoteCommand casts one full-weight vote for a voter, either by the voter
// themself or by their recorded delegate.
type CastVoteCommand struct {
	Caller       entities.Address
	Voter        entities.Address
	ResolutionID int
	ProposalID   int
}

// TallyUseCase is the vote-casting algorithm. Preconditions run in a fixed
// order and the first failure wins; the commit itself is delegated to the
// tally store, which applies it atomically.
type TallyUseCase struct {
	Sessions    ports.SessionStore
	Resolutions ports.ResolutionStore
	Voters      ports.VoterLedger
	Tallies     ports.TallyStore
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc TallyUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.VoteRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("vote cast started",
		"event", "ballot_vote_cast_started",
		"module", "governance/ballot-engine",
		"layer", "application",
		"caller", cmd.Caller.String(),
		"voter", cmd.Voter.String(),
		"resolution_id", cmd.ResolutionID,
		"proposal_id", cmd.ProposalID,
	)

	now := resolveNow(uc.Clock)
	window, err := uc.Sessions.GetWindow(ctx)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !window.IsOpen(now) {
		logger.Warn("vote cast outside open session",
			"event", "ballot_vote_session_not_open",
			"module", "governance/ballot-engine",
			"layer", "application",
			"voter", cmd.Voter.String(),
			"phase", string(window.Phase(now)),
		)
		return entities.VoteRecord{}, domainerrors.ErrSessionNotOpen
	}

	// Missing voters degrade to the zero-valued record so the delegate check
	// runs first and the weight check reports NotAVoter after it.
	voter, _, err := uc.Voters.GetVoter(ctx, cmd.Voter)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if cmd.Caller != cmd.Voter && voter.Delegate != cmd.Caller {
		return entities.VoteRecord{}, domainerrors.ErrNotAuthorizedForVoter
	}
	if voter.Weight == 0 {
		return entities.VoteRecord{}, domainerrors.ErrNotAVoter
	}

	count, err := uc.Resolutions.ResolutionCount(ctx)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if cmd.ResolutionID < 0 || cmd.ResolutionID >= count {
		return entities.VoteRecord{}, domainerrors.ErrResolutionOutOfRange
	}
	resolution, found, err := uc.Resolutions.GetResolution(ctx, cmd.ResolutionID)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !found {
		return entities.VoteRecord{}, domainerrors.ErrResolutionOutOfRange
	}
	if cmd.ProposalID < 0 || cmd.ProposalID >= resolution.ProposalCount() {
		return entities.VoteRecord{}, domainerrors.ErrProposalOutOfRange
	}

	voted, err := uc.Voters.HasVoted(ctx, cmd.Voter, cmd.ResolutionID)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if voted {
		return entities.VoteRecord{}, domainerrors.ErrAlreadyVoted
	}
	if resolution.Tallies[cmd.ProposalID] > math.MaxUint64-voter.Weight {
		return entities.VoteRecord{}, domainerrors.ErrTallyOverflow
	}

	record := entities.VoteRecord{
		Voter:        cmd.Voter,
		ResolutionID: cmd.ResolutionID,
		ProposalID:   cmd.ProposalID,
		Weight:       voter.Weight,
		CastAt:       now,
	}
	if err := uc.Tallies.RecordVote(ctx, record); err != nil {
		return entities.VoteRecord{}, err
	}
	if err := uc.appendVoteEvent(ctx, record); err != nil {
		return entities.VoteRecord{}, err
	}

	logger.Info("vote cast",
		"event", "ballot_vote_cast",
		"module", "governance/ballot-engine",
		"layer", "application",
		"caller", cmd.Caller.String(),
		"voter", record.Voter.String(),
		"resolution_id", record.ResolutionID,
		"proposal_id", record.ProposalID,
		"weight", record.Weight,
	)
	return record, nil
}

func (uc TallyUseCase) appendVoteEvent(ctx context.Context, record entities.VoteRecord) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newBallotEnvelope(eventID, EventVoteCast, "resolution_id",
		strconv.Itoa(record.ResolutionID), record.CastAt, map[string]any{
			"voter":         record.Voter.String(),
			"resolution_id": record.ResolutionID,
			"proposal_id":   record.ProposalID,
			"weight":        record.Weight,
		})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
