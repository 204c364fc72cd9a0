package commands

import (
	"context"
	"log/slog"
	"strconv"

	application "quorum/contexts/governance/ballot-engine/application"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"
)

// AddResolutionsCommand appends a batch of resolutions. The three slices are
// positional and must have equal length.
type AddResolutionsCommand struct {
	Operator       entities.Address
	Names          []string
	URLs           []string
	ProposalCounts []int
}

// RegisterVotersCommand enrolls or re-weights a batch of voters.
type RegisterVotersCommand struct {
	Operator entities.Address
	Voters   []entities.Address
	Weights  []uint64
}

// DelegateVoteCommand authorizes one other identity to cast the caller's vote.
type DelegateVoteCommand struct {
	Caller   entities.Address
	Delegate entities.Address
}

// RegistryUseCase owns before-phase registry construction: resolutions, voter
// weights, and delegation. Every mutation here is rejected once the window's
// start timestamp has been reached.
type RegistryUseCase struct {
	Gate        ports.AccessGate
	Sessions    ports.SessionStore
	Resolutions ports.ResolutionStore
	Voters      ports.VoterLedger
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (uc RegistryUseCase) AddResolutions(ctx context.Context, cmd AddResolutionsCommand) ([]entities.Resolution, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("resolution batch add started",
		"event", "ballot_resolutions_add_started",
		"module", "governance/ballot-engine",
		"layer", "application",
		"operator", cmd.Operator.String(),
		"batch_size", len(cmd.Names),
	)

	authorized, err := uc.Gate.IsAuthorizedOperator(ctx, cmd.Operator)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, domainerrors.ErrUnauthorized
	}
	if err := uc.requireBeforePhase(ctx); err != nil {
		return nil, err
	}
	if len(cmd.Names) != len(cmd.URLs) || len(cmd.Names) != len(cmd.ProposalCounts) {
		logger.Warn("resolution batch length mismatch",
			"event", "ballot_resolutions_length_mismatch",
			"module", "governance/ballot-engine",
			"layer", "application",
			"names", len(cmd.Names),
			"urls", len(cmd.URLs),
			"proposal_counts", len(cmd.ProposalCounts),
		)
		return nil, domainerrors.ErrLengthMismatch
	}

	now := resolveNow(uc.Clock)
	drafts := make([]entities.Resolution, 0, len(cmd.Names))
	for i, name := range cmd.Names {
		count := cmd.ProposalCounts[i]
		if count < 0 {
			count = 0
		}
		drafts = append(drafts, entities.Resolution{
			Name:      name,
			URL:       cmd.URLs[i],
			Tallies:   make([]uint64, count),
			CreatedAt: now,
		})
	}

	stored, err := uc.Resolutions.AppendResolutions(ctx, drafts)
	if err != nil {
		return nil, err
	}
	for _, resolution := range stored {
		if err := uc.appendResolutionEvent(ctx, resolution); err != nil {
			return nil, err
		}
	}

	logger.Info("resolution batch added",
		"event", "ballot_resolutions_added",
		"module", "governance/ballot-engine",
		"layer", "application",
		"operator", cmd.Operator.String(),
		"batch_size", len(stored),
	)
	return stored, nil
}

func (uc RegistryUseCase) RegisterVoters(ctx context.Context, cmd RegisterVotersCommand) ([]entities.Voter, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("voter batch registration started",
		"event", "ballot_voters_register_started",
		"module", "governance/ballot-engine",
		"layer", "application",
		"operator", cmd.Operator.String(),
		"batch_size", len(cmd.Voters),
	)

	authorized, err := uc.Gate.IsAuthorizedOperator(ctx, cmd.Operator)
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, domainerrors.ErrUnauthorized
	}
	if err := uc.requireBeforePhase(ctx); err != nil {
		return nil, err
	}
	if len(cmd.Voters) != len(cmd.Weights) {
		logger.Warn("voter batch length mismatch",
			"event", "ballot_voters_length_mismatch",
			"module", "governance/ballot-engine",
			"layer", "application",
			"voters", len(cmd.Voters),
			"weights", len(cmd.Weights),
		)
		return nil, domainerrors.ErrLengthMismatch
	}

	now := resolveNow(uc.Clock)
	voters, err := uc.Voters.UpsertVoterWeights(ctx, cmd.Voters, cmd.Weights, now)
	if err != nil {
		return nil, err
	}
	for _, voter := range voters {
		if err := uc.appendVoterEvent(ctx, voter); err != nil {
			return nil, err
		}
	}

	logger.Info("voter batch registered",
		"event", "ballot_voters_registered",
		"module", "governance/ballot-engine",
		"layer", "application",
		"operator", cmd.Operator.String(),
		"batch_size", len(voters),
	)
	return voters, nil
}

// DelegateVote records a single-hop delegation. The mapping is flat: a
// delegate's own delegate gains no authority over the original voter.
func (uc RegistryUseCase) DelegateVote(ctx context.Context, cmd DelegateVoteCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("delegation started",
		"event", "ballot_delegation_started",
		"module", "governance/ballot-engine",
		"layer", "application",
		"voter", cmd.Caller.String(),
		"delegate", cmd.Delegate.String(),
	)

	if err := uc.requireBeforePhase(ctx); err != nil {
		return err
	}
	voter, found, err := uc.Voters.GetVoter(ctx, cmd.Caller)
	if err != nil {
		return err
	}
	if !found || voter.Weight == 0 {
		return domainerrors.ErrNotAVoter
	}
	if cmd.Delegate.IsNull() {
		return domainerrors.ErrInvalidDelegate
	}

	now := resolveNow(uc.Clock)
	if err := uc.Voters.SetDelegate(ctx, cmd.Caller, cmd.Delegate, now); err != nil {
		return err
	}

	logger.Info("delegation recorded",
		"event", "ballot_delegation_recorded",
		"module", "governance/ballot-engine",
		"layer", "application",
		"voter", cmd.Caller.String(),
		"delegate", cmd.Delegate.String(),
	)
	return nil
}

func (uc RegistryUseCase) requireBeforePhase(ctx context.Context) error {
	window, err := uc.Sessions.GetWindow(ctx)
	if err != nil {
		return err
	}
	if !window.IsBefore(resolveNow(uc.Clock)) {
		return domainerrors.ErrWindowAlreadyOpen
	}
	return nil
}

func (uc RegistryUseCase) appendResolutionEvent(ctx context.Context, resolution entities.Resolution) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newBallotEnvelope(eventID, EventResolutionAdded, "resolution_id",
		strconv.Itoa(resolution.ID), resolution.CreatedAt, map[string]any{
			"resolution_id":  resolution.ID,
			"name":           resolution.Name,
			"url":            resolution.URL,
			"proposal_count": resolution.ProposalCount(),
		})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc RegistryUseCase) appendVoterEvent(ctx context.Context, voter entities.Voter) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newBallotEnvelope(eventID, EventVoterRegistered, "voter",
		voter.Address.String(), voter.UpdatedAt, map[string]any{
			"voter":  voter.Address.String(),
			"weight": voter.Weight,
		})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}
