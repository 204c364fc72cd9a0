package queries

import (
	"context"
	"sort"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"
)

// WindowView is the read model for the session window and its derived phase.
type WindowView struct {
	StartsAt int64
	EndsAt   int64
	Phase    entities.SessionPhase
}

// ResultsUseCase is the unrestricted read surface of the engine.
type ResultsUseCase struct {
	Sessions    ports.SessionStore
	Resolutions ports.ResolutionStore
	Voters      ports.VoterLedger
	Clock       ports.Clock
}

func (uc ResultsUseCase) ResolutionCount(ctx context.Context) (int, error) {
	return uc.Resolutions.ResolutionCount(ctx)
}

func (uc ResultsUseCase) ResultsOf(ctx context.Context, resolutionID int) (entities.Resolution, error) {
	resolution, found, err := uc.Resolutions.GetResolution(ctx, resolutionID)
	if err != nil {
		return entities.Resolution{}, err
	}
	if !found {
		return entities.Resolution{}, domainerrors.ErrResolutionOutOfRange
	}
	return resolution, nil
}

func (uc ResultsUseCase) ListResolutions(ctx context.Context) ([]entities.Resolution, error) {
	return uc.Resolutions.ListResolutions(ctx)
}

func (uc ResultsUseCase) HasVoted(ctx context.Context, voter entities.Address, resolutionID int) (bool, error) {
	count, err := uc.Resolutions.ResolutionCount(ctx)
	if err != nil {
		return false, err
	}
	if resolutionID < 0 || resolutionID >= count {
		return false, domainerrors.ErrResolutionOutOfRange
	}
	return uc.Voters.HasVoted(ctx, voter, resolutionID)
}

func (uc ResultsUseCase) Window(ctx context.Context) (WindowView, error) {
	window, err := uc.Sessions.GetWindow(ctx)
	if err != nil {
		return WindowView{}, err
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return WindowView{
		StartsAt: window.StartsAt,
		EndsAt:   window.EndsAt,
		Phase:    window.Phase(now),
	}, nil
}

func (uc ResultsUseCase) VoterProfile(ctx context.Context, address entities.Address) (entities.Voter, error) {
	voter, found, err := uc.Voters.GetVoter(ctx, address)
	if err != nil {
		return entities.Voter{}, err
	}
	if !found {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return voter, nil
}

// Turnout aggregates participation across the whole registry. Weight cast per
// resolution is the sum of the resolution's proposal tallies, so the report is
// derivable without replaying individual votes.
func (uc ResultsUseCase) Turnout(ctx context.Context) (entities.TurnoutReport, error) {
	voters, err := uc.Voters.ListVoters(ctx)
	if err != nil {
		return entities.TurnoutReport{}, err
	}
	resolutions, err := uc.Resolutions.ListResolutions(ctx)
	if err != nil {
		return entities.TurnoutReport{}, err
	}

	report := entities.TurnoutReport{
		RegisteredVoters: len(voters),
	}
	ballots := make(map[int]int)
	for _, voter := range voters {
		report.TotalWeight += voter.Weight
		for resolutionID := range voter.Voted {
			ballots[resolutionID]++
		}
	}
	for _, resolution := range resolutions {
		turnout := entities.ResolutionTurnout{
			ResolutionID: resolution.ID,
			BallotsCast:  ballots[resolution.ID],
		}
		for _, tally := range resolution.Tallies {
			turnout.WeightCast += tally
		}
		report.Resolutions = append(report.Resolutions, turnout)
	}
	sort.Slice(report.Resolutions, func(i, j int) bool {
		return report.Resolutions[i].ResolutionID < report.Resolutions[j].ResolutionID
	})
	return report, nil
}
