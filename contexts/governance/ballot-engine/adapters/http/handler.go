package httpadapter

import (
	"context"
	"log/slog"
	"sort"

	"quorum/contexts/governance/ballot-engine/application/commands"
	"quorum/contexts/governance/ballot-engine/application/queries"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	httptransport "quorum/contexts/governance/ballot-engine/transport/http"
)

type Handler struct {
	Sessions commands.SessionUseCase
	Registry commands.RegistryUseCase
	Tally    commands.TallyUseCase
	Results  queries.ResultsUseCase
	Logger   *slog.Logger
}

func (h Handler) SetWindowHandler(
	ctx context.Context,
	operator entities.Address,
	req httptransport.SetWindowRequest,
) (httptransport.WindowResponse, error) {
	window, err := h.Sessions.SetWindow(ctx, commands.SetWindowCommand{
		Operator: operator,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		return httptransport.WindowResponse{}, err
	}
	// A window whose start is already past opens immediately, so the phase is
	// derived from the clock rather than assumed.
	view, err := h.Results.Window(ctx)
	if err != nil {
		return httptransport.WindowResponse{}, err
	}
	return httptransport.WindowResponse{
		StartsAt: window.StartsAt,
		EndsAt:   window.EndsAt,
		Phase:    string(view.Phase),
	}, nil
}

func (h Handler) WindowHandler(ctx context.Context) (httptransport.WindowResponse, error) {
	view, err := h.Results.Window(ctx)
	if err != nil {
		return httptransport.WindowResponse{}, err
	}
	return httptransport.WindowResponse{
		StartsAt: view.StartsAt,
		EndsAt:   view.EndsAt,
		Phase:    string(view.Phase),
	}, nil
}

func (h Handler) AddResolutionsHandler(
	ctx context.Context,
	operator entities.Address,
	req httptransport.AddResolutionsRequest,
) (httptransport.ResolutionListResponse, error) {
	stored, err := h.Registry.AddResolutions(ctx, commands.AddResolutionsCommand{
		Operator:       operator,
		Names:          req.Names,
		URLs:           req.URLs,
		ProposalCounts: req.ProposalCounts,
	})
	if err != nil {
		return httptransport.ResolutionListResponse{}, err
	}
	return httptransport.ResolutionListResponse{
		Count: len(stored),
		Items: mapResolutions(stored),
	}, nil
}

func (h Handler) ListResolutionsHandler(ctx context.Context) (httptransport.ResolutionListResponse, error) {
	items, err := h.Results.ListResolutions(ctx)
	if err != nil {
		return httptransport.ResolutionListResponse{}, err
	}
	return httptransport.ResolutionListResponse{
		Count: len(items),
		Items: mapResolutions(items),
	}, nil
}

func (h Handler) ResolutionResultsHandler(ctx context.Context, resolutionID int) (httptransport.ResolutionResponse, error) {
	resolution, err := h.Results.ResultsOf(ctx, resolutionID)
	if err != nil {
		return httptransport.ResolutionResponse{}, err
	}
	return mapResolution(resolution), nil
}

func (h Handler) RegisterVotersHandler(
	ctx context.Context,
	operator entities.Address,
	voters []entities.Address,
	req httptransport.RegisterVotersRequest,
) (httptransport.VoterBatchResponse, error) {
	stored, err := h.Registry.RegisterVoters(ctx, commands.RegisterVotersCommand{
		Operator: operator,
		Voters:   voters,
		Weights:  req.Weights,
	})
	if err != nil {
		return httptransport.VoterBatchResponse{}, err
	}
	items := make([]httptransport.VoterResponse, 0, len(stored))
	for _, voter := range stored {
		items = append(items, mapVoter(voter))
	}
	return httptransport.VoterBatchResponse{Items: items}, nil
}

func (h Handler) DelegateHandler(ctx context.Context, caller entities.Address, delegate entities.Address) error {
	return h.Registry.DelegateVote(ctx, commands.DelegateVoteCommand{
		Caller:   caller,
		Delegate: delegate,
	})
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	caller entities.Address,
	voter entities.Address,
	req httptransport.CastVoteRequest,
) (httptransport.VoteResponse, error) {
	record, err := h.Tally.CastVote(ctx, commands.CastVoteCommand{
		Caller:       caller,
		Voter:        voter,
		ResolutionID: req.ResolutionID,
		ProposalID:   req.ProposalID,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		Voter:        record.Voter.String(),
		ResolutionID: record.ResolutionID,
		ProposalID:   record.ProposalID,
		Weight:       record.Weight,
	}, nil
}

func (h Handler) VoterProfileHandler(ctx context.Context, address entities.Address) (httptransport.VoterResponse, error) {
	voter, err := h.Results.VoterProfile(ctx, address)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return mapVoter(voter), nil
}

func (h Handler) HasVotedHandler(
	ctx context.Context,
	voter entities.Address,
	resolutionID int,
) (httptransport.HasVotedResponse, error) {
	voted, err := h.Results.HasVoted(ctx, voter, resolutionID)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{
		Voter:        voter.String(),
		ResolutionID: resolutionID,
		Voted:        voted,
	}, nil
}

func (h Handler) TurnoutHandler(ctx context.Context) (httptransport.TurnoutResponse, error) {
	report, err := h.Results.Turnout(ctx)
	if err != nil {
		return httptransport.TurnoutResponse{}, err
	}
	items := make([]httptransport.ResolutionTurnoutItem, 0, len(report.Resolutions))
	for _, turnout := range report.Resolutions {
		items = append(items, httptransport.ResolutionTurnoutItem{
			ResolutionID: turnout.ResolutionID,
			BallotsCast:  turnout.BallotsCast,
			WeightCast:   turnout.WeightCast,
		})
	}
	return httptransport.TurnoutResponse{
		RegisteredVoters: report.RegisteredVoters,
		TotalWeight:      report.TotalWeight,
		Resolutions:      items,
	}, nil
}

func mapResolutions(items []entities.Resolution) []httptransport.ResolutionResponse {
	mapped := make([]httptransport.ResolutionResponse, 0, len(items))
	for _, resolution := range items {
		mapped = append(mapped, mapResolution(resolution))
	}
	return mapped
}

func mapResolution(resolution entities.Resolution) httptransport.ResolutionResponse {
	tallies := make([]uint64, len(resolution.Tallies))
	copy(tallies, resolution.Tallies)
	return httptransport.ResolutionResponse{
		ResolutionID: resolution.ID,
		Name:         resolution.Name,
		URL:          resolution.URL,
		Tallies:      tallies,
	}
}

func mapVoter(voter entities.Voter) httptransport.VoterResponse {
	voted := make([]int, 0, len(voter.Voted))
	for resolutionID := range voter.Voted {
		voted = append(voted, resolutionID)
	}
	sort.Ints(voted)
	resp := httptransport.VoterResponse{
		Voter:  voter.Address.String(),
		Weight: voter.Weight,
		Voted:  voted,
	}
	if !voter.Delegate.IsNull() {
		resp.Delegate = voter.Delegate.String()
	}
	return resp
}
