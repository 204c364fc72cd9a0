package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SetWindowRequest struct {
	StartsAt int64 `json:"starts_at"`
	EndsAt   int64 `json:"ends_at"`
}

type WindowResponse struct {
	StartsAt int64  `json:"starts_at"`
	EndsAt   int64  `json:"ends_at"`
	Phase    string `json:"phase"`
}

type AddResolutionsRequest struct {
	Names          []string `json:"names"`
	URLs           []string `json:"urls"`
	ProposalCounts []int    `json:"proposal_counts"`
}

type ResolutionResponse struct {
	ResolutionID int      `json:"resolution_id"`
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Tallies      []uint64 `json:"tallies"`
}

type ResolutionListResponse struct {
	Count int                  `json:"count"`
	Items []ResolutionResponse `json:"items"`
}

type RegisterVotersRequest struct {
	Voters  []string `json:"voters"`
	Weights []uint64 `json:"weights"`
}

type VoterResponse struct {
	Voter    string `json:"voter"`
	Weight   uint64 `json:"weight"`
	Delegate string `json:"delegate,omitempty"`
	Voted    []int  `json:"voted"`
}

type VoterBatchResponse struct {
	Items []VoterResponse `json:"items"`
}

type DelegateRequest struct {
	Delegate string `json:"delegate"`
}

type CastVoteRequest struct {
	Voter        string `json:"voter,omitempty"`
	ResolutionID int    `json:"resolution_id"`
	ProposalID   int    `json:"proposal_id"`
}

type VoteResponse struct {
	Voter        string `json:"voter"`
	ResolutionID int    `json:"resolution_id"`
	ProposalID   int    `json:"proposal_id"`
	Weight       uint64 `json:"weight"`
}

type HasVotedResponse struct {
	Voter        string `json:"voter"`
	ResolutionID int    `json:"resolution_id"`
	Voted        bool   `json:"voted"`
}

type ResolutionTurnoutItem struct {
	ResolutionID int    `json:"resolution_id"`
	BallotsCast  int    `json:"ballots_cast"`
	WeightCast   uint64 `json:"weight_cast"`
}

type TurnoutResponse struct {
	RegisteredVoters int                     `json:"registered_voters"`
	TotalWeight      uint64                  `json:"total_weight"`
	Resolutions      []ResolutionTurnoutItem `json:"resolutions"`
}
