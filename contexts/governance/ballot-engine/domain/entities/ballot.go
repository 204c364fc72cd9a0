package entities

import "time"

// Resolution is one decision item open for voting. Its id is its position in
// the append-only resolution sequence; the tally slice is sized at creation
// and never resized.
type Resolution struct {
	ID        int
	Name      string
	URL       string
	Tallies   []uint64
	CreatedAt time.Time
}

// ProposalCount reports the fixed number of proposal slots.
func (r Resolution) ProposalCount() int {
	return len(r.Tallies)
}

// Voter is one enrolled identity. Voted holds resolution ids the voter has
// already contributed to; entries are added once and never removed.
type Voter struct {
	Address      Address
	Weight       uint64
	Delegate     Address
	Voted        map[int]bool
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

func (v Voter) HasVoted(resolutionID int) bool {
	return v.Voted[resolutionID]
}

// SessionPhase is derived from the stored window and the current time on every
// call; there is no scheduled transition and Closed is terminal.
type SessionPhase string

const (
	PhaseUnconfigured SessionPhase = "unconfigured"
	PhaseBeforeOpen   SessionPhase = "before_open"
	PhaseOpen         SessionPhase = "open"
	PhaseClosed       SessionPhase = "closed"
)

// SessionWindow is the voting window in unix seconds. Both bounds are zero
// until the window is configured.
type SessionWindow struct {
	StartsAt  int64
	EndsAt    int64
	UpdatedAt time.Time
}

func (w SessionWindow) IsConfigured() bool {
	return w.StartsAt > 0
}

// IsBefore reports whether registry mutations are still allowed: no window is
// configured yet, or the configured start is still in the future.
func (w SessionWindow) IsBefore(now time.Time) bool {
	return !w.IsConfigured() || now.Unix() < w.StartsAt
}

// IsOpen reports whether votes may be cast: start <= now < end.
func (w SessionWindow) IsOpen(now time.Time) bool {
	return w.IsConfigured() && now.Unix() >= w.StartsAt && now.Unix() < w.EndsAt
}

func (w SessionWindow) Phase(now time.Time) SessionPhase {
	switch {
	case !w.IsConfigured():
		return PhaseUnconfigured
	case now.Unix() < w.StartsAt:
		return PhaseBeforeOpen
	case now.Unix() < w.EndsAt:
		return PhaseOpen
	default:
		return PhaseClosed
	}
}

// VoteRecord is the committed form of a single weighted vote.
type VoteRecord struct {
	Voter        Address
	ResolutionID int
	ProposalID   int
	Weight       uint64
	CastAt       time.Time
}

// VoteAudit is one immutable audit-trail row appended by the vote consumer.
type VoteAudit struct {
	AuditID      string
	EventID      string
	Voter        Address
	ResolutionID int
	ProposalID   int
	Weight       uint64
	RecordedAt   time.Time
}

// ResolutionTurnout summarizes participation on one resolution.
type ResolutionTurnout struct {
	ResolutionID int
	BallotsCast  int
	WeightCast   uint64
}

// TurnoutReport is the engine-wide participation summary.
type TurnoutReport struct {
	RegisteredVoters int
	TotalWeight      uint64
	Resolutions      []ResolutionTurnout
}
