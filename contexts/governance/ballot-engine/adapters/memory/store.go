package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// Store is the single-mutex reference implementation of every ballot port.
// The one lock is what makes multi-entity mutations (RecordVote) atomic.
type Store struct {
	mu sync.Mutex

	operators   map[entities.Address]bool
	window      entities.SessionWindow
	resolutions []entities.Resolution
	voters      map[entities.Address]entities.Voter
	audits      []entities.VoteAudit
	outbox      map[string]outboxRecord
	outboxSeq   int64
	eventDedup  map[string]dedupRecord
}

func NewStore(operators []entities.Address) *Store {
	allowed := make(map[entities.Address]bool, len(operators))
	for _, operator := range operators {
		if !operator.IsNull() {
			allowed[operator] = true
		}
	}
	return &Store{
		operators:  allowed,
		voters:     make(map[entities.Address]entities.Voter),
		outbox:     make(map[string]outboxRecord),
		eventDedup: make(map[string]dedupRecord),
	}
}

func (s *Store) SetOperator(operator entities.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !operator.IsNull() {
		s.operators[operator] = true
	}
}

func (s *Store) IsAuthorizedOperator(_ context.Context, caller entities.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.operators[caller], nil
}

func (s *Store) GetWindow(_ context.Context) (entities.SessionWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window, nil
}

func (s *Store) PutWindow(_ context.Context, window entities.SessionWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = window
	return nil
}

func (s *Store) AppendResolutions(_ context.Context, drafts []entities.Resolution) ([]entities.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]entities.Resolution, 0, len(drafts))
	for _, draft := range drafts {
		draft.ID = len(s.resolutions)
		if draft.Tallies == nil {
			draft.Tallies = make([]uint64, 0)
		}
		s.resolutions = append(s.resolutions, draft)
		stored = append(stored, cloneResolution(draft))
	}
	return stored, nil
}

func (s *Store) ResolutionCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resolutions), nil
}

func (s *Store) GetResolution(_ context.Context, resolutionID int) (entities.Resolution, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if resolutionID < 0 || resolutionID >= len(s.resolutions) {
		return entities.Resolution{}, false, nil
	}
	return cloneResolution(s.resolutions[resolutionID]), true, nil
}

func (s *Store) ListResolutions(_ context.Context) ([]entities.Resolution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]entities.Resolution, 0, len(s.resolutions))
	for _, resolution := range s.resolutions {
		items = append(items, cloneResolution(resolution))
	}
	return items, nil
}

func (s *Store) GetVoter(_ context.Context, address entities.Address) (entities.Voter, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter, ok := s.voters[address]
	if !ok {
		return entities.Voter{}, false, nil
	}
	return cloneVoter(voter), true, nil
}

func (s *Store) UpsertVoterWeights(
	_ context.Context,
	addresses []entities.Address,
	weights []uint64,
	now time.Time,
) ([]entities.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(addresses) != len(weights) {
		return nil, domainerrors.ErrLengthMismatch
	}
	updated := make([]entities.Voter, 0, len(addresses))
	for i, address := range addresses {
		voter, ok := s.voters[address]
		if !ok {
			voter = entities.Voter{
				Address:      address,
				Voted:        make(map[int]bool),
				RegisteredAt: now,
			}
		}
		// Re-registration replaces weight only; delegate and voted history
		// survive.
		voter.Weight = weights[i]
		voter.UpdatedAt = now
		s.voters[address] = voter
		updated = append(updated, cloneVoter(voter))
	}
	return updated, nil
}

func (s *Store) SetDelegate(_ context.Context, voter entities.Address, delegate entities.Address, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.voters[voter]
	if !ok {
		return domainerrors.ErrNotAVoter
	}
	record.Delegate = delegate
	record.UpdatedAt = now
	s.voters[voter] = record
	return nil
}

func (s *Store) HasVoted(_ context.Context, voter entities.Address, resolutionID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.voters[voter]
	if !ok {
		return false, nil
	}
	return record.Voted[resolutionID], nil
}

func (s *Store) ListVoters(_ context.Context) ([]entities.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]entities.Voter, 0, len(s.voters))
	for _, voter := range s.voters {
		items = append(items, cloneVoter(voter))
	}
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].Address[:], items[j].Address[:]) < 0
	})
	return items, nil
}

// RecordVote marks the voter and accumulates the tally under one lock; either
// both mutations happen or neither does.
func (s *Store) RecordVote(_ context.Context, record entities.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voter, ok := s.voters[record.Voter]
	if !ok || voter.Weight == 0 {
		return domainerrors.ErrNotAVoter
	}
	if record.ResolutionID < 0 || record.ResolutionID >= len(s.resolutions) {
		return domainerrors.ErrResolutionOutOfRange
	}
	resolution := s.resolutions[record.ResolutionID]
	if record.ProposalID < 0 || record.ProposalID >= len(resolution.Tallies) {
		return domainerrors.ErrProposalOutOfRange
	}
	if voter.Voted[record.ResolutionID] {
		return domainerrors.ErrAlreadyVoted
	}
	if resolution.Tallies[record.ProposalID] > math.MaxUint64-record.Weight {
		return domainerrors.ErrTallyOverflow
	}

	if voter.Voted == nil {
		voter.Voted = make(map[int]bool)
	}
	voter.Voted[record.ResolutionID] = true
	voter.UpdatedAt = record.CastAt
	s.voters[record.Voter] = voter
	s.resolutions[record.ResolutionID].Tallies[record.ProposalID] += record.Weight
	return nil
}

func (s *Store) AppendAudit(_ context.Context, audit entities.VoteAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, audit)
	return nil
}

func (s *Store) ListAuditsByResolution(_ context.Context, resolutionID int) ([]entities.VoteAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]entities.VoteAudit, 0)
	for _, audit := range s.audits {
		if audit.ResolutionID == resolutionID {
			items = append(items, audit)
		}
	}
	return items, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := envelope.EventID
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outboxSeq++
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			Seq:          s.outboxSeq,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Seq < items[j].Seq
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[outboxID]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.eventDedup[eventID]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, eventID)
		} else {
			if existing.payloadHash != payloadHash {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}

	s.eventDedup[eventID] = dedupRecord{
		payloadHash: payloadHash,
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneResolution(resolution entities.Resolution) entities.Resolution {
	tallies := make([]uint64, len(resolution.Tallies))
	copy(tallies, resolution.Tallies)
	resolution.Tallies = tallies
	return resolution
}

func cloneVoter(voter entities.Voter) entities.Voter {
	voted := make(map[int]bool, len(voter.Voted))
	for id, ok := range voter.Voted {
		voted[id] = ok
	}
	voter.Voted = voted
	return voter
}
