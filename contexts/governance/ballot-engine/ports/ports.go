package ports

import (
	"context"
	"encoding/json"
	"time"

	"quorum/contexts/governance/ballot-engine/domain/entities"
)

// AccessGate answers whether a caller may perform operator-only mutations.
// Operator management itself lives outside the engine.
type AccessGate interface {
	IsAuthorizedOperator(ctx context.Context, caller entities.Address) (bool, error)
}

// SessionStore holds the voting window. GetWindow returns the zero value while
// no window has been configured.
type SessionStore interface {
	GetWindow(ctx context.Context) (entities.SessionWindow, error)
	PutWindow(ctx context.Context, window entities.SessionWindow) error
}

// ResolutionStore is the append-only resolution sequence. AppendResolutions
// assigns positional ids atomically and returns the stored entries.
type ResolutionStore interface {
	AppendResolutions(ctx context.Context, drafts []entities.Resolution) ([]entities.Resolution, error)
	ResolutionCount(ctx context.Context) (int, error)
	GetResolution(ctx context.Context, resolutionID int) (entities.Resolution, bool, error)
	ListResolutions(ctx context.Context) ([]entities.Resolution, error)
}

// VoterLedger maps voter identities to weight, delegate, and voted set.
type VoterLedger interface {
	GetVoter(ctx context.Context, voter entities.Address) (entities.Voter, bool, error)
	// UpsertVoterWeights overwrites weights for the listed voters in one
	// atomic batch, preserving any existing delegate and voted entries.
	UpsertVoterWeights(ctx context.Context, voters []entities.Address, weights []uint64, now time.Time) ([]entities.Voter, error)
	SetDelegate(ctx context.Context, voter entities.Address, delegate entities.Address, now time.Time) error
	HasVoted(ctx context.Context, voter entities.Address, resolutionID int) (bool, error)
	ListVoters(ctx context.Context) ([]entities.Voter, error)
}

// TallyStore commits votes. RecordVote must atomically mark the voter as
// having voted and add the weight to the chosen proposal slot, or change
// nothing; it re-validates double-vote and overflow under its own lock.
type TallyStore interface {
	RecordVote(ctx context.Context, record entities.VoteRecord) error
}

// AuditLog is the worker-side immutable vote audit trail.
type AuditLog interface {
	AppendAudit(ctx context.Context, audit entities.VoteAudit) error
	ListAuditsByResolution(ctx context.Context, resolutionID int) ([]entities.VoteAudit, error)
}

// EventEnvelope is the canonical event shape written to the outbox and
// published on the bus.
type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// OutboxMessage is one pending outbox row. Seq is assigned at append time and
// defines relay order; created_at alone cannot, since one batch shares a
// single timestamp.
type OutboxMessage struct {
	OutboxID     string
	Seq          int64
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

// EventDedup reserves an event id for consumer-side exactly-once handling.
// It reports true when the event was seen before with the same payload hash.
type EventDedup interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
