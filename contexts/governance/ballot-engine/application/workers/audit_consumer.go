package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	application "quorum/contexts/governance/ballot-engine/application"
	"quorum/contexts/governance/ballot-engine/application/commands"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	"quorum/contexts/governance/ballot-engine/ports"
)

// VoteAuditConsumer appends an immutable audit row for every vote_cast event.
// Redelivered events are absorbed through the dedup reservation, so the trail
// stays one row per committed vote.
type VoteAuditConsumer struct {
	Subscriber    ports.EventSubscriber
	Audits        ports.AuditLog
	Dedup         ports.EventDedup
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

type voteCastPayload struct {
	Voter        string `json:"voter"`
	ResolutionID int    `json:"resolution_id"`
	ProposalID   int    `json:"proposal_id"`
	Weight       uint64 `json:"weight"`
}

func (c VoteAuditConsumer) Start(ctx context.Context) error {
	return c.Subscriber.Subscribe(ctx, commands.EventVoteCast, c.resolveConsumerGroup(), c.handle)
}

func (c VoteAuditConsumer) handle(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	payloadHash := hashPayload(event.Data)
	seen, err := c.Dedup.ReserveEvent(ctx, event.EventID, payloadHash, now.Add(c.resolveDedupTTL()))
	if err != nil {
		return err
	}
	if seen {
		logger.Debug("vote audit event deduplicated",
			"event", "ballot_audit_event_deduplicated",
			"module", "governance/ballot-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload voteCastPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("vote audit payload decode failed",
			"event", "ballot_audit_decode_failed",
			"module", "governance/ballot-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	voter, err := entities.ParseAddress(payload.Voter)
	if err != nil {
		return err
	}
	auditID, err := c.IDGen.NewID(ctx)
	if err != nil {
		return err
	}

	audit := entities.VoteAudit{
		AuditID:      auditID,
		EventID:      event.EventID,
		Voter:        voter,
		ResolutionID: payload.ResolutionID,
		ProposalID:   payload.ProposalID,
		Weight:       payload.Weight,
		RecordedAt:   now,
	}
	if err := c.Audits.AppendAudit(ctx, audit); err != nil {
		return err
	}

	logger.Info("vote audit recorded",
		"event", "ballot_audit_recorded",
		"module", "governance/ballot-engine",
		"layer", "worker",
		"event_id", event.EventID,
		"voter", audit.Voter.String(),
		"resolution_id", audit.ResolutionID,
		"proposal_id", audit.ProposalID,
		"weight", audit.Weight,
	)
	return nil
}

func (c VoteAuditConsumer) resolveConsumerGroup() string {
	if c.ConsumerGroup == "" {
		return "ballot-audit-cg"
	}
	return c.ConsumerGroup
}

func (c VoteAuditConsumer) resolveDedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
