package commands

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	application "quorum/contexts/governance/ballot-engine/application"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
	"quorum/contexts/governance/ballot-engine/ports"
)

// SetWindowCommand configures the voting window, in unix seconds.
type SetWindowCommand struct {
	Operator entities.Address
	StartsAt int64
	EndsAt   int64
}

// SessionUseCase owns the session window. The window may be reconfigured any
// number of times before its start is reached; once the start timestamp
// passes, the before-phase is closed permanently.
type SessionUseCase struct {
	Gate     ports.AccessGate
	Sessions ports.SessionStore
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc SessionUseCase) SetWindow(ctx context.Context, cmd SetWindowCommand) (entities.SessionWindow, error) {
	logger := application.ResolveLogger(uc.Logger)
	logger.Info("session window set started",
		"event", "ballot_window_set_started",
		"module", "governance/ballot-engine",
		"layer", "application",
		"operator", cmd.Operator.String(),
		"starts_at", cmd.StartsAt,
		"ends_at", cmd.EndsAt,
	)

	authorized, err := uc.Gate.IsAuthorizedOperator(ctx, cmd.Operator)
	if err != nil {
		return entities.SessionWindow{}, err
	}
	if !authorized {
		logger.Warn("session window set rejected",
			"event", "ballot_window_set_unauthorized",
			"module", "governance/ballot-engine",
			"layer", "application",
			"operator", cmd.Operator.String(),
		)
		return entities.SessionWindow{}, domainerrors.ErrUnauthorized
	}

	now := resolveNow(uc.Clock)
	current, err := uc.Sessions.GetWindow(ctx)
	if err != nil {
		return entities.SessionWindow{}, err
	}
	if !current.IsBefore(now) {
		return entities.SessionWindow{}, domainerrors.ErrWindowAlreadyOpen
	}
	if cmd.StartsAt <= 0 || cmd.StartsAt >= cmd.EndsAt {
		return entities.SessionWindow{}, domainerrors.ErrInvalidWindow
	}

	window := entities.SessionWindow{
		StartsAt:  cmd.StartsAt,
		EndsAt:    cmd.EndsAt,
		UpdatedAt: now,
	}
	if err := uc.Sessions.PutWindow(ctx, window); err != nil {
		return entities.SessionWindow{}, err
	}
	if err := uc.appendWindowEvent(ctx, window, now); err != nil {
		return entities.SessionWindow{}, err
	}

	logger.Info("session window set",
		"event", "ballot_window_set",
		"module", "governance/ballot-engine",
		"layer", "application",
		"operator", cmd.Operator.String(),
		"starts_at", window.StartsAt,
		"ends_at", window.EndsAt,
	)
	return window, nil
}

func (uc SessionUseCase) appendWindowEvent(ctx context.Context, window entities.SessionWindow, occurredAt time.Time) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newBallotEnvelope(eventID, EventWindowSet, "starts_at",
		strconv.FormatInt(window.StartsAt, 10), occurredAt, map[string]any{
			"starts_at": window.StartsAt,
			"ends_at":   window.EndsAt,
		})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
