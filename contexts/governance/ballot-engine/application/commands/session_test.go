package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"quorum/contexts/governance/ballot-engine/adapters/memory"
	"quorum/contexts/governance/ballot-engine/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-engine/domain/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func testAddress(t *testing.T, suffix byte) entities.Address {
	t.Helper()
	var addr entities.Address
	addr[entities.AddressLength-1] = suffix
	if addr.IsNull() {
		t.Fatalf("test address must not be null")
	}
	return addr
}

func TestSetWindowRequiresOperator(t *testing.T) {
	operator := testAddress(t, 1)
	intruder := testAddress(t, 2)
	store := memory.NewStore([]entities.Address{operator})
	clock := &fakeClock{now: time.Unix(1_000, 0).UTC()}
	uc := SessionUseCase{Gate: store, Sessions: store, Outbox: store, Clock: clock, IDGen: store}

	_, err := uc.SetWindow(context.Background(), SetWindowCommand{
		Operator: intruder,
		StartsAt: 2_000,
		EndsAt:   3_000,
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSetWindowRejectsInvalidBounds(t *testing.T) {
	operator := testAddress(t, 1)
	store := memory.NewStore([]entities.Address{operator})
	clock := &fakeClock{now: time.Unix(1_000, 0).UTC()}
	uc := SessionUseCase{Gate: store, Sessions: store, Outbox: store, Clock: clock, IDGen: store}

	cases := []SetWindowCommand{
		{Operator: operator, StartsAt: 0, EndsAt: 3_000},
		{Operator: operator, StartsAt: -5, EndsAt: 3_000},
		{Operator: operator, StartsAt: 3_000, EndsAt: 3_000},
		{Operator: operator, StartsAt: 3_000, EndsAt: 2_000},
	}
	for _, cmd := range cases {
		if _, err := uc.SetWindow(context.Background(), cmd); !errors.Is(err, domainerrors.ErrInvalidWindow) {
			t.Fatalf("expected invalid window for %+v, got %v", cmd, err)
		}
	}
}

func TestSetWindowReconfigurableBeforeStart(t *testing.T) {
	operator := testAddress(t, 1)
	store := memory.NewStore([]entities.Address{operator})
	clock := &fakeClock{now: time.Unix(1_000, 0).UTC()}
	uc := SessionUseCase{Gate: store, Sessions: store, Outbox: store, Clock: clock, IDGen: store}

	first, err := uc.SetWindow(context.Background(), SetWindowCommand{
		Operator: operator,
		StartsAt: 5_000,
		EndsAt:   9_000,
	})
	if err != nil {
		t.Fatalf("set window failed: %v", err)
	}
	if first.StartsAt != 5_000 || first.EndsAt != 9_000 {
		t.Fatalf("unexpected window %+v", first)
	}

	second, err := uc.SetWindow(context.Background(), SetWindowCommand{
		Operator: operator,
		StartsAt: 6_000,
		EndsAt:   8_000,
	})
	if err != nil {
		t.Fatalf("reconfigure before start failed: %v", err)
	}
	if second.StartsAt != 6_000 {
		t.Fatalf("expected reconfigured start, got %d", second.StartsAt)
	}
}

func TestSetWindowRejectedOnceStartPassed(t *testing.T) {
	operator := testAddress(t, 1)
	store := memory.NewStore([]entities.Address{operator})
	clock := &fakeClock{now: time.Unix(1_000, 0).UTC()}
	uc := SessionUseCase{Gate: store, Sessions: store, Outbox: store, Clock: clock, IDGen: store}

	if _, err := uc.SetWindow(context.Background(), SetWindowCommand{
		Operator: operator,
		StartsAt: 2_000,
		EndsAt:   9_000,
	}); err != nil {
		t.Fatalf("set window failed: %v", err)
	}

	clock.now = time.Unix(2_000, 0).UTC()
	_, err := uc.SetWindow(context.Background(), SetWindowCommand{
		Operator: operator,
		StartsAt: 7_000,
		EndsAt:   9_000,
	})
	if !errors.Is(err, domainerrors.ErrWindowAlreadyOpen) {
		t.Fatalf("expected window already open, got %v", err)
	}

	// Still rejected after the window closes; the phase never returns to before.
	clock.now = time.Unix(20_000, 0).UTC()
	_, err = uc.SetWindow(context.Background(), SetWindowCommand{
		Operator: operator,
		StartsAt: 30_000,
		EndsAt:   40_000,
	})
	if !errors.Is(err, domainerrors.ErrWindowAlreadyOpen) {
		t.Fatalf("expected window already open after close, got %v", err)
	}
}

func TestSetWindowAppendsOutboxEvent(t *testing.T) {
	operator := testAddress(t, 1)
	store := memory.NewStore([]entities.Address{operator})
	clock := &fakeClock{now: time.Unix(1_000, 0).UTC()}
	uc := SessionUseCase{Gate: store, Sessions: store, Outbox: store, Clock: clock, IDGen: store}

	if _, err := uc.SetWindow(context.Background(), SetWindowCommand{
		Operator: operator,
		StartsAt: 2_000,
		EndsAt:   3_000,
	}); err != nil {
		t.Fatalf("set window failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one outbox row, got %d", len(pending))
	}
	if pending[0].EventType != EventWindowSet {
		t.Fatalf("expected %s event, got %s", EventWindowSet, pending[0].EventType)
	}
}
