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

func newRegistryFixture(t *testing.T) (RegistryUseCase, *memory.Store, *fakeClock, entities.Address) {
	t.Helper()
	operator := testAddress(t, 1)
	store := memory.NewStore([]entities.Address{operator})
	clock := &fakeClock{now: time.Unix(1_000, 0).UTC()}
	uc := RegistryUseCase{
		Gate:        store,
		Sessions:    store,
		Resolutions: store,
		Voters:      store,
		Outbox:      store,
		Clock:       clock,
		IDGen:       store,
	}
	return uc, store, clock, operator
}

func TestAddResolutionsAssignsPositionalIDs(t *testing.T) {
	uc, store, _, operator := newRegistryFixture(t)

	stored, err := uc.AddResolutions(context.Background(), AddResolutionsCommand{
		Operator:       operator,
		Names:          []string{"budget", "charter"},
		URLs:           []string{"https://example.test/budget", "https://example.test/charter"},
		ProposalCounts: []int{2, 3},
	})
	if err != nil {
		t.Fatalf("add resolutions failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 resolutions, got %d", len(stored))
	}
	if stored[0].ID != 0 || stored[1].ID != 1 {
		t.Fatalf("expected positional ids 0 and 1, got %d and %d", stored[0].ID, stored[1].ID)
	}
	if stored[0].ProposalCount() != 2 || stored[1].ProposalCount() != 3 {
		t.Fatalf("unexpected proposal counts %d and %d", stored[0].ProposalCount(), stored[1].ProposalCount())
	}

	more, err := uc.AddResolutions(context.Background(), AddResolutionsCommand{
		Operator:       operator,
		Names:          []string{"bylaws"},
		URLs:           []string{""},
		ProposalCounts: []int{1},
	})
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if more[0].ID != 2 {
		t.Fatalf("expected id 2 for appended resolution, got %d", more[0].ID)
	}

	count, err := store.ResolutionCount(context.Background())
	if err != nil {
		t.Fatalf("resolution count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 stored resolutions, got %d", count)
	}
}

func TestAddResolutionsRejectsLengthMismatch(t *testing.T) {
	uc, _, _, operator := newRegistryFixture(t)

	_, err := uc.AddResolutions(context.Background(), AddResolutionsCommand{
		Operator:       operator,
		Names:          []string{"a", "b"},
		URLs:           []string{"u"},
		ProposalCounts: []int{1, 1},
	})
	if !errors.Is(err, domainerrors.ErrLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}
}

func TestRegistryMutationsRejectedAfterWindowStart(t *testing.T) {
	uc, store, clock, operator := newRegistryFixture(t)
	if err := store.PutWindow(context.Background(), entities.SessionWindow{StartsAt: 2_000, EndsAt: 9_000}); err != nil {
		t.Fatalf("put window failed: %v", err)
	}
	clock.now = time.Unix(2_000, 0).UTC()

	_, err := uc.AddResolutions(context.Background(), AddResolutionsCommand{
		Operator:       operator,
		Names:          []string{"late"},
		URLs:           []string{""},
		ProposalCounts: []int{1},
	})
	if !errors.Is(err, domainerrors.ErrWindowAlreadyOpen) {
		t.Fatalf("expected window already open for resolutions, got %v", err)
	}

	voter := testAddress(t, 9)
	_, err = uc.RegisterVoters(context.Background(), RegisterVotersCommand{
		Operator: operator,
		Voters:   []entities.Address{voter},
		Weights:  []uint64{1},
	})
	if !errors.Is(err, domainerrors.ErrWindowAlreadyOpen) {
		t.Fatalf("expected window already open for voters, got %v", err)
	}

	err = uc.DelegateVote(context.Background(), DelegateVoteCommand{
		Caller:   voter,
		Delegate: testAddress(t, 10),
	})
	if !errors.Is(err, domainerrors.ErrWindowAlreadyOpen) {
		t.Fatalf("expected window already open for delegation, got %v", err)
	}
}

func TestRegisterVotersUpsertsWeights(t *testing.T) {
	uc, store, _, operator := newRegistryFixture(t)
	alice := testAddress(t, 9)
	bob := testAddress(t, 10)

	stored, err := uc.RegisterVoters(context.Background(), RegisterVotersCommand{
		Operator: operator,
		Voters:   []entities.Address{alice, bob},
		Weights:  []uint64{5, 3},
	})
	if err != nil {
		t.Fatalf("register voters failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 voters, got %d", len(stored))
	}
	if stored[0].Weight != 5 || stored[1].Weight != 3 {
		t.Fatalf("unexpected weights %d and %d", stored[0].Weight, stored[1].Weight)
	}

	// Re-registration overwrites weight but keeps the delegate mapping.
	if err := uc.DelegateVote(context.Background(), DelegateVoteCommand{Caller: alice, Delegate: bob}); err != nil {
		t.Fatalf("delegate failed: %v", err)
	}
	if _, err := uc.RegisterVoters(context.Background(), RegisterVotersCommand{
		Operator: operator,
		Voters:   []entities.Address{alice},
		Weights:  []uint64{7},
	}); err != nil {
		t.Fatalf("re-register failed: %v", err)
	}
	voter, found, err := store.GetVoter(context.Background(), alice)
	if err != nil || !found {
		t.Fatalf("get voter failed: found=%v err=%v", found, err)
	}
	if voter.Weight != 7 {
		t.Fatalf("expected reweighted 7, got %d", voter.Weight)
	}
	if voter.Delegate != bob {
		t.Fatalf("expected delegate to survive re-registration")
	}
}

func TestRegisterVotersRejectsLengthMismatch(t *testing.T) {
	uc, _, _, operator := newRegistryFixture(t)
	_, err := uc.RegisterVoters(context.Background(), RegisterVotersCommand{
		Operator: operator,
		Voters:   []entities.Address{testAddress(t, 9)},
		Weights:  []uint64{1, 2},
	})
	if !errors.Is(err, domainerrors.ErrLengthMismatch) {
		t.Fatalf("expected length mismatch, got %v", err)
	}
}

func TestRegisterVotersRequiresOperator(t *testing.T) {
	uc, _, _, _ := newRegistryFixture(t)
	_, err := uc.RegisterVoters(context.Background(), RegisterVotersCommand{
		Operator: testAddress(t, 42),
		Voters:   []entities.Address{testAddress(t, 9)},
		Weights:  []uint64{1},
	})
	if !errors.Is(err, domainerrors.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestDelegateVoteValidation(t *testing.T) {
	uc, _, _, operator := newRegistryFixture(t)
	alice := testAddress(t, 9)
	bob := testAddress(t, 10)

	err := uc.DelegateVote(context.Background(), DelegateVoteCommand{Caller: alice, Delegate: bob})
	if !errors.Is(err, domainerrors.ErrNotAVoter) {
		t.Fatalf("expected not a voter for unregistered caller, got %v", err)
	}

	if _, err := uc.RegisterVoters(context.Background(), RegisterVotersCommand{
		Operator: operator,
		Voters:   []entities.Address{alice},
		Weights:  []uint64{5},
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	err = uc.DelegateVote(context.Background(), DelegateVoteCommand{Caller: alice, Delegate: entities.NullAddress})
	if !errors.Is(err, domainerrors.ErrInvalidDelegate) {
		t.Fatalf("expected invalid delegate for null, got %v", err)
	}

	// The delegate does not have to be a registered voter.
	if err := uc.DelegateVote(context.Background(), DelegateVoteCommand{Caller: alice, Delegate: bob}); err != nil {
		t.Fatalf("delegate to non-voter failed: %v", err)
	}
}

func TestRegistryEventsAppended(t *testing.T) {
	uc, store, _, operator := newRegistryFixture(t)

	if _, err := uc.AddResolutions(context.Background(), AddResolutionsCommand{
		Operator:       operator,
		Names:          []string{"budget"},
		URLs:           []string{""},
		ProposalCounts: []int{2},
	}); err != nil {
		t.Fatalf("add resolutions failed: %v", err)
	}
	if _, err := uc.RegisterVoters(context.Background(), RegisterVotersCommand{
		Operator: operator,
		Voters:   []entities.Address{testAddress(t, 9)},
		Weights:  []uint64{5},
	}); err != nil {
		t.Fatalf("register voters failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	types := make(map[string]int)
	for _, row := range pending {
		types[row.EventType]++
	}
	if types[EventResolutionAdded] != 1 {
		t.Fatalf("expected one resolution_added event, got %d", types[EventResolutionAdded])
	}
	if types[EventVoterRegistered] != 1 {
		t.Fatalf("expected one voter_registered event, got %d", types[EventVoterRegistered])
	}
}
