// Package storetest holds behaviour every interfaces.LedgerStore must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
)

// Run executes the shared store tests. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) interfaces.LedgerStore) {
	t.Helper()

	t.Run("ProjectRoundTrip", func(t *testing.T) { testProjectRoundTrip(t, newStore(t)) })
	t.Run("DuplicateProject", func(t *testing.T) { testDuplicateProject(t, newStore(t)) })
	t.Run("UpdateProject", func(t *testing.T) { testUpdateProject(t, newStore(t)) })
	t.Run("Contributions", func(t *testing.T) { testContributions(t, newStore(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("Balances", func(t *testing.T) { testBalances(t, newStore(t)) })
	t.Run("ConcurrentCredits", func(t *testing.T) { testConcurrentCredits(t, newStore(t)) })
}

var createdAt = time.Date(2026, time.May, 4, 8, 15, 30, 123_000_000, time.UTC)

func project(id string, offset time.Duration) models.Project {
	return models.NewProject(id, "Deep Sea Survey", "Mapping vents.", "oceanography",
		5_000_000_000, 1_000_000, "creator", createdAt.Add(offset))
}

func create(t *testing.T, store interfaces.LedgerStore, p models.Project) {
	t.Helper()
	ctx := context.Background()
	if err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.CreateProject(ctx, p)
	}); err != nil {
		t.Fatalf("create project %s: %v", p.ID, err)
	}
}

func testProjectRoundTrip(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()
	want := project("p1", 0)
	create(t, store, want)

	got, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got != want {
		t.Fatalf("project = %+v, want %+v", got, want)
	}

	if _, err := store.GetProject(ctx, "missing"); !errors.Is(err, models.ErrProjectNotFound) {
		t.Fatalf("missing project error = %v, want %v", err, models.ErrProjectNotFound)
	}

	create(t, store, project("p0", -time.Hour))
	projects, err := store.ListProjects(ctx)
	if err != nil {
		t.Fatalf("list projects: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(projects))
	}
}

func testDuplicateProject(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()
	create(t, store, project("p1", 0))

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.CreateProject(ctx, project("p1", 0))
	})
	if !errors.Is(err, models.ErrProjectExists) {
		t.Fatalf("error = %v, want %v", err, models.ErrProjectExists)
	}
}

func testUpdateProject(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()
	p := project("p1", 0)
	create(t, store, p)

	p.CurrentFunding = math.MaxUint64
	p.State = models.StateActiveFunded
	if err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.UpdateProject(ctx, p)
	}); err != nil {
		t.Fatalf("update project: %v", err)
	}

	got, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.CurrentFunding != math.MaxUint64 || got.State != models.StateActiveFunded {
		t.Fatalf("project = %+v", got)
	}

	missing := project("missing", 0)
	err = store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.UpdateProject(ctx, missing)
	})
	if !errors.Is(err, models.ErrProjectNotFound) {
		t.Fatalf("update missing error = %v, want %v", err, models.ErrProjectNotFound)
	}
}

func testContributions(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()
	create(t, store, project("p1", 0))
	create(t, store, project("p2", time.Second))

	first := models.NewContribution("p1", "bob", 1_500_000, createdAt.Add(time.Minute))
	second := models.NewContribution("p2", "bob", 2_000_000, createdAt.Add(2*time.Minute))
	third := models.NewContribution("p1", "carol", 3_000_000, createdAt.Add(3*time.Minute))

	for _, c := range []models.Contribution{first, second, third} {
		if err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
			return tx.CreateContribution(ctx, c)
		}); err != nil {
			t.Fatalf("create contribution %s: %v", c.Key(), err)
		}
	}

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.CreateContribution(ctx, models.NewContribution("p1", "bob", 1, createdAt))
	})
	if !errors.Is(err, models.ErrDuplicateContribution) {
		t.Fatalf("duplicate error = %v, want %v", err, models.ErrDuplicateContribution)
	}

	got, err := store.GetContribution(ctx, first.Key())
	if err != nil {
		t.Fatalf("get contribution: %v", err)
	}
	if got != first {
		t.Fatalf("contribution = %+v, want %+v", got, first)
	}
	if _, err := store.GetContribution(ctx, models.ContributionKey{ProjectID: "p2", Funder: "carol"}); !errors.Is(err, models.ErrContributionNotFound) {
		t.Fatalf("missing contribution error = %v, want %v", err, models.ErrContributionNotFound)
	}

	byProject, err := store.ListContributionsByProject(ctx, "p1")
	if err != nil {
		t.Fatalf("list by project: %v", err)
	}
	if len(byProject) != 2 || byProject[0] != first || byProject[1] != third {
		t.Fatalf("by project = %+v", byProject)
	}

	byFunder, err := store.ListContributionsByFunder(ctx, "bob")
	if err != nil {
		t.Fatalf("list by funder: %v", err)
	}
	if len(byFunder) != 2 || byFunder[0] != first || byFunder[1] != second {
		t.Fatalf("by funder = %+v", byFunder)
	}
}

func testRollback(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()
	create(t, store, project("p1", 0))
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		if _, err := tx.Credit(ctx, "bob", 100); err != nil {
			return err
		}
		if err := tx.Transfer(ctx, "bob", models.ProjectAccount("p1"), 60); err != nil {
			return err
		}
		p, err := tx.GetProject(ctx, "p1")
		if err != nil {
			return err
		}
		if p, err = p.Fund(60); err != nil {
			return err
		}
		if err := tx.UpdateProject(ctx, p); err != nil {
			return err
		}
		if err := tx.CreateContribution(ctx, models.NewContribution("p1", "bob", 60, createdAt)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}

	p, err := store.GetProject(ctx, "p1")
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if p.CurrentFunding != 0 {
		t.Fatalf("current funding = %d, want 0", p.CurrentFunding)
	}
	for _, owner := range []string{"bob", models.ProjectAccount("p1")} {
		if got, err := store.Balance(ctx, owner); err != nil || got != 0 {
			t.Fatalf("balance %s = %d, %v; want 0", owner, got, err)
		}
	}
	if _, err := store.GetContribution(ctx, models.ContributionKey{ProjectID: "p1", Funder: "bob"}); !errors.Is(err, models.ErrContributionNotFound) {
		t.Fatalf("contribution error = %v, want %v", err, models.ErrContributionNotFound)
	}
}

func testBalances(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()

	if got, err := store.Balance(ctx, "nobody"); err != nil || got != 0 {
		t.Fatalf("unknown balance = %d, %v; want 0", got, err)
	}

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		balance, err := tx.Credit(ctx, "alice", math.MaxUint64-10)
		if err != nil {
			return err
		}
		if balance != math.MaxUint64-10 {
			t.Errorf("credit returned %d", balance)
		}
		return tx.Transfer(ctx, "alice", "bob", 25)
	})
	if err != nil {
		t.Fatalf("seed balances: %v", err)
	}

	if got, _ := store.Balance(ctx, "alice"); got != math.MaxUint64-35 {
		t.Fatalf("alice = %d, want %d", got, uint64(math.MaxUint64-35))
	}
	if got, _ := store.Balance(ctx, "bob"); got != 25 {
		t.Fatalf("bob = %d, want 25", got)
	}

	err = store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.Transfer(ctx, "bob", "carol", 26)
	})
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("overdraw error = %v, want %v", err, models.ErrInsufficientFunds)
	}

	err = store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		_, err := tx.Credit(ctx, "alice", 100)
		return err
	})
	if !errors.Is(err, models.ErrBalanceOverflow) {
		t.Fatalf("credit overflow error = %v, want %v", err, models.ErrBalanceOverflow)
	}
	if got, _ := store.Balance(ctx, "alice"); got != math.MaxUint64-35 {
		t.Fatalf("alice changed after failed credit: %d", got)
	}

	// The supply now has 10 units of headroom, whoever is credited.
	err = store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		_, err := tx.Credit(ctx, "carol", 11)
		return err
	})
	if !errors.Is(err, models.ErrBalanceOverflow) {
		t.Fatalf("supply overflow error = %v, want %v", err, models.ErrBalanceOverflow)
	}
	err = store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		_, err := tx.Credit(ctx, "carol", 10)
		return err
	})
	if err != nil {
		t.Fatalf("credit within supply: %v", err)
	}

	// Everything in one account is still representable.
	err = store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.Transfer(ctx, "alice", "bob", math.MaxUint64-35); err != nil {
			return err
		}
		return tx.Transfer(ctx, "carol", "bob", 10)
	})
	if err != nil {
		t.Fatalf("transfer everything: %v", err)
	}
	if got, _ := store.Balance(ctx, "bob"); got != math.MaxUint64 {
		t.Fatalf("bob = %d, want %d", got, uint64(math.MaxUint64))
	}
}

func testConcurrentCredits(t *testing.T, store interfaces.LedgerStore) {
	ctx := context.Background()

	const writers = 8
	errs := make(chan error, writers)
	for range writers {
		go func() {
			errs <- store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
				_, err := tx.Credit(ctx, "dana", 5)
				return err
			})
		}()
	}
	for range writers {
		if err := <-errs; err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	if got, err := store.Balance(ctx, "dana"); err != nil || got != writers*5 {
		t.Fatalf("dana = %d, %v; want %d", got, err, writers*5)
	}
}
