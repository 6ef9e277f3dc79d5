package memory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
	"github.com/sheikh-saqib/research-funding-ledger/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) interfaces.LedgerStore {
		return NewMemoryLedgerStore()
	})
}

func testProject(id string) models.Project {
	return models.NewProject(id, "title", "abstract", "physics", 100, 1, "creator",
		time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC))
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.CreateProject(ctx, testProject("p1")); err != nil {
			return err
		}
		if _, err := tx.Credit(ctx, "alice", 50); err != nil {
			return err
		}
		return tx.Transfer(ctx, "alice", models.ProjectAccount("p1"), 20)
	})
	if err != nil {
		t.Fatalf("within tx: %v", err)
	}

	if _, err := store.GetProject(ctx, "p1"); err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got, _ := store.Balance(ctx, "alice"); got != 30 {
		t.Fatalf("alice balance = %d, want 30", got)
	}
	if got, _ := store.Balance(ctx, models.ProjectAccount("p1")); got != 20 {
		t.Fatalf("project balance = %d, want 20", got)
	}
}

func TestWithinTxDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.CreateProject(ctx, testProject("p1")); err != nil {
			return err
		}
		if _, err := tx.Credit(ctx, "alice", 50); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}

	if _, err := store.GetProject(ctx, "p1"); !errors.Is(err, models.ErrProjectNotFound) {
		t.Fatalf("get project error = %v, want %v", err, models.ErrProjectNotFound)
	}
	if got, _ := store.Balance(ctx, "alice"); got != 0 {
		t.Fatalf("alice balance = %d, want 0", got)
	}
	projects, _ := store.ListProjects(ctx)
	if len(projects) != 0 {
		t.Fatalf("projects = %d, want 0", len(projects))
	}
}

func TestWithinTxHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewMemoryLedgerStore().WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want %v", err, context.Canceled)
	}
	if called {
		t.Fatal("fn ran on a cancelled context")
	}
}

func TestCreateProjectRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	create := func(tx interfaces.LedgerTx) error { return tx.CreateProject(ctx, testProject("p1")) }

	if err := store.WithinTx(ctx, create); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := store.WithinTx(ctx, create); !errors.Is(err, models.ErrProjectExists) {
		t.Fatalf("second create error = %v, want %v", err, models.ErrProjectExists)
	}
}

func TestContributionsAreUniquePerProjectAndFunder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()
	at := time.Unix(1_700_000_000, 0).UTC()

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.CreateContribution(ctx, models.NewContribution("p1", "bob", 10, at)); err != nil {
			return err
		}
		return tx.CreateContribution(ctx, models.NewContribution("p2", "bob", 20, at))
	})
	if err != nil {
		t.Fatalf("create contributions: %v", err)
	}

	err = store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.CreateContribution(ctx, models.NewContribution("p1", "bob", 99, at))
	})
	if !errors.Is(err, models.ErrDuplicateContribution) {
		t.Fatalf("error = %v, want %v", err, models.ErrDuplicateContribution)
	}

	got, err := store.GetContribution(ctx, models.ContributionKey{ProjectID: "p1", Funder: "bob"})
	if err != nil {
		t.Fatalf("get contribution: %v", err)
	}
	if got.Amount != 10 {
		t.Fatalf("amount = %d, want 10", got.Amount)
	}

	byFunder, _ := store.ListContributionsByFunder(ctx, "bob")
	if len(byFunder) != 2 {
		t.Fatalf("by funder = %d, want 2", len(byFunder))
	}
	byProject, _ := store.ListContributionsByProject(ctx, "p2")
	if len(byProject) != 1 || byProject[0].Amount != 20 {
		t.Fatalf("by project = %+v", byProject)
	}
}

func TestTransferChecks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		if _, err := tx.Credit(ctx, "alice", 10); err != nil {
			return err
		}
		_, err := tx.Credit(ctx, "bob", 5)
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name     string
		from, to string
		amount   uint64
		want     error
	}{
		{name: "insufficient", from: "alice", to: "carol", amount: 11, want: models.ErrInsufficientFunds},
		{name: "to other", from: "bob", to: "carol", amount: 5},
		{name: "self transfer", from: "alice", to: "alice", amount: 10},
		{name: "zero", from: "carol", to: "alice", amount: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
				return tx.Transfer(ctx, tt.from, tt.to, tt.amount)
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if got, _ := store.Balance(ctx, "alice"); got != 10 {
				t.Fatalf("alice balance = %d, want 10", got)
			}
		})
	}
}

func TestCreditOverflow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		if _, err := tx.Credit(ctx, "alice", math.MaxUint64); err != nil {
			return err
		}
		_, err := tx.Credit(ctx, "alice", 1)
		return err
	})
	if !errors.Is(err, models.ErrBalanceOverflow) {
		t.Fatalf("error = %v, want %v", err, models.ErrBalanceOverflow)
	}
	if got, _ := store.Balance(ctx, "alice"); got != 0 {
		t.Fatalf("alice balance = %d, want 0 after rollback", got)
	}
}

func TestCreditBoundsTotalSupply(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	credit := func(owner string, amount uint64) error {
		return store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
			_, err := tx.Credit(ctx, owner, amount)
			return err
		})
	}

	if err := credit("alice", math.MaxUint64-1); err != nil {
		t.Fatalf("credit alice: %v", err)
	}
	if err := credit("bob", 2); !errors.Is(err, models.ErrBalanceOverflow) {
		t.Fatalf("credit bob error = %v, want %v", err, models.ErrBalanceOverflow)
	}
	if err := credit("bob", 1); err != nil {
		t.Fatalf("credit bob: %v", err)
	}

	// With the supply full, moving everything to one owner still fits.
	err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.Transfer(ctx, "alice", "bob", math.MaxUint64-1)
	})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got, _ := store.Balance(ctx, "bob"); got != math.MaxUint64 {
		t.Fatalf("bob balance = %d, want %d", got, uint64(math.MaxUint64))
	}
}

func TestListProjectsKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLedgerStore()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
			return tx.CreateProject(ctx, testProject(id))
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	projects, _ := store.ListProjects(ctx)
	var ids []string
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("ids = %v, want [c a b]", ids)
	}
}
