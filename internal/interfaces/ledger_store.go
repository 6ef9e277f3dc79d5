package interfaces

import (
	"context"

	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
)

// LedgerStore persists projects, contributions and custody balances.
// Reads outside WithinTx observe committed state only.
type LedgerStore interface {
	// WithinTx runs fn as one unit of work. If fn returns an error nothing it
	// wrote is kept.
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error

	GetProject(ctx context.Context, id string) (models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetContribution(ctx context.Context, key models.ContributionKey) (models.Contribution, error)
	ListContributionsByProject(ctx context.Context, projectID string) ([]models.Contribution, error)
	ListContributionsByFunder(ctx context.Context, funder string) ([]models.Contribution, error)
	Balance(ctx context.Context, owner string) (uint64, error)
}

// LedgerTx is the write side of a unit of work.
type LedgerTx interface {
	CreateProject(ctx context.Context, project models.Project) error
	// GetProject locks the project row for the rest of the unit of work
	// where the store supports it.
	GetProject(ctx context.Context, id string) (models.Project, error)
	UpdateProject(ctx context.Context, project models.Project) error

	// CreateContribution fails with models.ErrDuplicateContribution when the
	// key is taken.
	CreateContribution(ctx context.Context, contribution models.Contribution) error

	Balance(ctx context.Context, owner string) (uint64, error)
	// Credit adds value from outside the ledger. It fails with
	// models.ErrBalanceOverflow when the sum of all balances would leave the
	// uint64 range, so a Transfer can never overflow its recipient.
	Credit(ctx context.Context, owner string, amount uint64) (uint64, error)
	// Transfer moves amount between custody accounts, failing with
	// models.ErrInsufficientFunds or models.ErrBalanceOverflow.
	Transfer(ctx context.Context, from, to string, amount uint64) error
}
