package memory

import (
	"context"
	"math"
	"sync"

	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// A transaction works on a copy of the state and replaces the committed
// state only when it succeeds.
type MemoryLedgerStore struct {
	mu    sync.RWMutex // held for writing for the whole of a transaction
	state *state
}

type state struct {
	projects      map[string]models.Project
	projectOrder  []string // insertion order for listing
	contributions map[models.ContributionKey]models.Contribution
	contribOrder  []models.ContributionKey
	balances      map[string]uint64
	supply        uint64 // sum of balances
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		state: &state{
			projects:      make(map[string]models.Project),
			contributions: make(map[models.ContributionKey]models.Contribution),
			balances:      make(map[string]uint64),
		},
	}
}

func (s *state) clone() *state {
	c := &state{
		projects:      make(map[string]models.Project, len(s.projects)),
		projectOrder:  append([]string(nil), s.projectOrder...),
		contributions: make(map[models.ContributionKey]models.Contribution, len(s.contributions)),
		contribOrder:  append([]models.ContributionKey(nil), s.contribOrder...),
		balances:      make(map[string]uint64, len(s.balances)),
		supply:        s.supply,
	}
	for k, v := range s.projects {
		c.projects[k] = v
	}
	for k, v := range s.contributions {
		c.contributions[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = v
	}
	return c
}

// WithinTx runs fn against a working copy and commits it if fn succeeds.
func (m *MemoryLedgerStore) WithinTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.state.clone()
	if err := fn(&memoryTx{state: working}); err != nil {
		return err
	}
	m.state = working
	return nil
}

func (m *MemoryLedgerStore) GetProject(ctx context.Context, id string) (models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.getProject(id)
}

func (m *MemoryLedgerStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Project, 0, len(m.state.projectOrder))
	for _, id := range m.state.projectOrder {
		result = append(result, m.state.projects[id])
	}
	return result, nil
}

func (m *MemoryLedgerStore) GetContribution(ctx context.Context, key models.ContributionKey) (models.Contribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.state.contributions[key]
	if !ok {
		return models.Contribution{}, models.ErrContributionNotFound
	}
	return c, nil
}

func (m *MemoryLedgerStore) ListContributionsByProject(ctx context.Context, projectID string) ([]models.Contribution, error) {
	return m.filterContributions(func(k models.ContributionKey) bool { return k.ProjectID == projectID }), nil
}

func (m *MemoryLedgerStore) ListContributionsByFunder(ctx context.Context, funder string) ([]models.Contribution, error) {
	return m.filterContributions(func(k models.ContributionKey) bool { return k.Funder == funder }), nil
}

func (m *MemoryLedgerStore) filterContributions(match func(models.ContributionKey) bool) []models.Contribution {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Contribution
	for _, key := range m.state.contribOrder {
		if match(key) {
			result = append(result, m.state.contributions[key])
		}
	}
	return result
}

func (m *MemoryLedgerStore) Balance(ctx context.Context, owner string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.balances[owner], nil
}

func (s *state) getProject(id string) (models.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, models.ErrProjectNotFound
	}
	return p, nil
}

// memoryTx writes to a working copy owned by a single WithinTx call.
type memoryTx struct {
	state *state
}

func (t *memoryTx) CreateProject(ctx context.Context, project models.Project) error {
	if _, exists := t.state.projects[project.ID]; exists {
		return models.ErrProjectExists
	}
	t.state.projects[project.ID] = project
	t.state.projectOrder = append(t.state.projectOrder, project.ID)
	return nil
}

func (t *memoryTx) GetProject(ctx context.Context, id string) (models.Project, error) {
	return t.state.getProject(id)
}

func (t *memoryTx) UpdateProject(ctx context.Context, project models.Project) error {
	if _, exists := t.state.projects[project.ID]; !exists {
		return models.ErrProjectNotFound
	}
	t.state.projects[project.ID] = project
	return nil
}

func (t *memoryTx) CreateContribution(ctx context.Context, contribution models.Contribution) error {
	key := contribution.Key()
	if _, exists := t.state.contributions[key]; exists {
		return models.ErrDuplicateContribution
	}
	t.state.contributions[key] = contribution
	t.state.contribOrder = append(t.state.contribOrder, key)
	return nil
}

func (t *memoryTx) Balance(ctx context.Context, owner string) (uint64, error) {
	return t.state.balances[owner], nil
}

// Credit adds new value to owner. The supply bound keeps every later
// transfer free of overflow.
func (t *memoryTx) Credit(ctx context.Context, owner string, amount uint64) (uint64, error) {
	current := t.state.balances[owner]
	if amount > math.MaxUint64-t.state.supply {
		return current, models.ErrBalanceOverflow
	}
	t.state.supply += amount
	t.state.balances[owner] = current + amount
	return current + amount, nil
}

func (t *memoryTx) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if t.state.balances[from] < amount {
		return models.ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	if amount > math.MaxUint64-t.state.balances[to] {
		return models.ErrBalanceOverflow
	}
	t.state.balances[from] -= amount
	t.state.balances[to] += amount
	return nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
