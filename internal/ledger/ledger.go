package ledger

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
	"github.com/sheikh-saqib/research-funding-ledger/internal/metrics"
	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
	"github.com/sheikh-saqib/research-funding-ledger/internal/models/events"
)

// Ledger runs the funding operations against a store.
// Operations on one project are serialized through a per-project mutex and
// each one commits as a single unit of work, so a custody sweep can never
// interleave with another call on the same project. The mutex covers the
// unit of work only; logging and publishing happen after it is released.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher // optional
	clock     interfaces.Clock
	logger    *zap.Logger
	newID     func() string

	locks  map[string]*projectLock // held or awaited locks only
	lockMu sync.Mutex              // protects locks
}

type projectLock struct {
	mu   sync.Mutex
	refs int // callers holding or waiting for mu
}

type Option func(*Ledger)

func WithPublisher(p interfaces.EventPublisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithClock(c interfaces.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithIDGenerator replaces the uuid project id source.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) { l.newID = fn }
}

// NewLedger creates a Ledger over store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		clock:  interfaces.SystemClock{},
		logger: zap.NewNop(),
		newID:  func() string { return uuid.New().String() },
		locks:  make(map[string]*projectLock),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// lockProject acquires the mutex for projectID. The entry is dropped once no
// caller holds or waits for it, so ids that are never reused cost nothing.
func (l *Ledger) lockProject(projectID string) (unlock func()) {
	l.lockMu.Lock()
	lock, ok := l.locks[projectID]
	if !ok {
		lock = &projectLock{}
		l.locks[projectID] = lock
	}
	lock.refs++
	l.lockMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		l.lockMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, projectID)
		}
		l.lockMu.Unlock()
	}
}

// withProjectLock runs fn while holding the project mutex.
func (l *Ledger) withProjectLock(projectID string, fn func() error) error {
	unlock := l.lockProject(projectID)
	defer unlock()
	return fn()
}

// CreateProjectInput holds the creator supplied campaign fields.
type CreateProjectInput struct {
	Title           string
	AbstractText    string
	Category        string
	FundingGoal     uint64
	MinContribution uint64
}

// CreateProject registers a new active, unfunded project owned by creator.
func (l *Ledger) CreateProject(ctx context.Context, creator string, in CreateProjectInput) (models.Project, error) {
	if !validIdentity(creator) {
		l.observe("create", models.ErrUnauthorized)
		return models.Project{}, models.ErrUnauthorized
	}

	project := models.NewProject(
		l.newID(),
		in.Title,
		in.AbstractText,
		in.Category,
		in.FundingGoal,
		in.MinContribution,
		creator,
		l.clock.Now(),
	)

	err := l.store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.CreateProject(ctx, project)
	})
	l.observe("create", err)
	if err != nil {
		return models.Project{}, err
	}

	l.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("creator", creator),
		zap.Uint64("funding_goal", project.FundingGoal),
		zap.Uint64("min_contribution", project.MinContribution),
	)
	l.publish(ctx, events.TopicProjectCreated, project.ID, events.ProjectCreated{
		ProjectID:   project.ID,
		Creator:     project.Creator,
		FundingGoal: project.FundingGoal,
		OccurredAt:  project.CreatedAt,
	})
	return project, nil
}

// Fund moves amount from the funder's custody into the project's custody,
// updates the funding total and records the contribution. Either all of it
// is committed or none of it is.
func (l *Ledger) Fund(ctx context.Context, projectID, funder string, amount uint64) (models.Project, models.Contribution, error) {
	if !validIdentity(funder) {
		l.observe("fund", models.ErrUnauthorized)
		return models.Project{}, models.Contribution{}, models.ErrUnauthorized
	}

	now := l.clock.Now()
	var (
		funded       models.Project
		contribution models.Contribution
		crossed      bool
	)
	err := l.withProjectLock(projectID, func() error {
		return l.store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
			project, err := tx.GetProject(ctx, projectID)
			if err != nil {
				return err
			}

			funded, err = project.Fund(amount)
			if err != nil {
				return err
			}
			crossed = !project.IsFullyFunded() && funded.IsFullyFunded()

			if err := tx.Transfer(ctx, funder, project.CustodyAccount(), amount); err != nil {
				return err
			}
			if err := tx.UpdateProject(ctx, funded); err != nil {
				return err
			}

			contribution = models.NewContribution(project.ID, funder, amount, now)
			return tx.CreateContribution(ctx, contribution)
		})
	})
	l.observe("fund", err)
	if err != nil {
		return models.Project{}, models.Contribution{}, err
	}

	metrics.FundedBaseUnits.Add(float64(amount))
	l.logger.Info("project funded",
		zap.String("project_id", projectID),
		zap.String("funder", funder),
		zap.Uint64("amount", amount),
		zap.Uint64("current_funding", funded.CurrentFunding),
	)
	if crossed {
		l.logger.Info("funding goal reached",
			zap.String("project_id", projectID),
			zap.Uint64("funding_goal", funded.FundingGoal),
		)
	}
	l.publish(ctx, events.TopicProjectFunded, projectID, events.ProjectFunded{
		ProjectID:  projectID,
		Funder:     funder,
		Amount:     amount,
		OccurredAt: now,
	})
	return funded, contribution, nil
}

// Withdraw sweeps the whole project custody balance to the creator and
// returns the amount moved. Repeat calls succeed and move nothing.
func (l *Ledger) Withdraw(ctx context.Context, projectID, caller string) (uint64, error) {
	var (
		amount  uint64
		project models.Project
	)
	err := l.withProjectLock(projectID, func() error {
		return l.store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
			var err error
			project, err = tx.GetProject(ctx, projectID)
			if err != nil {
				return err
			}
			if err := project.AuthorizeWithdraw(caller); err != nil {
				return err
			}

			amount, err = tx.Balance(ctx, project.CustodyAccount())
			if err != nil {
				return err
			}
			if amount == 0 {
				return nil
			}
			return tx.Transfer(ctx, project.CustodyAccount(), project.Creator, amount)
		})
	})
	l.observe("withdraw", err)
	if err != nil {
		return 0, err
	}

	metrics.WithdrawnBaseUnits.Add(float64(amount))
	l.logger.Info("funds withdrawn",
		zap.String("project_id", projectID),
		zap.String("recipient", project.Creator),
		zap.Uint64("amount", amount),
	)
	l.publish(ctx, events.TopicFundsWithdrawn, projectID, events.FundsWithdrawn{
		ProjectID:  projectID,
		Recipient:  project.Creator,
		Amount:     amount,
		OccurredAt: l.clock.Now(),
	})
	return amount, nil
}

// Close deactivates a project that has not reached its goal. Funds already
// held by the project stay in its custody account; no refund is made.
func (l *Ledger) Close(ctx context.Context, projectID, caller string) (models.Project, error) {
	var closed models.Project
	err := l.withProjectLock(projectID, func() error {
		return l.store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
			project, err := tx.GetProject(ctx, projectID)
			if err != nil {
				return err
			}
			closed, err = project.Close(caller)
			if err != nil {
				return err
			}
			return tx.UpdateProject(ctx, closed)
		})
	})
	l.observe("close", err)
	if err != nil {
		return models.Project{}, err
	}

	l.logger.Info("project closed",
		zap.String("project_id", projectID),
		zap.Uint64("held_funding", closed.CurrentFunding),
	)
	l.publish(ctx, events.TopicProjectClosed, projectID, events.ProjectClosed{
		ProjectID:  projectID,
		Creator:    closed.Creator,
		OccurredAt: l.clock.Now(),
	})
	return closed, nil
}

// Deposit credits owner's custody account from outside the ledger and
// returns the new balance.
func (l *Ledger) Deposit(ctx context.Context, owner string, amount uint64) (uint64, error) {
	if !validIdentity(owner) {
		l.observe("deposit", models.ErrUnauthorized)
		return 0, models.ErrUnauthorized
	}

	var balance uint64
	err := l.store.WithinTx(ctx, func(tx interfaces.LedgerTx) error {
		var err error
		balance, err = tx.Credit(ctx, owner, amount)
		return err
	})
	l.observe("deposit", err)
	if err != nil {
		return 0, err
	}
	l.logger.Debug("deposit credited", zap.String("owner", owner), zap.Uint64("amount", amount))
	return balance, nil
}

func (l *Ledger) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	return l.store.GetProject(ctx, projectID)
}

func (l *Ledger) ListProjects(ctx context.Context) ([]models.Project, error) {
	return l.store.ListProjects(ctx)
}

func (l *Ledger) GetContribution(ctx context.Context, projectID, funder string) (models.Contribution, error) {
	return l.store.GetContribution(ctx, models.ContributionKey{ProjectID: projectID, Funder: funder})
}

// ListContributions returns the contributions made to a project.
func (l *Ledger) ListContributions(ctx context.Context, projectID string) ([]models.Contribution, error) {
	if _, err := l.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return l.store.ListContributionsByProject(ctx, projectID)
}

// ListFunderContributions returns every contribution made by funder.
func (l *Ledger) ListFunderContributions(ctx context.Context, funder string) ([]models.Contribution, error) {
	return l.store.ListContributionsByFunder(ctx, funder)
}

// Balance returns the custody balance of an identity or project account.
func (l *Ledger) Balance(ctx context.Context, owner string) (uint64, error) {
	return l.store.Balance(ctx, owner)
}

// ProjectBalance returns the value currently held in a project's custody.
func (l *Ledger) ProjectBalance(ctx context.Context, projectID string) (uint64, error) {
	if _, err := l.store.GetProject(ctx, projectID); err != nil {
		return 0, err
	}
	return l.store.Balance(ctx, models.ProjectAccount(projectID))
}

func (l *Ledger) publish(ctx context.Context, topic, key string, event any) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, topic, key, event); err != nil {
		metrics.PublishFailures.WithLabelValues(topic).Inc()
		l.logger.Warn("failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (l *Ledger) observe(operation string, err error) {
	result := metrics.ResultOK
	switch {
	case err == nil:
	case isRejection(err):
		result = metrics.ResultRejected
	default:
		result = metrics.ResultError
		l.logger.Error("ledger operation failed", zap.String("operation", operation), zap.Error(err))
	}
	metrics.OperationsTotal.WithLabelValues(operation, result).Inc()
}

var rejections = []error{
	models.ErrProjectInactive,
	models.ErrContributionTooSmall,
	models.ErrFundingOverflow,
	models.ErrUnauthorized,
	models.ErrProjectNotFullyFunded,
	models.ErrProjectFullyFunded,
	models.ErrDuplicateContribution,
	models.ErrProjectNotFound,
	models.ErrInsufficientFunds,
	models.ErrBalanceOverflow,
}

// isRejection reports whether err is a rule violation rather than an
// infrastructure failure.
func isRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validIdentity rejects empty identities and names in the project account space.
func validIdentity(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.HasPrefix(id, models.ProjectAccount(""))
}
