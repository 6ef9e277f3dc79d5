// Package sqlstore implements interfaces.LedgerStore over database/sql. The
// postgres and sqlite packages supply the driver, schema and dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/research-funding-ledger/internal/interfaces"
	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
)

// Dialect captures what differs between SQL engines.
type Dialect struct {
	Name string
	// NumberedParams rewrites ? placeholders to $1, $2, ...
	NumberedParams bool
	// LockClause is appended to project, balance and supply reads inside a
	// transaction.
	LockClause string
	// IsUniqueViolation reports primary key or unique constraint failures.
	IsUniqueViolation func(error) bool
}

// Store persists ledger state in a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. The schema must already be applied.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
	}
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithinTx runs fn inside one database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) (err error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = dbTx.Rollback()
		}
	}()

	if err = fn(&sqlTx{store: s, q: dbTx}); err != nil {
		return err
	}
	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const projectColumns = `id, title, abstract_text, category, funding_goal, min_contribution,
	current_funding, creator, state, created_at`

func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	return s.getProject(ctx, s.db, id, false)
}

func (s *Store) getProject(ctx context.Context, q queryer, id string, lock bool) (models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	if lock {
		query += s.dialect.LockClause
	}

	project, err := scanProject(q.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, models.ErrProjectNotFound
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func (s *Store) GetContribution(ctx context.Context, key models.ContributionKey) (models.Contribution, error) {
	query := s.rebind(`SELECT project_id, funder, amount, contributed_at
		FROM contributions WHERE project_id = ? AND funder = ?`)

	c, err := scanContribution(s.db.QueryRowContext(ctx, query, key.ProjectID, key.Funder))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Contribution{}, models.ErrContributionNotFound
	}
	if err != nil {
		return models.Contribution{}, fmt.Errorf("failed to get contribution: %w", err)
	}
	return c, nil
}

func (s *Store) ListContributionsByProject(ctx context.Context, projectID string) ([]models.Contribution, error) {
	return s.listContributions(ctx, `project_id = ?`, projectID)
}

func (s *Store) ListContributionsByFunder(ctx context.Context, funder string) ([]models.Contribution, error) {
	return s.listContributions(ctx, `funder = ?`, funder)
}

func (s *Store) listContributions(ctx context.Context, where string, arg string) ([]models.Contribution, error) {
	query := s.rebind(`SELECT project_id, funder, amount, contributed_at
		FROM contributions WHERE ` + where + ` ORDER BY contributed_at ASC, project_id ASC, funder ASC`)

	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []models.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contribution: %w", err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributions: %w", err)
	}
	return contributions, nil
}

func (s *Store) Balance(ctx context.Context, owner string) (uint64, error) {
	return s.balance(ctx, s.db, owner, false)
}

func (s *Store) balance(ctx context.Context, q queryer, owner string, lock bool) (uint64, error) {
	query := `SELECT amount FROM custody_balances WHERE owner = ?`
	if lock {
		query += s.dialect.LockClause
	}

	var amount decimal.Decimal
	err := q.QueryRowContext(ctx, s.rebind(query), owner).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return toUint64(amount)
}

// sqlTx implements interfaces.LedgerTx on an open transaction.
type sqlTx struct {
	store *Store
	q     queryer
}

func (t *sqlTx) CreateProject(ctx context.Context, p models.Project) error {
	query := t.store.rebind(`INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := t.q.ExecContext(ctx, query,
		p.ID,
		p.Title,
		p.AbstractText,
		p.Category,
		fromUint64(p.FundingGoal),
		fromUint64(p.MinContribution),
		fromUint64(p.CurrentFunding),
		p.Creator,
		string(p.State),
		toMillis(p.CreatedAt),
	)
	if err != nil {
		if t.store.isUniqueViolation(err) {
			return models.ErrProjectExists
		}
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (t *sqlTx) GetProject(ctx context.Context, id string) (models.Project, error) {
	return t.store.getProject(ctx, t.q, id, true)
}

// UpdateProject writes the mutable columns of a project.
func (t *sqlTx) UpdateProject(ctx context.Context, p models.Project) error {
	query := t.store.rebind(`UPDATE projects SET current_funding = ?, state = ? WHERE id = ?`)

	res, err := t.q.ExecContext(ctx, query, fromUint64(p.CurrentFunding), string(p.State), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n == 0 {
		return models.ErrProjectNotFound
	}
	return nil
}

func (t *sqlTx) CreateContribution(ctx context.Context, c models.Contribution) error {
	query := t.store.rebind(`INSERT INTO contributions (project_id, funder, amount, contributed_at)
		VALUES (?, ?, ?, ?)`)

	_, err := t.q.ExecContext(ctx, query, c.ProjectID, c.Funder, fromUint64(c.Amount), toMillis(c.Timestamp))
	if err != nil {
		if t.store.isUniqueViolation(err) {
			return models.ErrDuplicateContribution
		}
		return fmt.Errorf("failed to save contribution: %w", err)
	}
	return nil
}

// Balance creates a zero row before the locked read, so concurrent writers
// of a new owner queue on the same row instead of both reading zero.
func (t *sqlTx) Balance(ctx context.Context, owner string) (uint64, error) {
	query := t.store.rebind(`INSERT INTO custody_balances (owner, amount) VALUES (?, ?)
		ON CONFLICT (owner) DO NOTHING`)
	if _, err := t.q.ExecContext(ctx, query, owner, fromUint64(0)); err != nil {
		return 0, fmt.Errorf("failed to prepare balance: %w", err)
	}
	return t.store.balance(ctx, t.q, owner, true)
}

// Credit grows the supply row first. Holding its lock serializes every
// credit, and the supply bound keeps transfers free of overflow.
func (t *sqlTx) Credit(ctx context.Context, owner string, amount uint64) (uint64, error) {
	supply, err := t.supply(ctx)
	if err != nil {
		return 0, err
	}
	if amount > ^uint64(0)-supply {
		return 0, models.ErrBalanceOverflow
	}

	current, err := t.Balance(ctx, owner)
	if err != nil {
		return 0, err
	}
	if err := t.setSupply(ctx, supply+amount); err != nil {
		return 0, err
	}
	if err := t.setBalance(ctx, owner, current+amount); err != nil {
		return 0, err
	}
	return current + amount, nil
}

func (t *sqlTx) supply(ctx context.Context) (uint64, error) {
	query := t.store.rebind(`SELECT amount FROM custody_supply WHERE id = 1` + t.store.dialect.LockClause)

	var amount decimal.Decimal
	if err := t.q.QueryRowContext(ctx, query).Scan(&amount); err != nil {
		return 0, fmt.Errorf("failed to read supply: %w", err)
	}
	return toUint64(amount)
}

func (t *sqlTx) setSupply(ctx context.Context, amount uint64) error {
	query := t.store.rebind(`UPDATE custody_supply SET amount = ? WHERE id = 1`)

	if _, err := t.q.ExecContext(ctx, query, fromUint64(amount)); err != nil {
		return fmt.Errorf("failed to write supply: %w", err)
	}
	return nil
}

func (t *sqlTx) Transfer(ctx context.Context, from, to string, amount uint64) error {
	fromBalance, err := t.Balance(ctx, from)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return models.ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	toBalance, err := t.Balance(ctx, to)
	if err != nil {
		return err
	}
	if amount > ^uint64(0)-toBalance {
		return models.ErrBalanceOverflow
	}

	if err := t.setBalance(ctx, from, fromBalance-amount); err != nil {
		return err
	}
	return t.setBalance(ctx, to, toBalance+amount)
}

func (t *sqlTx) setBalance(ctx context.Context, owner string, amount uint64) error {
	query := t.store.rebind(`INSERT INTO custody_balances (owner, amount) VALUES (?, ?)
		ON CONFLICT (owner) DO UPDATE SET amount = excluded.amount`)

	if _, err := t.q.ExecContext(ctx, query, owner, fromUint64(amount)); err != nil {
		return fmt.Errorf("failed to write balance: %w", err)
	}
	return nil
}

func (s *Store) isUniqueViolation(err error) bool {
	return s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err)
}

// rebind converts ? placeholders for dialects with numbered parameters.
func (s *Store) rebind(query string) string {
	if !s.dialect.NumberedParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p                      models.Project
		goal, minimum, current decimal.Decimal
		state                  string
		createdAt              int64
	)
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.AbstractText,
		&p.Category,
		&goal,
		&minimum,
		&current,
		&p.Creator,
		&state,
		&createdAt,
	)
	if err != nil {
		return models.Project{}, err
	}

	if p.FundingGoal, err = toUint64(goal); err != nil {
		return models.Project{}, err
	}
	if p.MinContribution, err = toUint64(minimum); err != nil {
		return models.Project{}, err
	}
	if p.CurrentFunding, err = toUint64(current); err != nil {
		return models.Project{}, err
	}
	p.State = models.FundingState(state)
	if !p.State.Valid() {
		return models.Project{}, fmt.Errorf("unknown project state %q", state)
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

func scanContribution(row rowScanner) (models.Contribution, error) {
	var (
		c      models.Contribution
		amount decimal.Decimal
		at     int64
	)
	if err := row.Scan(&c.ProjectID, &c.Funder, &amount, &at); err != nil {
		return models.Contribution{}, err
	}
	var err error
	if c.Amount, err = toUint64(amount); err != nil {
		return models.Contribution{}, err
	}
	c.Timestamp = fromMillis(at)
	return c, nil
}

// Amounts are stored as decimals so the full uint64 range survives engines
// whose integer columns are signed.
func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func toUint64(d decimal.Decimal) (uint64, error) {
	if !d.IsInteger() || d.Sign() < 0 {
		return 0, fmt.Errorf("stored amount %s is not a base unit count", d.String())
	}
	b := d.BigInt()
	if !b.IsUint64() {
		return 0, fmt.Errorf("stored amount %s exceeds 64 bits", d.String())
	}
	return b.Uint64(), nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

var _ interfaces.LedgerStore = (*Store)(nil)
