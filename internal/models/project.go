package models

import (
	"math"
	"time"
)

// FundingState is the lifecycle position of a project.
type FundingState string

const (
	StateActiveUnfunded FundingState = "active_unfunded"
	StateActiveFunded   FundingState = "active_funded"
	StateClosed         FundingState = "closed"
)

// Valid reports whether s is one of the known states.
func (s FundingState) Valid() bool {
	switch s {
	case StateActiveUnfunded, StateActiveFunded, StateClosed:
		return true
	}
	return false
}

// Project is a research funding campaign owned by its creator.
// Amounts are in base units of the custody system.
type Project struct {
	ID              string       // unique identifier
	Title           string       // immutable after creation
	AbstractText    string       // immutable after creation
	Category        string       // immutable after creation
	FundingGoal     uint64       // target in base units
	MinContribution uint64       // smallest accepted contribution
	CurrentFunding  uint64       // sum of accepted contributions
	Creator         string       // identity allowed to withdraw or close
	State           FundingState // replaces the active / fully-funded flag pair
	CreatedAt       time.Time
}

// NewProject returns an active, unfunded project. The goal and minimum are
// not checked against each other.
func NewProject(id, title, abstractText, category string, fundingGoal, minContribution uint64, creator string, now time.Time) Project {
	return Project{
		ID:              id,
		Title:           title,
		AbstractText:    abstractText,
		Category:        category,
		FundingGoal:     fundingGoal,
		MinContribution: minContribution,
		CurrentFunding:  0,
		Creator:         creator,
		State:           StateActiveUnfunded,
		CreatedAt:       now,
	}
}

// IsActive reports whether the project still accepts funding.
func (p Project) IsActive() bool {
	return p.State != StateClosed
}

// IsFullyFunded reports whether the goal has been reached. Once true it stays true.
func (p Project) IsFullyFunded() bool {
	return p.State == StateActiveFunded
}

// CustodyAccount is the account holding the project's funds.
func (p Project) CustodyAccount() string {
	return ProjectAccount(p.ID)
}

// ProjectAccount returns the custody account name for a project id.
func ProjectAccount(projectID string) string {
	return "project:" + projectID
}

// Fund returns the project after accepting amount. The receiver is never
// modified, so a failed call leaves no trace.
func (p Project) Fund(amount uint64) (Project, error) {
	if !p.IsActive() {
		return p, ErrProjectInactive
	}
	if amount < p.MinContribution {
		return p, ErrContributionTooSmall
	}
	if amount > math.MaxUint64-p.CurrentFunding {
		return p, ErrFundingOverflow
	}

	next := p
	next.CurrentFunding += amount
	if next.CurrentFunding >= next.FundingGoal {
		next.State = StateActiveFunded
	}
	return next, nil
}

// AuthorizeWithdraw checks that caller may sweep the project's custody.
// Withdrawal does not change the project state.
func (p Project) AuthorizeWithdraw(caller string) error {
	if caller != p.Creator {
		return ErrUnauthorized
	}
	if !p.IsFullyFunded() {
		return ErrProjectNotFullyFunded
	}
	return nil
}

// Close returns the project in the closed state. Funds already in custody
// are left where they are.
func (p Project) Close(caller string) (Project, error) {
	if caller != p.Creator {
		return p, ErrUnauthorized
	}
	if p.IsFullyFunded() {
		return p, ErrProjectFullyFunded
	}

	next := p
	next.State = StateClosed
	return next, nil
}
