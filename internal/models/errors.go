package models

import "errors"

// Ledger rule violations.
var (
	ErrProjectInactive       = errors.New("project is not active")
	ErrContributionTooSmall  = errors.New("contribution amount is below minimum")
	ErrFundingOverflow       = errors.New("arithmetic overflow during funding calculation")
	ErrUnauthorized          = errors.New("unauthorized operation")
	ErrProjectNotFullyFunded = errors.New("project is not fully funded yet")
	ErrProjectFullyFunded    = errors.New("cannot close fully funded project")
	ErrDuplicateContribution = errors.New("funder already contributed to this project")
)

// Storage and custody failures.
var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrContributionNotFound = errors.New("contribution not found")
	ErrProjectExists        = errors.New("project already exists")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrBalanceOverflow      = errors.New("balance would overflow")
)
