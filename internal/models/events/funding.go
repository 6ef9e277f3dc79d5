package events

import "time"

// Topic names, appended to the configured prefix by publishers.
const (
	TopicProjectCreated = "project_created"
	TopicProjectFunded  = "project_funded"
	TopicFundsWithdrawn = "funds_withdrawn"
	TopicProjectClosed  = "project_closed"
)

type ProjectCreated struct {
	ProjectID   string    `json:"project_id"`
	Creator     string    `json:"creator"`
	FundingGoal uint64    `json:"funding_goal"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type ProjectFunded struct {
	ProjectID  string    `json:"project_id"`
	Funder     string    `json:"funder"`
	Amount     uint64    `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

// FundsWithdrawn carries the swept balance, which is zero on repeat withdrawals.
type FundsWithdrawn struct {
	ProjectID  string    `json:"project_id"`
	Recipient  string    `json:"recipient"`
	Amount     uint64    `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ProjectClosed struct {
	ProjectID  string    `json:"project_id"`
	Creator    string    `json:"creator"`
	OccurredAt time.Time `json:"occurred_at"`
}
