package models

import "time"

// ContributionKey addresses a contribution. A funder has at most one
// contribution per project.
type ContributionKey struct {
	ProjectID string
	Funder    string
}

func (k ContributionKey) String() string {
	return "contribution:" + k.ProjectID + ":" + k.Funder
}

// Contribution records one funder's deposit against one project.
type Contribution struct {
	ProjectID string    // project that received the funds
	Funder    string    // identity that sent the funds
	Amount    uint64    // in base units
	Timestamp time.Time // when the contribution was accepted
}

// NewContribution records a contribution.
func NewContribution(projectID, funder string, amount uint64, timestamp time.Time) Contribution {
	return Contribution{
		ProjectID: projectID,
		Funder:    funder,
		Amount:    amount,
		Timestamp: timestamp,
	}
}

// Key returns the composite identity of the contribution.
func (c Contribution) Key() ContributionKey {
	return ContributionKey{ProjectID: c.ProjectID, Funder: c.Funder}
}
