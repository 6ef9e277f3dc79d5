package api

import (
	"net/http"
	"time"

	"github.com/sheikh-saqib/research-funding-ledger/internal/ledger"
	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
)

type projectResponse struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	AbstractText         string    `json:"abstract_text"`
	Category             string    `json:"category"`
	FundingGoal          string    `json:"funding_goal"`
	FundingGoalUnits     uint64    `json:"funding_goal_units,string"`
	MinContribution      string    `json:"min_contribution"`
	MinContributionUnits uint64    `json:"min_contribution_units,string"`
	CurrentFunding       string    `json:"current_funding"`
	CurrentFundingUnits  uint64    `json:"current_funding_units,string"`
	Creator              string    `json:"creator"`
	State                string    `json:"state"`
	IsActive             bool      `json:"is_active"`
	IsFullyFunded        bool      `json:"is_fully_funded"`
	CreatedAt            time.Time `json:"created_at"`
}

type contributionResponse struct {
	ProjectID   string    `json:"project_id"`
	Funder      string    `json:"funder"`
	Amount      string    `json:"amount"`
	AmountUnits uint64    `json:"amount_units,string"`
	Timestamp   time.Time `json:"timestamp"`
}

type balanceResponse struct {
	Owner        string `json:"owner"`
	Balance      string `json:"balance"`
	BalanceUnits uint64 `json:"balance_units,string"`
}

type withdrawResponse struct {
	ProjectID   string `json:"project_id"`
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	AmountUnits uint64 `json:"amount_units,string"`
}

type fundResponse struct {
	Project      projectResponse      `json:"project"`
	Contribution contributionResponse `json:"contribution"`
}

func (s *Server) toProjectResponse(p models.Project) projectResponse {
	return projectResponse{
		ID:                   p.ID,
		Title:                p.Title,
		AbstractText:         p.AbstractText,
		Category:             p.Category,
		FundingGoal:          s.units.Format(p.FundingGoal),
		FundingGoalUnits:     p.FundingGoal,
		MinContribution:      s.units.Format(p.MinContribution),
		MinContributionUnits: p.MinContribution,
		CurrentFunding:       s.units.Format(p.CurrentFunding),
		CurrentFundingUnits:  p.CurrentFunding,
		Creator:              p.Creator,
		State:                string(p.State),
		IsActive:             p.IsActive(),
		IsFullyFunded:        p.IsFullyFunded(),
		CreatedAt:            p.CreatedAt,
	}
}

func (s *Server) toContributionResponse(c models.Contribution) contributionResponse {
	return contributionResponse{
		ProjectID:   c.ProjectID,
		Funder:      c.Funder,
		Amount:      s.units.Format(c.Amount),
		AmountUnits: c.Amount,
		Timestamp:   c.Timestamp,
	}
}

func (s *Server) toContributionResponses(cs []models.Contribution) []contributionResponse {
	result := make([]contributionResponse, 0, len(cs))
	for _, c := range cs {
		result = append(result, s.toContributionResponse(c))
	}
	return result
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title           string `json:"title"`
		AbstractText    string `json:"abstract_text"`
		Category        string `json:"category"`
		FundingGoal     string `json:"funding_goal"`
		MinContribution string `json:"min_contribution"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	goal, err := s.units.Parse(req.FundingGoal)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_amount", "funding_goal: "+err.Error())
		return
	}
	minimum, err := s.units.Parse(req.MinContribution)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_amount", "min_contribution: "+err.Error())
		return
	}

	project, err := s.ledger.CreateProject(r.Context(), callerFrom(r), ledger.CreateProjectInput{
		Title:           req.Title,
		AbstractText:    req.AbstractText,
		Category:        req.Category,
		FundingGoal:     goal,
		MinContribution: minimum,
	})
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, s.toProjectResponse(project))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.ledger.ListProjects(r.Context())
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	result := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		result = append(result, s.toProjectResponse(p))
	}
	s.sendJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.ledger.GetProject(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.toProjectResponse(project))
}

func (s *Server) handleFundProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	amount, err := s.units.Parse(req.Amount)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_amount", "amount: "+err.Error())
		return
	}

	project, contribution, err := s.ledger.Fund(r.Context(), r.PathValue("id"), callerFrom(r), amount)
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, fundResponse{
		Project:      s.toProjectResponse(project),
		Contribution: s.toContributionResponse(contribution),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	caller := callerFrom(r)

	amount, err := s.ledger.Withdraw(r.Context(), projectID, caller)
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, withdrawResponse{
		ProjectID:   projectID,
		Recipient:   caller,
		Amount:      s.units.Format(amount),
		AmountUnits: amount,
	})
}

func (s *Server) handleCloseProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.ledger.Close(r.Context(), r.PathValue("id"), callerFrom(r))
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.toProjectResponse(project))
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.ledger.ListContributions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.toContributionResponses(contributions))
}

func (s *Server) handleGetContribution(w http.ResponseWriter, r *http.Request) {
	contribution, err := s.ledger.GetContribution(r.Context(), r.PathValue("id"), r.PathValue("funder"))
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.toContributionResponse(contribution))
}

func (s *Server) handleListFunderContributions(w http.ResponseWriter, r *http.Request) {
	contributions, err := s.ledger.ListFunderContributions(r.Context(), r.PathValue("identity"))
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, s.toContributionResponses(contributions))
}

// handleDeposit credits an identity from the external value system.
// handleDeposit credits the caller's own custody account.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("identity")
	if owner != callerFrom(r) {
		s.sendError(w, http.StatusForbidden, "unauthorized", "deposits may only credit the caller")
		return
	}

	var req struct {
		Amount string `json:"amount"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	amount, err := s.units.Parse(req.Amount)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid_amount", "amount: "+err.Error())
		return
	}

	balance, err := s.ledger.Deposit(r.Context(), owner, amount)
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, balanceResponse{
		Owner:        owner,
		Balance:      s.units.Format(balance),
		BalanceUnits: balance,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner := r.PathValue("identity")
	balance, err := s.ledger.Balance(r.Context(), owner)
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, balanceResponse{
		Owner:        owner,
		Balance:      s.units.Format(balance),
		BalanceUnits: balance,
	})
}

func (s *Server) handleProjectBalance(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	balance, err := s.ledger.ProjectBalance(r.Context(), projectID)
	if err != nil {
		s.sendLedgerError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, balanceResponse{
		Owner:        models.ProjectAccount(projectID),
		Balance:      s.units.Format(balance),
		BalanceUnits: balance,
	})
}
