package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/research-funding-ledger/internal/models"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var ledgerErrors = []errorMapping{
	{models.ErrProjectNotFound, http.StatusNotFound, "project_not_found"},
	{models.ErrContributionNotFound, http.StatusNotFound, "contribution_not_found"},
	{models.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{models.ErrProjectInactive, http.StatusConflict, "project_inactive"},
	{models.ErrProjectNotFullyFunded, http.StatusConflict, "project_not_fully_funded"},
	{models.ErrProjectFullyFunded, http.StatusConflict, "project_fully_funded"},
	{models.ErrDuplicateContribution, http.StatusConflict, "duplicate_contribution"},
	{models.ErrProjectExists, http.StatusConflict, "project_exists"},
	{models.ErrContributionTooSmall, http.StatusUnprocessableEntity, "contribution_too_small"},
	{models.ErrFundingOverflow, http.StatusUnprocessableEntity, "funding_overflow"},
	{models.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{models.ErrBalanceOverflow, http.StatusUnprocessableEntity, "balance_overflow"},
}

// sendLedgerError maps ledger errors to a status and a stable code.
func (s *Server) sendLedgerError(w http.ResponseWriter, err error) {
	for _, m := range ledgerErrors {
		if errors.Is(err, m.err) {
			s.sendError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error("request failed", zap.Error(err))
	s.sendError(w, http.StatusInternalServerError, "internal", "internal error")
}
