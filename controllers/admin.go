package controllers

import (
	"context"
	"net/http"

	"go-bakery/accounting"
	"go-bakery/utils"

	"go.uber.org/zap"
)

// AdminController handles the dashboard login and accounting views
type AdminController struct {
	PasswordHash string
	Tokens       *utils.TokenService
	Revenue      *accounting.RevenueAggregator
	Logger       *zap.Logger
}

// NewAdminController creates a new AdminController
func NewAdminController(passwordHash string, tokens *utils.TokenService, revenue *accounting.RevenueAggregator,
	logger *zap.Logger) *AdminController {
	return &AdminController{
		PasswordHash: passwordHash,
		Tokens:       tokens,
		Revenue:      revenue,
		Logger:       logger,
	}
}

// Login exchanges the shared dashboard password for a session token
func (ac *AdminController) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &creds); err != nil {
		handleError(w, ac.Logger, err)
		return
	}

	if ac.PasswordHash == "" || !utils.CheckPassword(ac.PasswordHash, creds.Password) {
		ac.Logger.Warn("admin login rejected")
		writeError(w, http.StatusUnauthorized, "Invalid password", false)
		return
	}

	token, err := ac.Tokens.GenerateJWT(utils.RoleAdmin)
	if err != nil {
		ac.Logger.Error("error generating token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error generating token", true)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// MonthlyReport returns the month's stats next to the previous month's
func (ac *AdminController) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonth(r)
	if err != nil {
		handleError(w, ac.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	report, err := ac.Revenue.Report(ctx, year, month)
	if err != nil {
		handleError(w, ac.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// YearlyReport returns the year's stats with a row for each month
func (ac *AdminController) YearlyReport(w http.ResponseWriter, r *http.Request) {
	year, _, err := yearMonth(r)
	if err != nil {
		handleError(w, ac.Logger, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	stats, err := ac.Revenue.YearlyStats(ctx, year)
	if err != nil {
		handleError(w, ac.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
