package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go-bakery/models"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// requestTimeout bounds the store work of one request.
const requestTimeout = 10 * time.Second

type errorResponse struct {
	Error string `json:"error"`
	Retry bool   `json:"retry"`
}

type errorInfo struct {
	err     error
	status  int
	message string
	retry   bool
}

// errorStatusTable is matched in order with errors.Is; wrapped archive failures
// must be seen before the store failure they wrap.
var errorStatusTable = []errorInfo{
	{models.ErrPartialArchive, http.StatusServiceUnavailable, "The order could not be archived. Nothing was changed, please try again.", true},
	{models.ErrStoreUnavailable, http.StatusServiceUnavailable, "The service is temporarily unavailable. Please try again.", true},
	{models.ErrNotFound, http.StatusNotFound, "Not found", false},
	{models.ErrAlreadyExists, http.StatusConflict, "Already exists", false},
	{models.ErrDateRequired, http.StatusBadRequest, "Please choose a desired date.", false},
	{models.ErrInvalidDate, http.StatusBadRequest, "The date is not valid.", false},
	{models.ErrInvalidReview, http.StatusBadRequest, "The review could not be accepted.", false},
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string, retry bool) {
	writeJSON(w, status, errorResponse{Error: msg, Retry: retry})
}

// handleError maps err to a status and a non-technical message. Unmapped errors
// are logged and answered with 500.
func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr models.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error(), false)
		return
	}

	for _, info := range errorStatusTable {
		if errors.Is(err, info.err) {
			if info.retry {
				logger.Warn("request failed", zap.Error(err))
			}
			writeError(w, info.status, info.message, info.retry)
			return
		}
	}

	logger.Error("error processing request", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Something went wrong. Please try again later.", true)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("body", "Invalid request body")
	}
	return nil
}

// yearMonth reads the {year} and optional {month} path variables.
func yearMonth(r *http.Request) (int, time.Month, error) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, models.NewValidationError("year", "Invalid year")
	}
	raw, ok := vars["month"]
	if !ok {
		return year, 0, nil
	}
	month, err := strconv.Atoi(raw)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, models.NewValidationError("month", "Invalid month")
	}
	return year, time.Month(month), nil
}
