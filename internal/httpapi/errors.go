package httpapi

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/Noble200/nose-sub001/internal/domain"
	"github.com/Noble200/nose-sub001/internal/store"
)

var errTooManyRequests = errors.New("too many requests")

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrMissingWarehouse, http.StatusBadRequest, "missing_warehouse"},
	{domain.ErrMissingDate, http.StatusBadRequest, "missing_date"},
	{domain.ErrInvalidDate, http.StatusBadRequest, "invalid_date"},
	{domain.ErrEmptySelection, http.StatusBadRequest, "empty_selection"},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{domain.ErrPurchaseNotFound, http.StatusNotFound, "purchase_not_found"},
	{domain.ErrDeliveryNotFound, http.StatusNotFound, "delivery_not_found"},
	{domain.ErrExpenseNotFound, http.StatusNotFound, "expense_not_found"},
	{domain.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrPurchaseNotDeliverable, http.StatusConflict, "purchase_not_deliverable"},
	{store.ErrConflict, http.StatusServiceUnavailable, "transaction_conflict"},
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
}

// classify maps a service error to its HTTP status and stable code.
func classify(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, code, err)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	// 5xx details stay in the log.
	msg := err.Error()
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Str("code", code).Msg("request failed")
		msg = http.StatusText(status)
		if status == http.StatusServiceUnavailable {
			msg = "concurrent update, please retry"
		}
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}
