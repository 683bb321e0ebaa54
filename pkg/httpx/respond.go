// Package httpx maps core results and taxonomy errors onto HTTP responses.
// Every handler package uses it so the mapping stays in one place.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/retailops/orderdesk/pkg/apperror"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type stockErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Product   string `json:"product"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// WriteError translates a taxonomy error into a status code and JSON body.
// Errors outside the taxonomy are storage-level failures and surface as 500
// without leaking internals.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	kind := apperror.KindOf(err)
	switch kind {
	case apperror.KindValidation:
		WriteJSON(w, http.StatusUnprocessableEntity, errorBody{Error: string(kind), Message: err.Error()})
	case apperror.KindNotFound:
		WriteJSON(w, http.StatusNotFound, errorBody{Error: string(kind), Message: err.Error()})
	case apperror.KindBusinessRule:
		WriteJSON(w, http.StatusConflict, errorBody{Error: string(kind), Message: err.Error()})
	case apperror.KindInsufficientStock:
		var ise *apperror.InsufficientStockError
		if errors.As(err, &ise) {
			WriteJSON(w, http.StatusConflict, stockErrorBody{
				Error:     string(kind),
				Message:   err.Error(),
				Product:   ise.Product,
				Requested: ise.Requested,
				Available: ise.Available,
			})
			return
		}
		WriteJSON(w, http.StatusConflict, errorBody{Error: string(kind), Message: err.Error()})
	default:
		log.Error("internal error", "err", err)
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
	}
}
