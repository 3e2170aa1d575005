package api

import (
	"net/http"
	"strconv"

	"github.com/hackgods/vet-scheduling/internal/credit"
	"github.com/hackgods/vet-scheduling/internal/logger"
)

func getCreditsHandler(svc CreditService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		if _, err := selfOrAdmin(r, id); err != nil {
			handleError(w, r, log, err)
			return
		}

		balance, err := svc.CheckCredits(r.Context(), id)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, balance)
	}
}

// addCreditsHandler is the admin top-up; plan renewals go through the same call.
func addCreditsHandler(svc CreditService, v *RequestValidator, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		actor, err := actorFrom(r)
		if err != nil || !actor.IsAdmin() {
			handleError(w, r, log, errForbidden)
			return
		}

		var req AddCreditsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := v.Validate(req); err != nil {
			handleError(w, r, log, err)
			return
		}

		if _, err := svc.AddCredits(r.Context(), id, req.Amount); err != nil {
			handleError(w, r, log, err)
			return
		}

		balance, err := svc.CheckCredits(r.Context(), id)
		if err != nil {
			handleError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, balance)
	}
}

func listCreditTransactionsHandler(svc CreditService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		if _, err := selfOrAdmin(r, id); err != nil {
			handleError(w, r, log, err)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if limit, err = strconv.Atoi(raw); err != nil {
				handleError(w, r, log, ValidationErrors{{Field: "limit", Message: "must be a number"}})
				return
			}
		}

		txs, err := svc.ListCreditTransactions(r.Context(), id, limit)
		if err != nil {
			handleError(w, r, log, err)
			return
		}
		if txs == nil {
			txs = []credit.Transaction{}
		}

		writeJSON(w, http.StatusOK, CreditTransactionsResponse{ProfessionalID: id, Transactions: txs})
	}
}
