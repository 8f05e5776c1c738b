package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"flowledger/internal/core"
	"flowledger/internal/format"
	"flowledger/internal/views"
)

// transactionView augments a record with the display strings the
// dashboard renders for each row.
type transactionView struct {
	core.Transaction
	DisplayAmount string `json:"displayAmount"`
	DisplayDate   string `json:"displayDate"`
}

func toViews(records []core.Transaction) []transactionView {
	out := make([]transactionView, len(records))
	for i, tx := range records {
		out[i] = transactionView{
			Transaction:   tx,
			DisplayAmount: format.Currency(tx.Amount),
			DisplayDate:   format.Date(tx.Date),
		}
	}
	return out
}

// formattedTotals carries the summary rendered as currency strings.
type formattedTotals struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

func formatTotals(s views.Summary) formattedTotals {
	return formattedTotals{
		Income:  format.Currency(s.Income),
		Expense: format.Currency(s.Expense),
		Balance: format.Currency(s.Balance),
	}
}

type signInRequest struct {
	Credential string `json:"credential"`
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.sessions.SignIn(r.Context(), req.Credential)
	writeJSON(w, http.StatusAccepted, s.sessions.Current())
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.sessions.SignOut(r.Context())
	writeJSON(w, http.StatusOK, s.sessions.Current())
}

// parseFilter reads the optional view filter from query parameters.
func parseFilter(r *http.Request) core.Filter {
	q := r.URL.Query()
	return core.Filter{
		Query:    q.Get("query"),
		Kind:     q.Get("kind"),
		Category: q.Get("category"),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	records, err := s.snapshot(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": toViews(views.Filtered(records, parseFilter(r))),
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	var in core.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, _, err := s.resolver.ForOwner(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	tx, err := st.Create(r.Context(), identity.UID, in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	var in core.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	st, _, err := s.resolver.ForOwner(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	if err := st.Update(r.Context(), identity.UID, id, in); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update transaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}

	st, _, err := s.resolver.ForOwner(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}

	if err := st.Delete(r.Context(), identity.UID, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete transaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	records, err := s.snapshot(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	summary := views.Summarize(records)
	writeJSON(w, http.StatusOK, map[string]any{
		"income":    summary.Income,
		"expense":   summary.Expense,
		"balance":   summary.Balance,
		"formatted": formatTotals(summary),
	})
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	records, err := s.snapshot(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	breakdown := views.Breakdown(records)
	summary := views.Summarize(records)
	writeJSON(w, http.StatusOK, map[string]any{
		"breakdown": breakdown,
		"shares":    views.Shares(breakdown, summary.Expense),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	identity, err := s.resolveOwner(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credential")
		return
	}

	records, err := s.snapshot(r.Context(), identity.UID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories": views.Categories(records),
	})
}
