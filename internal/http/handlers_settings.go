package http

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "settings", s.page(r.Context(), "settings"))
}

// handleSetCurrency switches the default currency and rescales every stored
// amount.
func (s *Server) handleSetCurrency(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	res, err := s.deps.Reconciler.SetDefaultCurrency(r.Context(), p.Get("currency"))
	if err != nil {
		s.writeError(w, r, "set_currency", err)
		return
	}

	msg := fmt.Sprintf("Default currency is already %s", res.To)
	if res.Rescaled() {
		atomic.AddInt64(&s.appMetrics.reconciled, 1)
		msg = fmt.Sprintf("Default currency changed from %s to %s (%d transactions, %d budgets converted at %s)",
			res.From, res.To, res.Transactions, res.Budgets, res.Rate.String())
	}

	NewHTMXResponse().
		TriggerSuccessNotification(msg).
		TriggerLedgerChanged().
		Redirect(r, "/settings").
		Write(w)
}
