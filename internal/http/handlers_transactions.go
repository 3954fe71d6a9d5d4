package http

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"fintrack/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	in, err := transactionInput(p)
	if err != nil {
		s.writeError(w, r, "create_transaction", err)
		return
	}

	t, err := s.deps.Transactions.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, "create_transaction", err)
		return
	}
	atomic.AddInt64(&s.appMetrics.transactions, 1)

	NewHTMXResponse().
		TriggerSuccessNotification(fmt.Sprintf("Transaction added: %s %s",
			core.FormatAmount(t.Amount), s.deps.Reconciler.Current())).
		TriggerLedgerChanged().
		TriggerFormReset().
		Redirect(r, "/").
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, "update_transaction", err)
		return
	}
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	in, err := transactionInput(p)
	if err != nil {
		s.writeError(w, r, "update_transaction", err)
		return
	}

	if _, err := s.deps.Transactions.Update(r.Context(), id, in); err != nil {
		s.writeError(w, r, "update_transaction", err)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Transaction updated").
		TriggerLedgerChanged().
		Redirect(r, "/").
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, "delete_transaction", err)
		return
	}

	if err := s.deps.Transactions.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, "delete_transaction", err)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Transaction deleted").
		TriggerLedgerChanged().
		Redirect(r, "/").
		Write(w)
}
