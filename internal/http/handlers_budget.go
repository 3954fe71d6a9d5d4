package http

import (
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type budgetPage struct {
	pageData
	Budgets    []services.BudgetView
	Categories []core.Category
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	data := budgetPage{pageData: s.page(r.Context(), "budget")}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		data.Budgets, err = s.deps.Budgets.List(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		data.Categories, err = s.deps.Categories.List(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.writeError(w, r, "list_budgets", err)
		return
	}

	s.render(w, r, "budget", data)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	scope, err := parseScope(p.Get("scope"))
	if err != nil {
		s.writeError(w, r, "set_budget", err)
		return
	}

	if _, err := s.deps.Budgets.Set(r.Context(), scope, p.Get("total_budget")); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			err = core.NewUserError("Selected category does not exist", err)
		}
		s.writeError(w, r, "set_budget", err)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Budget saved").
		TriggerLedgerChanged().
		Redirect(r, "/budget").
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, "delete_budget", err)
		return
	}

	if err := s.deps.Budgets.Remove(r.Context(), id); err != nil {
		s.writeError(w, r, "delete_budget", err)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Budget removed").
		Redirect(r, "/budget").
		Write(w)
}
