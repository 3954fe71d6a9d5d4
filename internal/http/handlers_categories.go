package http

import (
	"fmt"
	"net/http"

	"fintrack/internal/core"
)

type categoriesPage struct {
	pageData
	Categories []core.Category
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Categories.List(r.Context())
	if err != nil {
		s.writeError(w, r, "list_categories", err)
		return
	}
	s.render(w, r, "categories", categoriesPage{
		pageData:   s.page(r.Context(), "categories"),
		Categories: categories,
	})
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	c, err := s.deps.Categories.Add(r.Context(), p.Get("name"), p.Get("type"))
	if err != nil {
		s.writeError(w, r, "create_category", err)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification(fmt.Sprintf("Category %q added", c.Name)).
		TriggerFormReset().
		Redirect(r, "/categories").
		Write(w)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, "rename_category", err)
		return
	}
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	c, err := s.deps.Categories.Rename(r.Context(), id, p.Get("name"))
	if err != nil {
		s.writeError(w, r, "rename_category", err)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification(fmt.Sprintf("Category renamed to %q", c.Name)).
		Redirect(r, "/categories").
		Write(w)
}

// handleDeleteCategory removes the category with its transactions and
// budget.
func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		s.writeError(w, r, "delete_category", err)
		return
	}

	if err := s.deps.Categories.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, "delete_category", err)
		return
	}

	NewHTMXResponse().
		TriggerSuccessNotification("Category deleted").
		TriggerLedgerChanged().
		Redirect(r, "/categories").
		Write(w)
}
