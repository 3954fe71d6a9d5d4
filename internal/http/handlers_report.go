package http

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

type reportPage struct {
	pageData
	Filter     services.Filter
	Entries    []core.Entry
	Totals     core.Totals
	Categories []core.Category
	IDs        string
	Error      string
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := reportPage{
		pageData: s.page(ctx, "report"),
		Filter:   reportFilter(r.URL.Query()),
	}

	categories, err := s.deps.Categories.List(ctx)
	if err != nil {
		s.writeError(w, r, "report", err)
		return
	}
	data.Categories = categories

	entries, err := s.deps.Reports.Filter(ctx, data.Filter)
	switch {
	case err == nil:
	case statusFor(err) == http.StatusUnprocessableEntity:
		data.Error = core.UserMessage(err)
	default:
		s.writeError(w, r, "report", err)
		return
	}

	data.Entries = entries
	data.Totals = services.TotalsOf(entries)
	data.IDs = joinIDs(entries)
	s.render(w, r, "report", data)
}

func joinIDs(entries []core.Entry) string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = strconv.FormatInt(e.ID, 10)
	}
	return strings.Join(ids, ",")
}

// exportFormat describes one downloadable report type.
type exportFormat struct {
	contentType string
	extension   string
	write       func(w *bytes.Buffer, entries []core.Entry, currency string) error
}

var exportFormats = map[string]exportFormat{
	"csv": {"text/csv; charset=utf-8", "csv", func(w *bytes.Buffer, e []core.Entry, c string) error {
		return export.WriteCSV(w, e, c)
	}},
	"pdf": {"application/pdf", "pdf", func(w *bytes.Buffer, e []core.Entry, c string) error {
		return export.WritePDF(w, e, c)
	}},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", func(w *bytes.Buffer, e []core.Entry, c string) error {
		return export.WriteXLSX(w, e, c)
	}},
}

// handleExport renders the transactions listed in filtered_transaction_ids
// as a download, or pushes them to the report spreadsheet.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	kind := strings.ToLower(p.Get("export_type"))

	entries, err := s.deps.Reports.ByIDs(ctx, p.Get("filtered_transaction_ids"))
	if err != nil {
		s.writeError(w, r, "export", err)
		return
	}
	if len(entries) == 0 {
		UnprocessableEntityError("No transactions to export").Write(w)
		return
	}
	currency := s.deps.Reconciler.Current()

	if kind == "sheets" {
		s.exportToSheets(w, r, entries, currency)
		return
	}

	format, ok := exportFormats[kind]
	if !ok {
		s.writeError(w, r, "export", core.NewValidationError("export_type", "must be csv, pdf, xlsx or sheets"))
		return
	}

	var buf bytes.Buffer
	if err := format.write(&buf, entries, currency); err != nil {
		s.writeError(w, r, "export", fmt.Errorf("render %s export: %w", kind, err))
		return
	}
	atomic.AddInt64(&s.appMetrics.exports, 1)
	log.FromContext(ctx).InfoContext(ctx, "Report exported",
		log.FieldOperation, log.OpExport,
		"format", kind,
		"rows", len(entries))

	filename := fmt.Sprintf("transactions-%s.%s", time.Now().Format("20060102"), format.extension)
	w.Header().Set("Content-Type", format.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) exportToSheets(w http.ResponseWriter, r *http.Request, entries []core.Entry, currency string) {
	if s.deps.ReportMirror == nil {
		s.writeError(w, r, "export", core.NewValidationError("export_type", "spreadsheet export is not configured"))
		return
	}
	err := s.deps.ReportMirror.ReplaceReport(r.Context(), s.deps.ReportSheet, export.Header, export.Rows(entries, currency))
	if err != nil {
		s.writeError(w, r, "export", core.NewUserError("Spreadsheet export failed",
			fmt.Errorf("%w: write report sheet: %v", core.ErrExternalService, err)))
		return
	}
	atomic.AddInt64(&s.appMetrics.exports, 1)

	NewHTMXResponse().
		TriggerSuccessNotification(fmt.Sprintf("%d transactions written to sheet %q", len(entries), s.deps.ReportSheet)).
		Redirect(r, "/report").
		Write(w)
}

// Chart types offered on the report page.
var chartTypes = map[string]struct {
	typ   core.CategoryType
	title string
}{
	"pie_expense": {core.Expense, "Expenses by category"},
	"pie_income":  {core.Income, "Income by category"},
}

type chartFragment struct {
	Title string
	Image template.URL
}

// handleChart draws a pie chart of the listed transactions. Clients asking
// for image/png get the raw image; pages get an <img> fragment.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	p, resp := parseBody(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	chart, ok := chartTypes[p.Get("chart_type")]
	if !ok {
		s.writeError(w, r, "chart", core.NewValidationError("chart_type", "must be pie_expense or pie_income"))
		return
	}

	entries, err := s.deps.Reports.ByIDs(r.Context(), p.Get("filtered_transaction_ids"))
	if err != nil {
		s.writeError(w, r, "chart", err)
		return
	}
	totals := services.CategoryBreakdown(services.FilterByType(entries, chart.typ))

	var buf bytes.Buffer
	if err := export.WritePieChart(&buf, chart.title, totals); err != nil {
		if errors.Is(err, core.ErrValidation) {
			err = core.NewUserError("No data to chart", err)
		}
		s.writeError(w, r, "chart", err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "image/png") {
		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
		return
	}
	s.renderTemplate(w, r, "report", "chart", chartFragment{
		Title: chart.title,
		Image: template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())),
	})
}
