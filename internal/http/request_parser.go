// Package http serves the fintrack web UI.
//
// This file implements helpers for reading form and JSON bodies, path ids
// and budget scopes.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// maxBodyBytes bounds form and JSON bodies. Uploads have their own limit.
const maxBodyBytes = 1 << 20

// RequestBodyParser reads a form-encoded or JSON body once. Forms are what
// the pages post; JSON lets scripts drive the same endpoints.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like JSON, as a form
// otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	trimmed := strings.TrimSpace(string(p.body))
	if strings.HasPrefix(trimmed, "{") {
		p.jsonData = make(map[string]any)
		p.err = json.Unmarshal(p.body, &p.jsonData)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody reads r and returns a 400 builder when the body is malformed.
func parseBody(r *http.Request) (*RequestBodyParser, *HTMXResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError("Invalid request format")
	}
	return p, nil
}

// PathID parses the {name} path segment as a row id.
func PathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, core.NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// transactionInput maps the transaction form onto the service input.
func transactionInput(p *RequestBodyParser) (services.TransactionInput, error) {
	in := services.TransactionInput{
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Currency:    strings.ToUpper(p.Get("currency")),
		Date:        p.Get("date"),
	}
	raw := p.Get("category_id")
	if raw == "" {
		return in, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return in, core.NewValidationError("category_id", "must be a category id")
	}
	in.CategoryID = id
	return in, nil
}

// parseScope reads the budget scope from the "scope" field: "all" (or an
// empty value) selects the aggregate budget, a number selects that
// category.
func parseScope(value string) (core.BudgetScope, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "all" || value == "aggregate" {
		return core.Aggregate(), nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return core.BudgetScope{}, core.ErrInvalidScope
	}
	scope := core.PerCategory(id)
	if err := scope.Validate(); err != nil {
		return core.BudgetScope{}, err
	}
	return scope, nil
}

// reportFilter reads the report query string.
func reportFilter(q url.Values) services.Filter {
	return services.Filter{
		Type:       strings.TrimSpace(q.Get("filter_type")),
		FromDate:   strings.TrimSpace(q.Get("from_date")),
		ToDate:     strings.TrimSpace(q.Get("to_date")),
		Amount:     strings.TrimSpace(q.Get("amount")),
		CategoryID: strings.TrimSpace(q.Get("category_id")),
	}
}

// sanitizeInput trims and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
