package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Error("HX-Trigger should be absent without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerLedgerChanged().
		TriggerFormReset().
		TriggerSuccessNotification("Transaction added").
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{EventLedgerChanged, EventFormReset, EventNotification} {
		if _, ok := triggers[name]; !ok {
			t.Errorf("HX-Trigger missing %q", name)
		}
	}

	var note struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(triggers[EventNotification], &note); err != nil {
		t.Fatalf("notification payload: %v", err)
	}
	if note.Type != "success" || note.Message != "Transaction added" || note.Duration != 3000 {
		t.Errorf("notification = %+v", note)
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	htmx := httptest.NewRequest(http.MethodPost, "/transactions", nil)
	htmx.Header.Set("HX-Request", "true")

	w := httptest.NewRecorder()
	NewHTMXResponse().Redirect(htmx, "/").Write(w)
	if w.Code != http.StatusOK || w.Header().Get("HX-Redirect") != "/" {
		t.Errorf("htmx redirect: code=%d headers=%v", w.Code, w.Header())
	}

	plain := httptest.NewRequest(http.MethodPost, "/transactions", nil)
	w = httptest.NewRecorder()
	NewHTMXResponse().Redirect(plain, "/budget").Write(w)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/budget" {
		t.Errorf("form redirect: code=%d headers=%v", w.Code, w.Header())
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		code    int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("bad"), http.StatusNotFound},
		{"internal", InternalServerError("bad"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
			if !strings.Contains(w.Header().Get("HX-Trigger"), `"type":"error"`) {
				t.Errorf("missing error notification: %s", w.Header().Get("HX-Trigger"))
			}
		})
	}
}

func TestErrorResponse_EscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusUnprocessableEntity, `<script>alert("x")</script>`).Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Errorf("message not escaped: %s", body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}
