package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusCreated, map[string]string{"id": "p1"})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["id"] != "p1" {
		t.Errorf("body = %v", body)
	}
}

func TestRespondErrorWithExtrasFlattens(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusConflict, "project name already in use", map[string]interface{}{
		"resource_type": "project",
		"resource_id":   "p1",
	})

	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != float64(http.StatusConflict) {
		t.Errorf("status member = %v", body["status"])
	}
	if body["resource_type"] != "project" || body["resource_id"] != "p1" {
		t.Errorf("extras not at top level: %v", body)
	}
}

func TestErrorTypeFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusNotFound, "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.4"},
		{http.StatusConflict, "https://datatracker.ietf.org/doc/html/rfc7231#section-6.5.8"},
		{http.StatusServiceUnavailable, "https://datatracker.ietf.org/doc/html/rfc7231#section-6.6.4"},
		{http.StatusTeapot, "about:blank"},
	}
	for _, tt := range tests {
		if got := errorTypeFromStatus(tt.status); got != tt.want {
			t.Errorf("errorTypeFromStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestOptionalStringTriState(t *testing.T) {
	type patch struct {
		UserInput OptionalString `json:"user_input"`
	}

	tests := []struct {
		name    string
		body    string
		present bool
		value   *string
	}{
		{"absent", `{}`, false, nil},
		{"null", `{"user_input":null}`, true, nil},
		{"empty", `{"user_input":""}`, true, ptr("")},
		{"set", `{"user_input":"需要退款流程"}`, true, ptr("需要退款流程")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p patch
			if err := json.Unmarshal([]byte(tt.body), &p); err != nil {
				t.Fatal(err)
			}
			if p.UserInput.Present != tt.present {
				t.Errorf("present = %v, want %v", p.UserInput.Present, tt.present)
			}
			switch {
			case tt.value == nil && p.UserInput.Value != nil:
				t.Errorf("value = %q, want nil", *p.UserInput.Value)
			case tt.value != nil && (p.UserInput.Value == nil || *p.UserInput.Value != *tt.value):
				t.Errorf("value = %v, want %q", p.UserInput.Value, *tt.value)
			}
		})
	}
}

func TestUserIDContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetUserID(r); got != "" {
		t.Errorf("unauthenticated request user = %q", got)
	}
	r = WithUserID(r, "u1")
	if got := GetUserID(r); got != "u1" {
		t.Errorf("user = %q, want u1", got)
	}
}

func ptr(s string) *string { return &s }
