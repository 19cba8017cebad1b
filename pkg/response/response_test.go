package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, Fields{"newBalance": 200})

	if rec.Code != http.StatusOK {
		t.Errorf("Success() status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Success() Content-Type = %q", ct)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != StatusOK {
		t.Errorf("Success() status field = %v, want ok", body["status"])
	}
	if body["newBalance"] != float64(200) {
		t.Errorf("Success() newBalance = %v, want 200", body["newBalance"])
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
	}{
		{name: "bad request", write: func(w http.ResponseWriter) { BadRequest(w, "boom") }, status: http.StatusBadRequest},
		{name: "unauthorized", write: func(w http.ResponseWriter) { Unauthorized(w, "boom") }, status: http.StatusUnauthorized},
		{name: "forbidden", write: func(w http.ResponseWriter) { Forbidden(w, "boom") }, status: http.StatusForbidden},
		{name: "not found", write: func(w http.ResponseWriter) { NotFound(w, "boom") }, status: http.StatusNotFound},
		{name: "internal", write: func(w http.ResponseWriter) { InternalError(w, "boom") }, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}

			var env Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if env.OK() {
				t.Error("Envelope.OK() = true for an error body")
			}
			if env.Error != "boom" {
				t.Errorf("Envelope.Error = %q, want boom", env.Error)
			}
		})
	}
}

func TestEnvelopeOK(t *testing.T) {
	tests := []struct {
		env  Envelope
		want bool
	}{
		{Envelope{Status: "ok"}, true},
		{Envelope{Status: "ok", Error: "late failure"}, false},
		{Envelope{Status: "error"}, false},
		{Envelope{}, false},
	}

	for _, tt := range tests {
		if got := tt.env.OK(); got != tt.want {
			t.Errorf("Envelope%+v.OK() = %v, want %v", tt.env, got, tt.want)
		}
	}
}
