package response

import (
	"encoding/json"
	"net/http"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Envelope is the part of every API body the client inspects before
// decoding the payload fields that sit next to it.
type Envelope struct {
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e Envelope) OK() bool {
	return e.Status == StatusOK && e.Error == ""
}

// Fields is a flat payload; the envelope keys are merged into it.
type Fields map[string]interface{}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func Success(w http.ResponseWriter, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["status"] = StatusOK
	JSON(w, http.StatusOK, fields)
}

func Message(w http.ResponseWriter, message string) {
	Success(w, Fields{"message": message})
}

func Error(w http.ResponseWriter, statusCode int, err string) {
	JSON(w, statusCode, Envelope{
		Status: StatusError,
		Error:  err,
	})
}

func BadRequest(w http.ResponseWriter, err string) {
	Error(w, http.StatusBadRequest, err)
}

func Unauthorized(w http.ResponseWriter, err string) {
	Error(w, http.StatusUnauthorized, err)
}

func Forbidden(w http.ResponseWriter, err string) {
	Error(w, http.StatusForbidden, err)
}

func NotFound(w http.ResponseWriter, err string) {
	Error(w, http.StatusNotFound, err)
}

func InternalError(w http.ResponseWriter, err string) {
	Error(w, http.StatusInternalServerError, err)
}
