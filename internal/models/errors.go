package models

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Sentinel errors shared across handlers and services.
var (
	ErrSourceNotFound = errors.New("unknown data source")
	ErrEmptyQuestion  = errors.New("question must not be empty")
	ErrEmptySQL       = errors.New("sql must not be empty")
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

func WriteError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
