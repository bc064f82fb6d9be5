// Package utils holds the JSON envelope and write helpers shared by every
// handler package in the auction service.
package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-auction/internal/errs"
)

// APIResponse is the envelope every auction endpoint answers with.
type APIResponse struct {
	OK       bool        `json:"ok"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	ServedAt time.Time   `json:"served_at"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		OK:       true,
		Message:  message,
		Data:     data,
		ServedAt: time.Now().UTC(),
	}
}

func ErrorResponse(message, detail string) APIResponse {
	return APIResponse{
		Message:  message,
		Error:    detail,
		ServedAt: time.Now().UTC(),
	}
}

func WriteJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// WriteError maps a taxonomy error onto its status code with a uniform body.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, errs.HTTPStatus(err), ErrorResponse("request failed", err.Error()))
}
