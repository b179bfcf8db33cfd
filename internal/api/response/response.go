// Package response writes the JSON envelopes of the hiring API.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Code is the machine-readable error code in an error envelope.
type Code string

const (
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeInvalidToken      Code = "INVALID_TOKEN"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeKeyNotFound       Code = "KEY_NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeDuplicateKey      Code = "DUPLICATE_KEY"
	CodeRateLimited       Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeNotImplemented    Code = "NOT_IMPLEMENTED"
	CodeDegraded          Code = "DEGRADED"
)

// Status is the HTTP status a code is served with. Unknown codes are 500.
func (c Code) Status() int {
	switch c {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeKeyNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvalidTransition, CodeDuplicateKey:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeDegraded:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

type envelope struct {
	Data any `json:"data"`
}

type collectionEnvelope struct {
	Data any            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// PaginationMeta describes one page of a bucketed listing.
type PaginationMeta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

// NewPaginationMeta derives HasNext from the page position and total.
func NewPaginationMeta(page, limit, total int) PaginationMeta {
	return PaginationMeta{
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasNext: page*limit < total,
	}
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

// Created writes a 201. location, when set, is the URL of the new record.
func Created(w http.ResponseWriter, location string, data any) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func Collection(w http.ResponseWriter, data any, meta PaginationMeta) {
	writeJSON(w, http.StatusOK, collectionEnvelope{Data: data, Meta: meta})
}

// NoContent acknowledges a transition that has no body to return.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Error(w http.ResponseWriter, status int, code Code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// Fail writes an error envelope with the status that belongs to code.
func Fail(w http.ResponseWriter, code Code, message string) {
	Error(w, code.Status(), code, message, nil)
}

// Internal hides the cause of a server fault from the client.
func Internal(w http.ResponseWriter) {
	Fail(w, CodeInternal, "An unexpected error occurred")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "status", status, "error", err)
	}
}
