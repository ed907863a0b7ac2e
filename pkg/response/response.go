// Package response writes and reads the JSON envelope shared by every API
// endpoint: {"success": bool, "data": ..., "error": "...", "message": "..."}.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Envelope is the typed form of Response used when decoding.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func write(w http.ResponseWriter, statusCode int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	write(w, statusCode, Response{
		Success: statusCode < 400,
		Data:    data,
	})
}

func Success(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}

func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// Message replies 200 with a human readable message and optional data.
func Message(w http.ResponseWriter, message string, data interface{}) {
	write(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Message: message,
	})
}

func Error(w http.ResponseWriter, statusCode int, err string) {
	write(w, statusCode, Response{
		Success: false,
		Error:   err,
	})
}

func BadRequest(w http.ResponseWriter, err string) {
	Error(w, http.StatusBadRequest, err)
}

func Unauthorized(w http.ResponseWriter, err string) {
	Error(w, http.StatusUnauthorized, err)
}

func NotFound(w http.ResponseWriter, err string) {
	Error(w, http.StatusNotFound, err)
}

func Conflict(w http.ResponseWriter, err string) {
	Error(w, http.StatusConflict, err)
}

func InternalError(w http.ResponseWriter, err string) {
	Error(w, http.StatusInternalServerError, err)
}

// APIError is a non-success envelope received from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Decode reads an envelope from r. A failed request is returned as
// *APIError; otherwise Data is unmarshalled into T.
func Decode[T any](statusCode int, r io.Reader) (T, *Envelope[T], error) {
	var env Envelope[T]
	var zero T

	if err := json.NewDecoder(r).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if statusCode >= 400 {
			return zero, nil, &APIError{StatusCode: statusCode, Message: http.StatusText(statusCode)}
		}
		return zero, nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if statusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return zero, &env, &APIError{StatusCode: statusCode, Message: msg}
	}

	return env.Data, &env, nil
}
