package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FallbackMessage is used when an error carries no message of its own.
const FallbackMessage = "An unexpected error occurred"

// ErrInvalidBaseURL is returned when the configured endpoint URL cannot be used.
var ErrInvalidBaseURL = errors.New("invalid endpoint url")

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses and unusable requests.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 2xx response whose body is not the expected JSON.
	ErrorClassDecode ErrorClass = "decode"
)

// FetchError is returned for any failed round trip.
// Error returns only the user-facing message; StatusCode and Class are for logs.
type FetchError struct {
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil && e.Err.Error() != "" {
		return e.Err.Error()
	}
	return FallbackMessage
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// apiError is the error body WooCommerce sends with non-2xx responses.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classifyStatus maps a non-2xx status code to an ErrorClass.
func classifyStatus(code int) ErrorClass {
	if code >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// statusMessage prefers the message from a WooCommerce error body.
func statusMessage(code int, body []byte) string {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("Request failed with status code %d", code)
}
