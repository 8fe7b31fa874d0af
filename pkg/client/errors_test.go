package client

import (
	"errors"
	"testing"
)

func TestFetchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *FetchError
		expected string
	}{
		{
			name: "message wins",
			err: &FetchError{
				StatusCode: 401,
				Class:      ErrorClassClient,
				Message:    "Sorry, you cannot list resources.",
				Err:        errors.New("ignored"),
			},
			expected: "Sorry, you cannot list resources.",
		},
		{
			name: "wrapped error message",
			err: &FetchError{
				Class: ErrorClassNetwork,
				Err:   errors.New("connection refused"),
			},
			expected: "connection refused",
		},
		{
			name:     "fallback",
			err:      &FetchError{Class: ErrorClassServer, StatusCode: 500},
			expected: FallbackMessage,
		},
		{
			name:     "empty wrapped error",
			err:      &FetchError{Err: errors.New("")},
			expected: FallbackMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.err.Error()
			if result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	fetchErr := &FetchError{
		StatusCode: 500,
		Class:      ErrorClassServer,
		Message:    "server error",
		Err:        wrappedErr,
	}

	if fetchErr.Unwrap() != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", fetchErr.Unwrap(), wrappedErr)
	}

	if !errors.Is(fetchErr, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}

	var target *FetchError
	if !errors.As(error(fetchErr), &target) || target.Class != ErrorClassServer {
		t.Error("errors.As should find the FetchError")
	}
}

func TestFetchError_UnwrapNil(t *testing.T) {
	fetchErr := &FetchError{StatusCode: 404, Class: ErrorClassClient, Message: "not found"}

	if unwrapped := fetchErr.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status   int
		expected ErrorClass
	}{
		{400, ErrorClassClient},
		{401, ErrorClassClient},
		{404, ErrorClassClient},
		{429, ErrorClassClient},
		{500, ErrorClassServer},
		{502, ErrorClassServer},
		{503, ErrorClassServer},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.expected {
			t.Errorf("classifyStatus(%d) = %q, want %q", tt.status, got, tt.expected)
		}
	}
}

func TestStatusMessage(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{
			name:     "woocommerce error body",
			status:   401,
			body:     `{"code":"woocommerce_rest_cannot_view","message":"Sorry, you cannot list resources.","data":{"status":401}}`,
			expected: "Sorry, you cannot list resources.",
		},
		{
			name:     "empty message",
			status:   404,
			body:     `{"code":"rest_no_route","message":""}`,
			expected: "Request failed with status code 404",
		},
		{
			name:     "html body",
			status:   502,
			body:     "<html>Bad Gateway</html>",
			expected: "Request failed with status code 502",
		},
		{
			name:     "empty body",
			status:   500,
			body:     "",
			expected: "Request failed with status code 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusMessage(tt.status, []byte(tt.body)); got != tt.expected {
				t.Errorf("statusMessage() = %q, want %q", got, tt.expected)
			}
		})
	}
}
