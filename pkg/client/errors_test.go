package client

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		err        error
		expected   ErrorClass
	}{
		{"transport error", 0, errors.New("dial tcp: refused"), ErrorClassNetwork},
		{"not found", 404, nil, ErrorClassClient},
		{"unauthorized", 401, nil, ErrorClassClient},
		{"throttled", 429, nil, ErrorClassRateLimit},
		{"server", 502, nil, ErrorClassServer},
		{"success", 200, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.statusCode, tt.err); got != tt.expected {
				t.Errorf("classify(%d, %v) = %q, want %q", tt.statusCode, tt.err, got, tt.expected)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				Class:   ErrorClassNetwork,
				Message: "request failed",
				Err:     errors.New("connection refused"),
			},
			expected: "content API network error (status 0): request failed: connection refused",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				StatusCode: 404,
				Class:      ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "content API client error (status 404): 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := tt.apiError.Error(); result != tt.expected {
				t.Errorf("Error() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	notFound := &APIError{StatusCode: 404, Class: ErrorClassClient}
	if !errors.Is(notFound, ErrNotFound) {
		t.Error("404 should match ErrNotFound")
	}

	server := &APIError{StatusCode: 500, Class: ErrorClassServer}
	if errors.Is(server, ErrNotFound) {
		t.Error("500 must not match ErrNotFound")
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("wrapped error")
	apiError := &APIError{Class: ErrorClassNetwork, Err: wrappedErr}

	if !errors.Is(apiError, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
	if (&APIError{}).Unwrap() != nil {
		t.Error("Unwrap() of empty error should be nil")
	}
}
