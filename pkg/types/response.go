// Package types holds the JSON bodies shared by every HTTP surface.
package types

// SuccessEnvelope wraps a successful payload: {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps a failure: {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// LegacyEnvelope is the {success, data} body older clients expect. On failure Data holds an
// APIError.
type LegacyEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}
