package models

// ErrorEnvelope is the body rendered by the error normalizer. Stack and
// Details are only populated outside production.
type ErrorEnvelope struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Stack   string         `json:"stack,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// RateLimitRejection is the 429 body. Field names are part of the public contract.
type RateLimitRejection struct {
	Code       int    `json:"code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}
