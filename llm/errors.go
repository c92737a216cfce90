package llm

import "errors"

// Sentinel errors for error classification.
var (
	// ErrRateLimited indicates transient model-side throttling. It is the
	// only condition the retry policy retries.
	ErrRateLimited = errors.New("rate limited")

	// ErrNoCompletion indicates the model returned an empty response.
	ErrNoCompletion = errors.New("model returned no completion")
)
