package ai

import "errors"

var (
	// ErrSchema indicates the model's output did not match the expected
	// JSON structure after all parse attempts.
	ErrSchema = errors.New("model output does not match expected schema")

	// ErrNoResponse indicates the model returned no choices.
	ErrNoResponse = errors.New("model returned no response")
)
