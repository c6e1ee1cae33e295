package domain

import "context"

// GenerateRequest is a single-exchange generation call: a fixed persona
// instruction plus the raw user utterance. The instruction is deployment
// configuration and is never derived from user input.
type GenerateRequest struct {
	System      string
	UserText    string
	Model       string  // override of the provider's default model
	MaxTokens   int     // 0 = provider default
	Temperature float64 // sampling randomness, 0 = deterministic
}

// GenerateResult is the complete reply text from a provider. Providers never
// return a result alongside an error, so an empty Text is a genuine empty
// reply, not a failure.
type GenerateResult struct {
	Text string
}

// Provider is the interface all generation backends implement.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	Name() string
	Healthy(ctx context.Context) error
}
