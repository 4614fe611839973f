package provider

import "context"

// Provider is the outbound delivery port to the messaging provider. The
// implementation performs its own bounded request timeout; the dispatcher
// treats Send as a single blocking call.
type Provider interface {
	Send(ctx context.Context, destination, body string) (*SendResult, error)
}

// SendResult carries provider acknowledgement metadata.
type SendResult struct {
	ProviderMessageID string
	StatusCode        int
}
