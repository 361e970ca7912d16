package interfaces

import (
	"context"
	"time"
)

type DeliveryAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}

// DeliveryRequest is a caller-constructed outbound message. It is treated
// as immutable by the delivery chain.
type DeliveryRequest struct {
	To          []string             `json:"to"`
	Cc          []string             `json:"cc,omitempty"`
	Bcc         []string             `json:"bcc,omitempty"`
	Subject     string               `json:"subject"`
	TextBody    string               `json:"textBody,omitempty"`
	HTMLBody    string               `json:"htmlBody,omitempty"`
	Attachments []DeliveryAttachment `json:"attachments,omitempty"`
}

type DeliveryReceipt struct {
	MessageID string `json:"messageId"`
}

type DeliveryAttempt struct {
	ProviderName string    `json:"providerName"`
	StartedAt    time.Time `json:"startedAt"`
	Success      bool      `json:"success"`
	ErrorDetail  string    `json:"errorDetail,omitempty"`
}

// DeliveryResult records every provider tried, in order, so a total
// failure still tells the operator why each layer broke.
type DeliveryResult struct {
	Success      bool              `json:"success"`
	ProviderUsed string            `json:"providerUsed,omitempty"`
	MessageID    string            `json:"messageId,omitempty"`
	Attempts     []DeliveryAttempt `json:"attempts"`
}

// DeliveryProvider is one send strategy in the chain.
type DeliveryProvider interface {
	Name() string
	Send(ctx context.Context, request *DeliveryRequest) (*DeliveryReceipt, error)
	// Verify performs a lightweight connectivity/credential check without
	// sending anything. Used by the health probe.
	Verify(ctx context.Context) error
}

type DeliveryService interface {
	Send(ctx context.Context, request *DeliveryRequest) (*DeliveryResult, error)
	Verify(ctx context.Context) error
}
