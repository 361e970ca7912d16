package delivery

import (
	"context"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/utils"
)

// MockProvider accepts every message without touching the network. Meant
// for development environments where no relay or API key exists; it must
// be enabled explicitly and always sits last in the chain.
type MockProvider struct {
	log logger.Logger
}

func NewMockProvider(log logger.Logger) *MockProvider {
	return &MockProvider{log: log}
}

func (p *MockProvider) Name() string {
	return "mock"
}

func (p *MockProvider) Send(ctx context.Context, request *interfaces.DeliveryRequest) (*interfaces.DeliveryReceipt, error) {
	messageID := utils.GenerateMessageID("mailbridge.local", "mock")
	p.log.Infof("Mock delivery of %q to %v as %s", request.Subject, request.To, messageID)
	return &interfaces.DeliveryReceipt{MessageID: messageID}, nil
}

func (p *MockProvider) Verify(ctx context.Context) error {
	return nil
}
