package delivery

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/models"
)

type fakeProvider struct {
	name      string
	err       error
	verifyErr error
	calls     int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Send(ctx context.Context, request *interfaces.DeliveryRequest) (*interfaces.DeliveryReceipt, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &interfaces.DeliveryReceipt{MessageID: "<msg-" + p.name + "@test>"}, nil
}

func (p *fakeProvider) Verify(ctx context.Context) error { return p.verifyErr }

type fakeDeliveryLogRepo struct {
	entries []*models.DeliveryLog
}

func (r *fakeDeliveryLogRepo) Create(ctx context.Context, log *models.DeliveryLog) error {
	r.entries = append(r.entries, log)
	return nil
}

func (r *fakeDeliveryLogRepo) ListRecent(ctx context.Context, limit int) ([]models.DeliveryLog, error) {
	return nil, nil
}

func getTestLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func validRequest() *interfaces.DeliveryRequest {
	return &interfaces.DeliveryRequest{
		To:       []string{"bob@example.com"},
		Subject:  "Hello",
		TextBody: "hi there",
	}
}

func TestDeliveryService_Send_FirstProviderWins(t *testing.T) {
	// Arrange
	first := &fakeProvider{name: "smtp"}
	second := &fakeProvider{name: "httpapi"}
	logRepo := &fakeDeliveryLogRepo{}
	service := NewDeliveryService(getTestLogger(), []interfaces.DeliveryProvider{first, second}, logRepo)

	// Act
	result, err := service.Send(context.Background(), validRequest())

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "smtp", result.ProviderUsed)
	assert.NotEmpty(t, result.MessageID)
	assert.Len(t, result.Attempts, 1)
	assert.Equal(t, 0, second.calls)
}

func TestDeliveryService_Send_FallsThroughOnFailure(t *testing.T) {
	// Arrange
	first := &fakeProvider{name: "smtp", err: errors.New("connection refused")}
	second := &fakeProvider{name: "httpapi", err: errors.New("401 unauthorized")}
	third := &fakeProvider{name: "mock"}
	service := NewDeliveryService(getTestLogger(), []interfaces.DeliveryProvider{first, second, third}, nil)

	// Act
	result, err := service.Send(context.Background(), validRequest())

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "mock", result.ProviderUsed)
	require.Len(t, result.Attempts, 3)
	assert.False(t, result.Attempts[0].Success)
	assert.Contains(t, result.Attempts[0].ErrorDetail, "connection refused")
	assert.False(t, result.Attempts[1].Success)
	assert.True(t, result.Attempts[2].Success)
}

func TestDeliveryService_Send_AllProvidersFail(t *testing.T) {
	// Arrange
	first := &fakeProvider{name: "smtp", err: errors.New("connection refused")}
	second := &fakeProvider{name: "httpapi", err: errors.New("timeout")}
	logRepo := &fakeDeliveryLogRepo{}
	service := NewDeliveryService(getTestLogger(), []interfaces.DeliveryProvider{first, second}, logRepo)

	// Act
	result, err := service.Send(context.Background(), validRequest())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp: ")
	assert.Contains(t, err.Error(), "httpapi: ")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Len(t, result.Attempts, 2)

	// the failed delivery is still recorded
	require.Len(t, logRepo.entries, 1)
	assert.False(t, logRepo.entries[0].Success)
}

func TestDeliveryService_Send_EmptyChain(t *testing.T) {
	// Arrange
	service := NewDeliveryService(getTestLogger(), nil, nil)

	// Act
	result, err := service.Send(context.Background(), validRequest())

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNoProvidersConfigured))
	assert.Nil(t, result)
}

func TestDeliveryService_Send_ValidatesRequest(t *testing.T) {
	service := NewDeliveryService(getTestLogger(), []interfaces.DeliveryProvider{&fakeProvider{name: "mock"}}, nil)

	testCases := []struct {
		name    string
		request *interfaces.DeliveryRequest
	}{
		{"no recipients", &interfaces.DeliveryRequest{Subject: "s", TextBody: "b"}},
		{"no subject", &interfaces.DeliveryRequest{To: []string{"a@b.com"}, TextBody: "b"}},
		{"no body", &interfaces.DeliveryRequest{To: []string{"a@b.com"}, Subject: "s"}},
		{"invalid recipient", &interfaces.DeliveryRequest{To: []string{"not-an-address"}, Subject: "s", TextBody: "b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := service.Send(context.Background(), tc.request)
			assert.Error(t, err)
			assert.Nil(t, result)
		})
	}
}

func TestDeliveryService_Send_RecordsSuccessfulDelivery(t *testing.T) {
	// Arrange
	logRepo := &fakeDeliveryLogRepo{}
	service := NewDeliveryService(getTestLogger(), []interfaces.DeliveryProvider{&fakeProvider{name: "smtp"}}, logRepo)

	// Act
	_, err := service.Send(context.Background(), validRequest())

	// Assert
	require.NoError(t, err)
	require.Len(t, logRepo.entries, 1)
	entry := logRepo.entries[0]
	assert.True(t, entry.Success)
	assert.Equal(t, "smtp", entry.ProviderUsed)
	assert.Equal(t, "Hello", entry.Subject)
}

func TestDeliveryService_Verify(t *testing.T) {
	// Arrange: first provider broken, second fine
	first := &fakeProvider{name: "smtp", verifyErr: errors.New("relay unreachable")}
	second := &fakeProvider{name: "httpapi"}
	service := NewDeliveryService(getTestLogger(), []interfaces.DeliveryProvider{first, second}, nil)

	// Act & Assert
	assert.NoError(t, service.Verify(context.Background()))

	// all broken
	second.verifyErr = errors.New("bad key")
	err := service.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "httpapi verify failed")
}

func TestDeliveryService_Verify_EmptyChain(t *testing.T) {
	service := NewDeliveryService(getTestLogger(), nil, nil)
	assert.True(t, errors.Is(service.Verify(context.Background()), errs.ErrNoProvidersConfigured))
}
