package delivery

import (
	"context"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/models"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

// DeliveryService walks an ordered provider chain and returns on the
// first success. Every provider tried is recorded as an attempt, so a
// total failure still explains what broke at each layer.
type DeliveryService struct {
	log          logger.Logger
	providers    []interfaces.DeliveryProvider
	deliveryLogs interfaces.DeliveryLogRepository
}

func NewDeliveryService(log logger.Logger, providers []interfaces.DeliveryProvider, deliveryLogs interfaces.DeliveryLogRepository) *DeliveryService {
	return &DeliveryService{
		log:          log,
		providers:    providers,
		deliveryLogs: deliveryLogs,
	}
}

func (s *DeliveryService) Send(ctx context.Context, request *interfaces.DeliveryRequest) (*interfaces.DeliveryResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DeliveryService.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("recipients.count", len(request.To))

	if err := validateRequest(request); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if len(s.providers) == 0 {
		err := errors.Wrap(errs.ErrNoProvidersConfigured, "delivery chain is empty")
		tracing.TraceErr(span, err)
		return nil, err
	}

	result := &interfaces.DeliveryResult{}

	for _, provider := range s.providers {
		attempt := interfaces.DeliveryAttempt{
			ProviderName: provider.Name(),
			StartedAt:    utils.Now(),
		}

		receipt, err := provider.Send(ctx, request)
		if err != nil {
			attempt.ErrorDetail = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			s.log.Warnf("Delivery via %s failed: %v", provider.Name(), err)
			tracing.TraceErr(span, err)
			continue
		}

		attempt.Success = true
		result.Attempts = append(result.Attempts, attempt)
		result.Success = true
		result.ProviderUsed = provider.Name()
		result.MessageID = receipt.MessageID
		break
	}

	s.recordDelivery(ctx, request, result)

	if !result.Success {
		err := errors.Errorf("all %d delivery providers failed: %s", len(result.Attempts), summarizeAttempts(result.Attempts))
		tracing.TraceErr(span, err)
		return result, err
	}

	span.SetTag("provider.used", result.ProviderUsed)
	span.SetTag("message.id", result.MessageID)

	return result, nil
}

// Verify reports healthy when any provider in the chain verifies.
func (s *DeliveryService) Verify(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DeliveryService.Verify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if len(s.providers) == 0 {
		return errors.Wrap(errs.ErrNoProvidersConfigured, "delivery chain is empty")
	}

	var lastErr error
	for _, provider := range s.providers {
		if err := provider.Verify(ctx); err != nil {
			lastErr = errors.Wrapf(err, "%s verify failed", provider.Name())
			tracing.TraceErr(span, lastErr)
			continue
		}
		return nil
	}
	return lastErr
}

func (s *DeliveryService) recordDelivery(ctx context.Context, request *interfaces.DeliveryRequest, result *interfaces.DeliveryResult) {
	if s.deliveryLogs == nil {
		return
	}

	attempts := make([]interface{}, 0, len(result.Attempts))
	for _, attempt := range result.Attempts {
		attempts = append(attempts, map[string]interface{}{
			"providerName": attempt.ProviderName,
			"startedAt":    attempt.StartedAt,
			"success":      attempt.Success,
			"errorDetail":  attempt.ErrorDetail,
		})
	}

	entry := &models.DeliveryLog{
		MessageID:    result.MessageID,
		Subject:      request.Subject,
		ToAddresses:  append([]string(nil), request.To...),
		Success:      result.Success,
		ProviderUsed: result.ProviderUsed,
		Attempts:     models.JSONMap{"attempts": attempts},
	}

	if err := s.deliveryLogs.Create(ctx, entry); err != nil {
		s.log.Warnf("Failed to record delivery log: %v", err)
	}
}

func validateRequest(request *interfaces.DeliveryRequest) error {
	if request == nil {
		return errors.New("delivery request cannot be nil")
	}
	if len(request.To) == 0 {
		return errors.New("at least one recipient is required")
	}
	if request.Subject == "" {
		return errors.New("subject is required")
	}
	if request.TextBody == "" && request.HTMLBody == "" {
		return errors.New("message must have either text or HTML content")
	}

	for _, recipient := range utils.UniqueEmails(append(append(append([]string(nil), request.To...), request.Cc...), request.Bcc...)) {
		validation := mailvalidate.ValidateEmailSyntax(recipient)
		if !validation.IsValid {
			return errors.Errorf("recipient address is not valid: %s", recipient)
		}
	}

	return nil
}

func summarizeAttempts(attempts []interfaces.DeliveryAttempt) string {
	parts := make([]string, 0, len(attempts))
	for _, attempt := range attempts {
		parts = append(parts, attempt.ProviderName+": "+attempt.ErrorDetail)
	}
	return strings.Join(parts, "; ")
}
