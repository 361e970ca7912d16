package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/config"
	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

// HTTPAPIProvider delivers through a SendGrid-compatible mail API. It is
// the fallback when the SMTP relay is unreachable.
type HTTPAPIProvider struct {
	config      *config.HTTPDeliveryConfig
	senderName  string
	senderEmail string
	client      *http.Client
}

func NewHTTPAPIProvider(cfg *config.HTTPDeliveryConfig, senderName, senderEmail string) *HTTPAPIProvider {
	return &HTTPAPIProvider{
		config:      cfg,
		senderName:  senderName,
		senderEmail: senderEmail,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *HTTPAPIProvider) Name() string {
	return "httpapi"
}

type apiAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type apiPersonalization struct {
	To  []apiAddress `json:"to"`
	Cc  []apiAddress `json:"cc,omitempty"`
	Bcc []apiAddress `json:"bcc,omitempty"`
}

type apiContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type apiAttachment struct {
	Content     string `json:"content"`
	Type        string `json:"type,omitempty"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition"`
}

type apiSendRequest struct {
	Personalizations []apiPersonalization `json:"personalizations"`
	From             apiAddress           `json:"from"`
	Subject          string               `json:"subject"`
	Content          []apiContent         `json:"content"`
	Attachments      []apiAttachment      `json:"attachments,omitempty"`
}

func (p *HTTPAPIProvider) Send(ctx context.Context, request *interfaces.DeliveryRequest) (*interfaces.DeliveryReceipt, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HTTPAPIProvider.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if p.config.APIKey == "" {
		err := errors.Wrap(errs.ErrConfigurationMissing, "delivery API key is required")
		tracing.TraceErr(span, err)
		return nil, err
	}

	payload := apiSendRequest{
		Personalizations: []apiPersonalization{{
			To:  toAPIAddresses(request.To),
			Cc:  toAPIAddresses(request.Cc),
			Bcc: toAPIAddresses(request.Bcc),
		}},
		From:    apiAddress{Email: p.senderEmail, Name: p.senderName},
		Subject: request.Subject,
	}

	// the API requires text/plain before text/html
	if request.TextBody != "" {
		payload.Content = append(payload.Content, apiContent{Type: "text/plain", Value: request.TextBody})
	}
	if request.HTMLBody != "" {
		payload.Content = append(payload.Content, apiContent{Type: "text/html", Value: request.HTMLBody})
	}
	if len(payload.Content) == 0 {
		payload.Content = append(payload.Content, apiContent{Type: "text/plain", Value: ""})
	}

	for _, att := range request.Attachments {
		payload.Attachments = append(payload.Attachments, apiAttachment{
			Content:     base64.StdEncoding.EncodeToString(att.Content),
			Type:        att.ContentType,
			Filename:    att.Filename,
			Disposition: "attachment",
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to marshal send request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIUrl, bytes.NewReader(body))
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to build send request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "delivery API request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := errors.Errorf("delivery API returned %d: %s", resp.StatusCode, string(detail))
		tracing.TraceErr(span, err)
		return nil, err
	}

	messageID := resp.Header.Get("X-Message-Id")
	if messageID == "" {
		messageID = utils.GenerateMessageID(utils.ExtractDomainFromEmail(p.senderEmail), "")
	}

	span.SetTag("message.id", messageID)
	return &interfaces.DeliveryReceipt{MessageID: messageID}, nil
}

// Verify checks the credentials against the API without sending mail.
func (p *HTTPAPIProvider) Verify(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "HTTPAPIProvider.Verify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if p.config.APIKey == "" {
		err := errors.Wrap(errs.ErrConfigurationMissing, "delivery API key is required")
		tracing.TraceErr(span, err)
		return err
	}

	parsed, err := url.Parse(p.config.APIUrl)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "invalid delivery API url")
	}
	scopesURL := fmt.Sprintf("%s://%s/v3/scopes", parsed.Scheme, parsed.Host)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, scopesURL, nil)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to build verify request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "delivery API unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		err := errors.Wrapf(errs.ErrAuthenticationFailed, "delivery API returned %d", resp.StatusCode)
		tracing.TraceErr(span, err)
		return err
	}
	if resp.StatusCode >= 500 {
		err := errors.Errorf("delivery API returned %d", resp.StatusCode)
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func toAPIAddresses(emails []string) []apiAddress {
	if len(emails) == 0 {
		return nil
	}
	out := make([]apiAddress, 0, len(emails))
	for _, email := range emails {
		out = append(out, apiAddress{Email: email})
	}
	return out
}
