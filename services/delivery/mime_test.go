package delivery

import (
	"bufio"
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relocato/mailbridge/interfaces"
)

func TestBuildEnvelope_PlainText(t *testing.T) {
	// Arrange
	request := &interfaces.DeliveryRequest{
		To:       []string{"bob@example.com"},
		Cc:       []string{"carol@example.com"},
		Bcc:      []string{"dave@example.com"},
		Subject:  "Hello",
		TextBody: "plain body",
	}

	// Act
	envelope, err := buildEnvelope("Alice", "alice@example.com", "<id@example.com>", request)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", envelope.From)
	assert.Equal(t, []string{"bob@example.com", "carol@example.com", "dave@example.com"}, envelope.Recipients)
	assert.Equal(t, "<id@example.com>", envelope.MessageID)

	payload := envelope.Payload.String()
	assert.Contains(t, payload, "To: bob@example.com")
	assert.Contains(t, payload, "Cc: carol@example.com")
	assert.Contains(t, payload, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, payload, "plain body")
	// bcc recipients go on the envelope, never into the headers
	assert.NotContains(t, payload, "dave@example.com")
}

func TestBuildEnvelope_MultipartWithAttachment(t *testing.T) {
	// Arrange
	request := &interfaces.DeliveryRequest{
		To:       []string{"bob@example.com"},
		Subject:  "Report",
		TextBody: "see attachment",
		HTMLBody: "<p>see attachment</p>",
		Attachments: []interfaces.DeliveryAttachment{
			{Filename: "report.pdf", ContentType: "application/pdf", Content: []byte("%PDF-fake")},
		},
	}

	// Act
	envelope, err := buildEnvelope("", "alice@example.com", "<id@example.com>", request)

	// Assert
	require.NoError(t, err)
	payload := envelope.Payload.String()
	assert.Contains(t, payload, "multipart/mixed; boundary=")
	assert.Contains(t, payload, "text/plain; charset=UTF-8")
	assert.Contains(t, payload, "text/html; charset=UTF-8")
	assert.Contains(t, payload, `attachment; filename="report.pdf"`)
	assert.Contains(t, payload, "Content-Transfer-Encoding: base64")
}

// decodeMultipart parses a serialized payload the way a receiving client
// would: headers first, then each part decoded per its declared
// Content-Transfer-Encoding.
func decodeMultipart(t *testing.T, payload string) map[string]string {
	t.Helper()

	reader := textproto.NewReader(bufio.NewReader(strings.NewReader(payload)))
	header, err := reader.ReadMIMEHeader()
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	parts := map[string]string{}
	mr := multipart.NewReader(reader.R, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(part)
		require.NoError(t, err)
		parts[part.Header.Get("Content-Type")] = string(content)
	}
	return parts
}

func TestBuildEnvelope_BodyRoundTrip(t *testing.T) {
	// Arrange: literal =XX sequences and 8-bit text, both of which a
	// part that declares quoted-printable must encode
	text := "Discount =20 percent, total =E2=82=AC ninety"
	html := "<p>Grüße aus München, Rabatt =3D 20%</p>"
	request := &interfaces.DeliveryRequest{
		To:       []string{"bob@example.com"},
		Subject:  "Angebot",
		TextBody: text,
		HTMLBody: html,
	}

	// Act
	envelope, err := buildEnvelope("", "alice@example.com", "<id@example.com>", request)

	// Assert: the receiver gets back exactly what the caller sent
	require.NoError(t, err)
	decoded := decodeMultipart(t, envelope.Payload.String())
	assert.Equal(t, text, decoded["text/plain; charset=UTF-8"])
	assert.Equal(t, html, decoded["text/html; charset=UTF-8"])
}

func TestBuildEnvelope_PlainTextRoundTrip(t *testing.T) {
	// Arrange
	text := "Rechnung über =E2=82=AC 100, Skonto =20"
	request := &interfaces.DeliveryRequest{
		To:       []string{"bob@example.com"},
		Subject:  "Rechnung",
		TextBody: text,
	}

	// Act
	envelope, err := buildEnvelope("", "alice@example.com", "<id@example.com>", request)

	// Assert
	require.NoError(t, err)
	reader := textproto.NewReader(bufio.NewReader(strings.NewReader(envelope.Payload.String())))
	header, err := reader.ReadMIMEHeader()
	require.NoError(t, err)
	assert.Equal(t, "quoted-printable", header.Get("Content-Transfer-Encoding"))

	decoded, err := io.ReadAll(quotedprintable.NewReader(reader.R))
	require.NoError(t, err)
	assert.Equal(t, text, string(decoded))
}

func TestWriteHeaders_FixedOrder(t *testing.T) {
	// Arrange
	headers := map[string]string{
		"Subject":      "s",
		"From":         "f",
		"To":           "t",
		"MIME-Version": "1.0",
		"Content-Type": "text/plain",
	}

	// Act
	var first, second bytes.Buffer
	writeHeaders(headers, &first)
	writeHeaders(headers, &second)

	// Assert
	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, "From: f\r\nTo: t\r\nSubject: s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain\r\n\r\n", first.String())
}

func TestFormatSender(t *testing.T) {
	assert.Equal(t, "alice@example.com", formatSender("", "alice@example.com"))
	assert.Equal(t, "Alice <alice@example.com>", formatSender("Alice", "alice@example.com"))
}
