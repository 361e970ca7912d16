package mailparse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedTime
}

func TestParseHeaderBlock(t *testing.T) {
	// Arrange
	raw := []byte("From: alice@example.com\r\n" +
		"Subject: a very long subject\r\n" +
		"\tthat continues on the next line\r\n" +
		"To: bob@example.com\r\n" +
		"\r\n" +
		"Body: should not be parsed\r\n")

	// Act
	fields := ParseHeaderBlock(raw)

	// Assert
	require.Len(t, fields, 3)
	assert.Equal(t, "From", fields[0].Name)
	assert.Equal(t, "a very long subject that continues on the next line", fields[1].Value)
	assert.Equal(t, "To", fields[2].Name)
}

func TestHeaderValue_CaseInsensitive(t *testing.T) {
	fields := ParseHeaderBlock([]byte("Message-ID: <abc@example.com>\r\n\r\n"))
	assert.Equal(t, "<abc@example.com>", HeaderValue(fields, "message-id"))
	assert.Empty(t, HeaderValue(fields, "Subject"))
}

func TestParseSummary(t *testing.T) {
	// Arrange
	headerBlock := []byte("From: \"Alice\" <alice@example.com>\r\n" +
		"To: bob@example.com, carol@example.com\r\n" +
		"Subject: Quarterly report\r\n" +
		"Date: Tue, 01 Apr 2025 10:00:00 +0000\r\n" +
		"\r\n")

	// Act
	summary, err := ParseSummary("INBOX", 42, 7, []string{"\\Seen"}, 2048, headerBlock, fixedClock)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint32(42), summary.UID)
	assert.Equal(t, uint32(7), summary.SeqNum)
	assert.Equal(t, "INBOX", summary.Folder)
	assert.Equal(t, "Alice", summary.From.Name)
	assert.Equal(t, "alice@example.com", summary.From.Address)
	assert.Len(t, summary.To, 2)
	assert.Equal(t, "Quarterly report", summary.Subject)
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), summary.Date.UTC())
	assert.Equal(t, uint32(2048), summary.SizeBytes)
}

func TestParseSummary_MissingSubjectAndDate(t *testing.T) {
	// Arrange
	headerBlock := []byte("From: alice@example.com\r\n\r\n")

	// Act
	summary, err := ParseSummary("INBOX", 1, 1, nil, 0, headerBlock, fixedClock)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, NoSubjectPlaceholder, summary.Subject)
	assert.Equal(t, fixedTime, summary.Date)
}

func TestParseSummary_UnparsableDateFallsBack(t *testing.T) {
	headerBlock := []byte("From: alice@example.com\r\nDate: not a date\r\n\r\n")

	summary, err := ParseSummary("INBOX", 1, 1, nil, 0, headerBlock, fixedClock)

	require.NoError(t, err)
	assert.Equal(t, fixedTime, summary.Date)
}

func TestParseSummary_EmptyHeaderBlock(t *testing.T) {
	_, err := ParseSummary("INBOX", 1, 1, nil, 0, []byte("  \r\n"), fixedClock)
	assert.Error(t, err)
}

func TestParseMessage_PlainText(t *testing.T) {
	// Arrange
	raw := []byte("From: \"Alice\" <alice@example.com>\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Hello\r\n" +
		"Date: Tue, 01 Apr 2025 10:00:00 +0000\r\n" +
		"Content-Type: text/plain; charset=UTF-8\r\n" +
		"\r\n" +
		"Line one\r\nLine two\r\n")

	// Act
	detail, err := ParseMessage("INBOX", 42, 7, []string{"\\Seen"}, raw, fixedClock)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint32(42), detail.UID)
	assert.Equal(t, "Hello", detail.Subject)
	assert.Contains(t, detail.TextBody, "Line one")
	// text-only messages still get a rendered HTML body
	assert.Contains(t, detail.HTMLBody, "Line one")
	assert.Contains(t, detail.HTMLBody, "<br>")
	assert.Empty(t, detail.Attachments)
	assert.NotEmpty(t, detail.Headers)
}

func TestParseMessage_PopulatesPreview(t *testing.T) {
	// Arrange
	raw := []byte("From: alice@example.com\r\n" +
		"Subject: Offer\r\n" +
		"Content-Type: text/html; charset=UTF-8\r\n" +
		"\r\n" +
		"<html><head><title>ignored</title></head>" +
		"<body><p>Sehr geehrte Damen und Herren,</p><p>wir bestätigen Ihren Auftrag.</p></body></html>\r\n")

	// Act
	detail, err := ParseMessage("INBOX", 5, 1, nil, raw, fixedClock)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "Sehr geehrte Damen und Herren, wir bestätigen Ihren Auftrag.", detail.Preview)
	assert.NotContains(t, detail.Preview, "ignored")
}

func TestParseMessage_NoSubject(t *testing.T) {
	raw := []byte("From: alice@example.com\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"hi\r\n")

	detail, err := ParseMessage("INBOX", 1, 1, nil, raw, fixedClock)

	require.NoError(t, err)
	assert.Equal(t, NoSubjectPlaceholder, detail.Subject)
	assert.Equal(t, fixedTime, detail.Date)
}

func TestParseMessage_Garbage(t *testing.T) {
	_, err := ParseMessage("INBOX", 1, 1, nil, nil, fixedClock)
	assert.Error(t, err)
}

func TestTextToHTML(t *testing.T) {
	result := TextToHTML("a < b\nnext & last")

	assert.True(t, strings.HasPrefix(result, "<div>"))
	assert.Contains(t, result, "a &lt; b")
	assert.Contains(t, result, "<br>")
	assert.Contains(t, result, "&amp;")
}
