package mailparse

import (
	"bytes"
	"html"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/interfaces"
)

// NoSubjectPlaceholder substitutes a missing subject so callers never see
// an empty one.
const NoSubjectPlaceholder = "(no subject)"

// Clock supplies the fallback timestamp for messages without a Date
// header. Overridable in tests.
type Clock func() time.Time

// ParseSummary builds a header-only summary from a raw header block.
// Missing subject and date fall back to the placeholder and parse time
// respectively; a summary is produced for any header block, malformed
// addresses included.
func ParseSummary(folder string, uid, seqNum uint32, flags []string, sizeBytes uint32, headerBlock []byte, now Clock) (interfaces.MessageSummary, error) {
	if len(bytes.TrimSpace(headerBlock)) == 0 {
		return interfaces.MessageSummary{}, errors.New("empty header block")
	}

	fields := ParseHeaderBlock(headerBlock)
	if len(fields) == 0 {
		return interfaces.MessageSummary{}, errors.New("no parsable headers")
	}

	summary := interfaces.MessageSummary{
		UID:       uid,
		SeqNum:    seqNum,
		Folder:    folder,
		Flags:     flags,
		SizeBytes: sizeBytes,
		From:      ParseAddress(HeaderValue(fields, "From")),
		To:        ParseAddressList(HeaderValue(fields, "To")),
		Cc:        ParseAddressList(HeaderValue(fields, "Cc")),
		Subject:   subjectOrPlaceholder(HeaderValue(fields, "Subject")),
		Date:      parseDate(HeaderValue(fields, "Date"), now),
	}

	return summary, nil
}

// ParseMessage parses a full MIME payload into a message detail. Binary
// attachment content is not inlined; only filename, content type and size
// are reported.
func ParseMessage(folder string, uid, seqNum uint32, flags []string, raw []byte, now Clock) (*interfaces.MessageDetail, error) {
	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse message payload")
	}

	headers := make([]interfaces.HeaderField, 0)
	for _, key := range envelope.GetHeaderKeys() {
		for _, value := range envelope.GetHeaderValues(key) {
			headers = append(headers, interfaces.HeaderField{Name: key, Value: value})
		}
	}

	textBody := envelope.Text
	htmlBody := envelope.HTML
	if htmlBody == "" && textBody != "" {
		htmlBody = TextToHTML(textBody)
	}

	attachments := make([]interfaces.AttachmentInfo, 0, len(envelope.Attachments))
	for _, part := range envelope.Attachments {
		attachments = append(attachments, interfaces.AttachmentInfo{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			SizeBytes:   len(part.Content),
			ContentID:   part.ContentID,
		})
	}

	detail := &interfaces.MessageDetail{
		MessageSummary: interfaces.MessageSummary{
			UID:       uid,
			SeqNum:    seqNum,
			Folder:    folder,
			Flags:     flags,
			SizeBytes: uint32(len(raw)),
			From:      ParseAddress(envelope.GetHeader("From")),
			To:        ParseAddressList(envelope.GetHeader("To")),
			Cc:        ParseAddressList(envelope.GetHeader("Cc")),
			Subject:   subjectOrPlaceholder(envelope.GetHeader("Subject")),
			Date:      parseDate(envelope.GetHeader("Date"), now),
		},
		TextBody:    textBody,
		HTMLBody:    htmlBody,
		Preview:     ExtractPreview(htmlBody, DefaultPreviewLength),
		Attachments: attachments,
		Headers:     headers,
	}

	return detail, nil
}

// TextToHTML renders a plain text body as minimal HTML for clients that
// only display HTML.
func TextToHTML(text string) string {
	escaped := html.EscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>\n")
	return "<div>" + escaped + "</div>"
}

func subjectOrPlaceholder(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return NoSubjectPlaceholder
	}
	return subject
}

func parseDate(value string, now Clock) time.Time {
	if now == nil {
		now = time.Now
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return now()
	}
	parsed, err := mail.ParseDate(value)
	if err != nil {
		return now()
	}
	return parsed
}
