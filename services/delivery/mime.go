package delivery

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/interfaces"
)

// messageEnvelope is the provider-independent wire form of an outbound
// message: the SMTP sender/recipients plus the serialized MIME payload.
type messageEnvelope struct {
	From       string
	Recipients []string
	MessageID  string
	Payload    *bytes.Buffer
}

// buildEnvelope serializes a delivery request into MIME. Text-only
// requests without attachments produce a plain body; anything richer
// becomes multipart/mixed.
func buildEnvelope(senderName, senderEmail, messageID string, request *interfaces.DeliveryRequest) (*messageEnvelope, error) {
	buffer := bytes.NewBuffer(nil)

	headers := map[string]string{
		"From":         formatSender(senderName, senderEmail),
		"To":           strings.Join(request.To, ", "),
		"Subject":      mime.QEncoding.Encode("UTF-8", request.Subject),
		"Message-ID":   messageID,
		"Date":         time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version": "1.0",
	}
	if len(request.Cc) > 0 {
		headers["Cc"] = strings.Join(request.Cc, ", ")
	}

	var err error
	if request.HTMLBody != "" || len(request.Attachments) > 0 {
		err = buildMultipart(headers, request, buffer)
	} else {
		err = buildPlainText(headers, request, buffer)
	}
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(request.To)+len(request.Cc)+len(request.Bcc))
	recipients = append(recipients, request.To...)
	recipients = append(recipients, request.Cc...)
	recipients = append(recipients, request.Bcc...)

	return &messageEnvelope{
		From:       senderEmail,
		Recipients: recipients,
		MessageID:  messageID,
		Payload:    buffer,
	}, nil
}

func formatSender(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("UTF-8", name), email)
}

// headerOrder fixes the emission order so identical requests serialize
// to identical payloads.
var headerOrder = []string{
	"From",
	"To",
	"Cc",
	"Subject",
	"Message-ID",
	"Date",
	"MIME-Version",
	"Content-Type",
	"Content-Transfer-Encoding",
}

func writeHeaders(headers map[string]string, buffer *bytes.Buffer) {
	for _, name := range headerOrder {
		if value, ok := headers[name]; ok {
			buffer.WriteString(fmt.Sprintf("%s: %s\r\n", name, value))
		}
	}
	buffer.WriteString("\r\n")
}

func buildPlainText(headers map[string]string, request *interfaces.DeliveryRequest, buffer *bytes.Buffer) error {
	headers["Content-Type"] = "text/plain; charset=UTF-8"
	headers["Content-Transfer-Encoding"] = "quoted-printable"
	writeHeaders(headers, buffer)

	qp := quotedprintable.NewWriter(buffer)
	if _, err := qp.Write([]byte(request.TextBody)); err != nil {
		return errors.Wrap(err, "failed to write plain text body")
	}
	return errors.Wrap(qp.Close(), "failed to flush plain text body")
}

func buildMultipart(headers map[string]string, request *interfaces.DeliveryRequest, buffer *bytes.Buffer) error {
	writer := multipart.NewWriter(buffer)
	headers["Content-Type"] = "multipart/mixed; boundary=" + writer.Boundary()

	writeHeaders(headers, buffer)

	if request.TextBody != "" {
		if err := addBodyPart(writer, "text/plain; charset=UTF-8", request.TextBody); err != nil {
			return err
		}
	}

	if request.HTMLBody != "" {
		if err := addBodyPart(writer, "text/html; charset=UTF-8", request.HTMLBody); err != nil {
			return err
		}
	}

	for i := range request.Attachments {
		if err := addAttachment(writer, &request.Attachments[i]); err != nil {
			return err
		}
	}

	return writer.Close()
}

func addBodyPart(writer *multipart.Writer, contentType, content string) error {
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create body part")
	}

	// the declared encoding must match the bytes on the wire, or the
	// receiver decodes text that was never encoded
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(content)); err != nil {
		return errors.Wrap(err, "failed to write body part")
	}
	return errors.Wrap(qp.Close(), "failed to flush body part")
}

func addAttachment(writer *multipart.Writer, attachment *interfaces.DeliveryAttachment) error {
	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {fmt.Sprintf("%s; name=%q", contentType, attachment.Filename)},
		"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachment.Filename)},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create attachment part")
	}

	encoded := base64.StdEncoding.EncodeToString(attachment.Content)
	// RFC 2045 line length limit
	for len(encoded) > 76 {
		if _, err := part.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return errors.Wrap(err, "failed to write attachment content")
		}
		encoded = encoded[76:]
	}
	_, err = part.Write([]byte(encoded))
	return errors.Wrap(err, "failed to write attachment content")
}
