package mailparse

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/relocato/mailbridge/interfaces"
)

// ParseHeaderBlock scans a raw header block into ordered fields, unfolding
// continuation lines. It stops at the first empty line.
func ParseHeaderBlock(raw []byte) []interfaces.HeaderField {
	var fields []interfaces.HeaderField

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}

		// Folded continuation of the previous field
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(fields) > 0 {
			fields[len(fields)-1].Value += " " + strings.TrimSpace(line)
			continue
		}

		colon := strings.Index(line, ":")
		if colon <= 0 {
			continue
		}

		fields = append(fields, interfaces.HeaderField{
			Name:  strings.TrimSpace(line[:colon]),
			Value: strings.TrimSpace(line[colon+1:]),
		})
	}

	return fields
}

// HeaderValue returns the first value for a header name, case-insensitive.
func HeaderValue(fields []interfaces.HeaderField, name string) string {
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}
