package mailparse

import (
	"regexp"
	"strings"

	"github.com/relocato/mailbridge/interfaces"
)

// Matches `"Display Name" <addr@host>`, `Display Name <addr@host>` and
// bare `addr@host`. Anything else falls through to the malformed case.
var addressRe = regexp.MustCompile(`^"?([^"<]*)"?\s*<?([^>]*)>?$`)

// ParseAddress normalizes a single address string. If no address pattern
// matches, the whole string is treated as the address with an empty name.
func ParseAddress(raw string) interfaces.EmailAddress {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return interfaces.EmailAddress{}
	}

	match := addressRe.FindStringSubmatch(raw)
	if match != nil {
		name := strings.TrimSpace(match[1])
		address := strings.TrimSpace(match[2])
		if address == "" {
			address = raw
			name = ""
		}
		return interfaces.EmailAddress{Name: name, Address: address}
	}

	return interfaces.EmailAddress{Name: "", Address: raw}
}

// ParseAddressList splits a header value on commas that are outside quoted
// strings and angle brackets, then normalizes each entry.
func ParseAddressList(raw string) []interfaces.EmailAddress {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var parts []string
	var current strings.Builder
	inQuotes := false
	inAngle := false

	for _, r := range raw {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case r == '<' && !inQuotes:
			inAngle = true
			current.WriteRune(r)
		case r == '>' && !inQuotes:
			inAngle = false
			current.WriteRune(r)
		case r == ',' && !inQuotes && !inAngle:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	addresses := make([]interfaces.EmailAddress, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		addresses = append(addresses, ParseAddress(part))
	}
	return addresses
}

// FormatAddress renders an address back to its header form.
func FormatAddress(addr interfaces.EmailAddress) string {
	if addr.Name == "" {
		return addr.Address
	}
	return `"` + addr.Name + `" <` + addr.Address + `>`
}
