package mailparse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relocato/mailbridge/interfaces"
)

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected interfaces.EmailAddress
	}{
		{
			name:     "quoted display name",
			raw:      `"John Doe" <john@example.com>`,
			expected: interfaces.EmailAddress{Name: "John Doe", Address: "john@example.com"},
		},
		{
			name:     "unquoted display name",
			raw:      "Jane Roe <jane@example.com>",
			expected: interfaces.EmailAddress{Name: "Jane Roe", Address: "jane@example.com"},
		},
		{
			name:     "bare address",
			raw:      "john@example.com",
			expected: interfaces.EmailAddress{Name: "", Address: "john@example.com"},
		},
		{
			name:     "angle brackets only",
			raw:      "<john@example.com>",
			expected: interfaces.EmailAddress{Name: "", Address: "john@example.com"},
		},
		{
			name:     "surrounding whitespace",
			raw:      "  kontakt@firma.de  ",
			expected: interfaces.EmailAddress{Name: "", Address: "kontakt@firma.de"},
		},
		{
			name:     "empty input",
			raw:      "",
			expected: interfaces.EmailAddress{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := ParseAddress(tc.raw)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestParseAddress_MalformedFallsBackToWholeString(t *testing.T) {
	// Arrange
	raw := "not-an-address"

	// Act
	result := ParseAddress(raw)

	// Assert
	assert.Empty(t, result.Name)
	assert.Equal(t, "not-an-address", result.Address)
}

func TestParseAddressList(t *testing.T) {
	// Arrange
	raw := `alice@example.com, "Doe, Jane" <jane@example.com>, Bob <bob@example.com>`

	// Act
	result := ParseAddressList(raw)

	// Assert
	assert.Len(t, result, 3)
	assert.Equal(t, "alice@example.com", result[0].Address)
	assert.Equal(t, "Doe, Jane", result[1].Name)
	assert.Equal(t, "jane@example.com", result[1].Address)
	assert.Equal(t, "Bob", result[2].Name)
	assert.Equal(t, "bob@example.com", result[2].Address)
}

func TestParseAddressList_Empty(t *testing.T) {
	assert.Nil(t, ParseAddressList(""))
	assert.Nil(t, ParseAddressList("   "))
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "john@example.com", FormatAddress(interfaces.EmailAddress{Address: "john@example.com"}))
	assert.Equal(t, `"John Doe" <john@example.com>`, FormatAddress(interfaces.EmailAddress{Name: "John Doe", Address: "john@example.com"}))
}
