package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMessageID(t *testing.T) {
	// Act
	id := GenerateMessageID("example.com", "")

	// Assert: <localPart@domain> shape
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@example.com>"))
	assert.NotContains(t, id, " ")
}

func TestGenerateMessageID_MetadataChangesLocalPart(t *testing.T) {
	withMeta := GenerateMessageID("example.com", "thread-42")
	withoutMeta := GenerateMessageID("example.com", "")

	// metadata appends a hash segment after the random id
	assert.Greater(t, strings.Count(withMeta, "."), strings.Count(withoutMeta, "."))
}

func TestGenerateMessageID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateMessageID("example.com", "")
		_, exists := seen[id]
		require.False(t, exists, "duplicate message id: %s", id)
		seen[id] = struct{}{}
	}
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("dlv", 16)

	parts := strings.SplitN(id, "_", 2)
	require.Len(t, parts, 2)
	assert.Equal(t, "dlv", parts[0])
	assert.Len(t, parts[1], 16)
}

func TestNow_IsUTC(t *testing.T) {
	assert.Equal(t, "UTC", Now().Location().String())
}
