package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relocato/mailbridge/internal/models"
)

func TestNormalizeForStorage(t *testing.T) {
	// Arrange
	email := &models.Email{
		MessageID: "<abc123@example.com>",
		Subject:   "Re: Fwd: Quarterly report",
	}

	// Act
	normalizeForStorage(email)

	// Assert
	assert.Equal(t, "abc123@example.com", email.MessageID)
	assert.Equal(t, "Quarterly report", email.CleanSubject)
}

func TestNormalizeForStorage_PlainSubject(t *testing.T) {
	email := &models.Email{
		MessageID: "abc123@example.com",
		Subject:   "Rechnung August",
	}

	normalizeForStorage(email)

	assert.Equal(t, "abc123@example.com", email.MessageID)
	assert.Equal(t, "Rechnung August", email.CleanSubject)
}

func TestMergeEmail_IncomingFieldsWin(t *testing.T) {
	// Arrange
	sentAt := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	existing := &models.Email{
		Subject:      "old subject",
		CleanSubject: "old subject",
		Preview:      "old preview",
		BodyText:     "old body",
	}
	incoming := &models.Email{
		Subject:      "Re: new subject",
		CleanSubject: "new subject",
		Preview:      "new preview",
		SentAt:       &sentAt,
	}

	// Act
	merged := mergeEmail(existing, incoming)

	// Assert
	assert.Equal(t, "Re: new subject", merged.Subject)
	assert.Equal(t, "new subject", merged.CleanSubject)
	assert.Equal(t, "new preview", merged.Preview)
	assert.Equal(t, &sentAt, merged.SentAt)
	// stored fields survive when the incoming record carries nothing
	assert.Equal(t, "old body", merged.BodyText)
}

func TestMergeEmail_EmptyIncomingKeepsStored(t *testing.T) {
	existing := &models.Email{
		Subject:      "kept",
		CleanSubject: "kept",
		Preview:      "kept preview",
		SizeBytes:    1024,
	}
	incoming := &models.Email{SyncedAt: time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)}

	merged := mergeEmail(existing, incoming)

	assert.Equal(t, "kept", merged.Subject)
	assert.Equal(t, "kept", merged.CleanSubject)
	assert.Equal(t, "kept preview", merged.Preview)
	assert.Equal(t, uint32(1024), merged.SizeBytes)
	assert.Equal(t, incoming.SyncedAt, merged.SyncedAt)
}
