package imap

import (
	"bytes"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
)

func TestPaginationWindow(t *testing.T) {
	testCases := []struct {
		name          string
		total         uint32
		page          int
		pageSize      int
		expectedStart uint32
		expectedEnd   uint32
		expectedEmpty bool
	}{
		{
			name:  "empty folder",
			total: 0, page: 1, pageSize: 10,
			expectedEmpty: true,
		},
		{
			name:  "page larger than folder",
			total: 5, page: 1, pageSize: 50,
			expectedStart: 1, expectedEnd: 5,
		},
		{
			name:  "second page clamps at oldest",
			total: 5, page: 2, pageSize: 3,
			expectedStart: 1, expectedEnd: 2,
		},
		{
			name:  "third page of large folder",
			total: 120, page: 3, pageSize: 50,
			expectedStart: 1, expectedEnd: 20,
		},
		{
			name:  "first page of large folder",
			total: 120, page: 1, pageSize: 50,
			expectedStart: 71, expectedEnd: 120,
		},
		{
			name:  "exact single message",
			total: 1, page: 1, pageSize: 1,
			expectedStart: 1, expectedEnd: 1,
		},
		{
			name:  "invalid page",
			total: 10, page: 0, pageSize: 10,
			expectedEmpty: true,
		},
		{
			name:  "invalid page size",
			total: 10, page: 1, pageSize: 0,
			expectedEmpty: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			start, end, empty := paginationWindow(tc.total, tc.page, tc.pageSize)

			// Assert
			assert.Equal(t, tc.expectedEmpty, empty)
			if !tc.expectedEmpty {
				assert.Equal(t, tc.expectedStart, start)
				assert.Equal(t, tc.expectedEnd, end)
			}
		})
	}
}

func TestPaginationWindow_ConsecutivePagesCoverFolderOnce(t *testing.T) {
	// Arrange
	const total = 57
	const pageSize = 10
	covered := make(map[uint32]int)

	// Act
	for page := 1; ; page++ {
		start, end, empty := paginationWindow(total, page, pageSize)
		if empty {
			break
		}
		for pos := start; pos <= end; pos++ {
			covered[pos]++
		}
		if start == 1 {
			break
		}
	}

	// Assert
	assert.Len(t, covered, total)
	for pos, count := range covered {
		assert.Equalf(t, 1, count, "position %d fetched %d times", pos, count)
	}
}

// headerMessage mimics a parsed fetch response: the body map key carries
// no peek flag, the way the server reports the section back.
func headerMessage(seq, uid uint32, headerBlock string) *goimap.Message {
	responseSection := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Specifier: goimap.HeaderSpecifier},
	}
	return &goimap.Message{
		SeqNum: seq,
		Uid:    uid,
		Flags:  []string{goimap.SeenFlag},
		Size:   512,
		Body: map[*goimap.BodySectionName]goimap.Literal{
			responseSection: bytes.NewBufferString(headerBlock),
		},
	}
}

func TestCollectSummaries_MalformedMessageBecomesSkipEntry(t *testing.T) {
	// Arrange
	service := &IMAPService{now: func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }}
	section := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Specifier: goimap.HeaderSpecifier},
		Peek:         true,
	}

	messages := make(chan *goimap.Message, 3)
	messages <- headerMessage(1, 11, "From: alice@example.com\r\nSubject: first\r\n\r\n")
	messages <- headerMessage(2, 12, "   \r\n")
	messages <- headerMessage(3, 13, "From: bob@example.com\r\nSubject: third\r\n\r\n")
	close(messages)

	result := &interfaces.MessagePage{}

	// Act
	service.collectSummaries(result, "INBOX", messages, section)

	// Assert: the unparsable message is isolated, the rest of the page survives
	require.Len(t, result.Messages, 2)
	assert.Equal(t, "first", result.Messages[0].Subject)
	assert.Equal(t, "third", result.Messages[1].Subject)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "seq:2", result.Skipped[0].Key)
	assert.NotEmpty(t, result.Skipped[0].Reason)
}

func TestCollectSummaries_MissingHeaderBodyBecomesSkipEntry(t *testing.T) {
	// Arrange
	service := &IMAPService{now: time.Now}
	section := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Specifier: goimap.HeaderSpecifier},
		Peek:         true,
	}

	messages := make(chan *goimap.Message, 2)
	messages <- headerMessage(1, 11, "From: alice@example.com\r\n\r\n")
	messages <- &goimap.Message{SeqNum: 2, Uid: 12}
	close(messages)

	result := &interfaces.MessagePage{}

	// Act
	service.collectSummaries(result, "INBOX", messages, section)

	// Assert
	require.Len(t, result.Messages, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "seq:2", result.Skipped[0].Key)
}

type fakeNetError struct {
	timeout bool
}

func (e *fakeNetError) Error() string   { return "read tcp 10.0.0.1:993: connection reset" }
func (e *fakeNetError) Timeout() bool   { return e.timeout }
func (e *fakeNetError) Temporary() bool { return false }

func TestClassifySelectErr(t *testing.T) {
	t.Run("timeout keeps its identity", func(t *testing.T) {
		err := classifySelectErr(&fakeNetError{timeout: true}, "INBOX")

		assert.True(t, errors.Is(err, errs.ErrConnectionTimeout))
		assert.False(t, errors.Is(err, errs.ErrFolderNotFound))
	})

	t.Run("connection drop is not folder-not-found", func(t *testing.T) {
		err := classifySelectErr(&fakeNetError{}, "INBOX")

		assert.False(t, errors.Is(err, errs.ErrFolderNotFound))
		assert.False(t, errors.Is(err, errs.ErrConnectionTimeout))
		assert.Contains(t, err.Error(), "selecting INBOX")
	})

	t.Run("server rejection is folder-not-found", func(t *testing.T) {
		err := classifySelectErr(errors.New("Mailbox doesn't exist: Nope"), "Nope")

		assert.True(t, errors.Is(err, errs.ErrFolderNotFound))
	})
}

func TestSearchCriteria(t *testing.T) {
	// Act
	criteria := searchCriteria("invoice")

	// Assert: a chain of ORs covering subject, from, to and body
	assert.Len(t, criteria.Or, 1)
	first := criteria.Or[0]
	assert.Equal(t, []string{"invoice"}, first[0].Header["Subject"])

	second := first[1].Or[0]
	assert.Equal(t, []string{"invoice"}, second[0].Header["From"])

	third := second[1].Or[0]
	assert.Equal(t, []string{"invoice"}, third[0].Header["To"])
	assert.Equal(t, []string{"invoice"}, third[1].Body)
}
