package interfaces

import (
	"context"
	"time"

	"github.com/relocato/mailbridge/internal/errs"
)

// SpecialUse classifies a folder by role, derived from naming convention.
type SpecialUse string

const (
	SpecialUseInbox   SpecialUse = "inbox"
	SpecialUseSent    SpecialUse = "sent"
	SpecialUseDrafts  SpecialUse = "drafts"
	SpecialUseTrash   SpecialUse = "trash"
	SpecialUseSpam    SpecialUse = "spam"
	SpecialUseArchive SpecialUse = "archive"
	SpecialUseNone    SpecialUse = "none"
)

type FolderDescriptor struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"`
	Delimiter   string     `json:"delimiter"`
	ParentPath  string     `json:"parentPath,omitempty"`
	Level       int        `json:"level"`
	SpecialUse  SpecialUse `json:"specialUse"`
	HasChildren bool       `json:"hasChildren"`
	UnreadCount uint32     `json:"unreadCount"`
	TotalCount  uint32     `json:"totalCount"`
}

// FolderStats mirrors the transport-level SELECT response for a folder.
type FolderStats struct {
	Total  uint32 `json:"total"`
	Recent uint32 `json:"recent"`
	Unseen uint32 `json:"unseen"`
}

type EmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// MessageSummary is the header-only projection of a message. UID is the
// only identifier stable across calls; sequence numbers shift whenever
// messages are expunged and must never be used as a cross-call reference.
type MessageSummary struct {
	UID       uint32         `json:"uid"`
	SeqNum    uint32         `json:"seqNum"`
	Folder    string         `json:"folder"`
	From      EmailAddress   `json:"from"`
	To        []EmailAddress `json:"to"`
	Cc        []EmailAddress `json:"cc,omitempty"`
	Subject   string         `json:"subject"`
	Date      time.Time      `json:"date"`
	Flags     []string       `json:"flags"`
	SizeBytes uint32         `json:"sizeBytes"`
}

type AttachmentInfo struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int    `json:"sizeBytes"`
	ContentID   string `json:"contentId,omitempty"`
}

// HeaderField preserves original header ordering, which a plain map cannot.
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type MessageDetail struct {
	MessageSummary
	TextBody    string           `json:"textBody"`
	HTMLBody    string           `json:"htmlBody"`
	Preview     string           `json:"preview"`
	Attachments []AttachmentInfo `json:"attachments"`
	Headers     []HeaderField    `json:"headers"`
}

// MessagePage is one page of a folder listing. Total is the size of the
// matched set, not of the page. Skipped lists messages that failed to
// parse; a partial page is a valid result, not an error.
type MessagePage struct {
	Messages []MessageSummary `json:"messages"`
	Total    uint32           `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
	Skipped  []errs.ItemError `json:"skipped,omitempty"`
}

// MailboxService is the read path against the remote mailbox. Each call
// opens its own session, performs one logical unit of work and closes the
// session on every exit path.
type MailboxService interface {
	// ListFolders returns the folder tree depth-first, parents before children.
	ListFolders(ctx context.Context) ([]FolderDescriptor, error)

	// ListMessages returns one page of summaries, newest first. Page and
	// pageSize are 1-based. A non-empty query is matched as an OR across
	// subject, from, to and body.
	ListMessages(ctx context.Context, folder string, page, pageSize int, query string) (*MessagePage, error)

	// ReadMessage fetches the full message body. Per mailbox protocol
	// convention the fetch marks the message as seen on the server.
	ReadMessage(ctx context.Context, folder string, uid uint32) (*MessageDetail, error)
}
