package imap

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"sort"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/mailparse"
	"github.com/relocato/mailbridge/internal/tracing"
)

// paginationWindow computes the inclusive 1-based fetch window for a
// newest-first listing. Position total is the newest message. A window
// whose start exceeds total means the page is past the end; the caller
// returns an empty page with total preserved.
func paginationWindow(total uint32, page, pageSize int) (start, end uint32, empty bool) {
	if total == 0 || page < 1 || pageSize < 1 {
		return 0, 0, true
	}

	t := int64(total)
	p := int64(page)
	s := int64(pageSize)

	startPos := t - p*s + 1
	if startPos < 1 {
		startPos = 1
	}
	endPos := t - (p-1)*s
	if endPos < 1 {
		endPos = 1
	}
	if startPos > t || endPos < startPos {
		return 0, 0, true
	}
	return uint32(startPos), uint32(endPos), false
}

// searchCriteria builds an OR across subject, from, to and body for a
// substring query.
func searchCriteria(query string) *goimap.SearchCriteria {
	subject := &goimap.SearchCriteria{Header: textproto.MIMEHeader{"Subject": {query}}}
	from := &goimap.SearchCriteria{Header: textproto.MIMEHeader{"From": {query}}}
	to := &goimap.SearchCriteria{Header: textproto.MIMEHeader{"To": {query}}}
	body := &goimap.SearchCriteria{Body: []string{query}}

	return &goimap.SearchCriteria{
		Or: [][2]*goimap.SearchCriteria{{
			subject,
			{Or: [][2]*goimap.SearchCriteria{{
				from,
				{Or: [][2]*goimap.SearchCriteria{{to, body}}},
			}}},
		}},
	}
}

func (s *IMAPService) selectFolder(ctx context.Context, session *Session, folder string) (*goimap.MailboxStatus, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPService.selectFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", folder)

	c := session.client

	c.Timeout = 30 * time.Second
	mbox, err := c.Select(folder, false)
	c.Timeout = 0
	if err != nil {
		classified := classifySelectErr(err, folder)
		tracing.TraceErr(span, classified)
		return nil, classified
	}

	span.SetTag("messages.total", mbox.Messages)
	span.SetTag("messages.unseen", mbox.Unseen)

	return mbox, nil
}

// classifySelectErr separates transport failures from the server rejecting
// the mailbox name. Only the latter reads as folder-not-found; a dropped or
// timed-out connection keeps its own identity.
func classifySelectErr(err error, folder string) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.Wrapf(errs.ErrConnectionTimeout, "selecting %s: %v", folder, err)
		}
		return errors.Wrapf(err, "selecting %s", folder)
	}
	return errors.Wrapf(errs.ErrFolderNotFound, "selecting %s: %v", folder, err)
}

func (s *IMAPService) listMessages(ctx context.Context, session *Session, folder string, page, pageSize int, query string) (*interfaces.MessagePage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.listMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", folder)
	span.SetTag("page", page)
	span.SetTag("page.size", pageSize)

	if pageSize < 1 {
		pageSize = s.config.PageSize
	}
	if page < 1 {
		page = 1
	}

	mbox, err := s.selectFolder(ctx, session, folder)
	if err != nil {
		return nil, err
	}

	c := session.client

	var matched []uint32 // ascending sequence numbers of the matched set
	if query != "" {
		c.Timeout = 30 * time.Second
		seqNums, err := c.Search(searchCriteria(query))
		c.Timeout = 0
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(err, "search in %s failed", folder)
		}
		sort.Slice(seqNums, func(i, j int) bool { return seqNums[i] < seqNums[j] })
		matched = seqNums
	}

	total := mbox.Messages
	if query != "" {
		total = uint32(len(matched))
	}
	span.SetTag("matched.total", total)

	result := &interfaces.MessagePage{
		Messages: []interfaces.MessageSummary{},
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}

	start, end, emptyPage := paginationWindow(total, page, pageSize)
	if emptyPage {
		return result, nil
	}

	seqSet := new(goimap.SeqSet)
	if query == "" {
		seqSet.AddRange(start, end)
	} else {
		for pos := start; pos <= end; pos++ {
			seqSet.AddNum(matched[pos-1])
		}
	}

	headerSection := &goimap.BodySectionName{
		BodyPartName: goimap.BodyPartName{Specifier: goimap.HeaderSpecifier},
		Peek:         true,
	}

	items := []goimap.FetchItem{
		headerSection.FetchItem(),
		goimap.FetchFlags,
		goimap.FetchUid,
		goimap.FetchRFC822Size,
	}

	messages := make(chan *goimap.Message, pageSize)
	done := make(chan error, 1)

	c.Timeout = 60 * time.Second
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	s.collectSummaries(result, folder, messages, headerSection)

	c.Timeout = 0
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "fetch in %s failed", folder)
	}

	// server sequence order does not always match date order
	sort.SliceStable(result.Messages, func(i, j int) bool {
		return result.Messages[i].Date.After(result.Messages[j].Date)
	})

	span.SetTag("messages.returned", len(result.Messages))
	span.SetTag("messages.skipped", len(result.Skipped))

	return result, nil
}

// collectSummaries drains the fetch channel. A message whose headers fail
// to parse becomes a skip entry instead of failing the page.
func (s *IMAPService) collectSummaries(result *interfaces.MessagePage, folder string, messages <-chan *goimap.Message, section *goimap.BodySectionName) {
	for msg := range messages {
		summary, err := s.summaryFromFetch(folder, msg, section)
		if err != nil {
			result.Skipped = append(result.Skipped, errs.NewItemError(fmt.Sprintf("seq:%d", msg.SeqNum), err))
			continue
		}
		result.Messages = append(result.Messages, summary)
	}
}

func (s *IMAPService) summaryFromFetch(folder string, msg *goimap.Message, section *goimap.BodySectionName) (interfaces.MessageSummary, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		return interfaces.MessageSummary{}, errors.New("server returned no header body")
	}

	headerBlock, err := io.ReadAll(literal)
	if err != nil {
		return interfaces.MessageSummary{}, errors.Wrap(err, "reading header literal")
	}

	return mailparse.ParseSummary(folder, msg.Uid, msg.SeqNum, msg.Flags, msg.Size, headerBlock, s.now)
}

func (s *IMAPService) readMessage(ctx context.Context, session *Session, folder string, uid uint32) (*interfaces.MessageDetail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.readMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", folder)
	span.SetTag("message.uid", uid)

	if _, err := s.selectFolder(ctx, session, folder); err != nil {
		return nil, err
	}

	c := session.client

	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uid)

	// non-peek body fetch, the server marks the message seen
	bodySection := &goimap.BodySectionName{}

	items := []goimap.FetchItem{
		bodySection.FetchItem(),
		goimap.FetchFlags,
		goimap.FetchUid,
	}

	messages := make(chan *goimap.Message, 1)
	done := make(chan error, 1)

	c.Timeout = 60 * time.Second
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	var fetched *goimap.Message
	for msg := range messages {
		fetched = msg
	}

	c.Timeout = 0
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrapf(err, "fetch of uid %d in %s failed", uid, folder)
	}

	if fetched == nil {
		err := errors.Wrapf(errs.ErrMessageNotFound, "uid %d in %s", uid, folder)
		tracing.TraceErr(span, err)
		return nil, err
	}

	literal := fetched.GetBody(bodySection)
	if literal == nil {
		err := errors.Wrapf(errs.ErrMessageNotFound, "uid %d in %s returned no body", uid, folder)
		tracing.TraceErr(span, err)
		return nil, err
	}

	raw, err := io.ReadAll(literal)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "reading message literal")
	}

	detail, err := mailparse.ParseMessage(folder, fetched.Uid, fetched.SeqNum, fetched.Flags, raw, s.now)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return detail, nil
}
