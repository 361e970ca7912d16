package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/mailparse"
	"github.com/relocato/mailbridge/internal/models"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

const reconcileBatchSize = 50

// SyncService persists fetched messages keyed by (ownerId, folder, uid).
// Upserts are idempotent, so overlapping or retried syncs converge.
type SyncService struct {
	log          logger.Logger
	mailbox      interfaces.MailboxService
	emails       interfaces.EmailRepository
	syncStates   interfaces.SyncStateRepository
	syncPageSize int
}

func NewSyncService(log logger.Logger, mailbox interfaces.MailboxService, emails interfaces.EmailRepository, syncStates interfaces.SyncStateRepository, pageSize int) *SyncService {
	if pageSize < 1 {
		pageSize = reconcileBatchSize
	}
	return &SyncService{
		log:          log,
		mailbox:      mailbox,
		emails:       emails,
		syncStates:   syncStates,
		syncPageSize: pageSize,
	}
}

func (s *SyncService) Reconcile(ctx context.Context, ownerID, folder string, messages []interfaces.MessageDetail, forceResync bool) (*interfaces.ReconcileResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.Reconcile")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", folder)
	span.SetTag("messages.count", len(messages))
	span.SetTag("force.resync", forceResync)

	if ownerID == "" {
		err := errors.Wrap(errs.ErrOwnerNotSet, "reconcile requires an owner")
		tracing.TraceErr(span, err)
		return nil, err
	}

	mode := interfaces.UpsertModeMerge
	if forceResync {
		mode = interfaces.UpsertModeReplace
	}

	result := &interfaces.ReconcileResult{}

	for start := 0; start < len(messages); start += reconcileBatchSize {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		end := start + reconcileBatchSize
		if end > len(messages) {
			end = len(messages)
		}

		for i := start; i < end; i++ {
			record := emailFromDetail(ownerID, &messages[i])
			changed, err := s.emails.Upsert(ctx, record, mode)
			if err != nil {
				key := fmt.Sprintf("%s/%d", folder, messages[i].UID)
				result.Errors = append(result.Errors, errs.NewItemError(key, err))
				tracing.TraceErr(span, err)
				continue
			}
			if changed {
				result.Written++
			} else {
				result.Skipped++
			}
		}
	}

	span.SetTag("written", result.Written)
	span.SetTag("skipped", result.Skipped)
	span.SetTag("errors", len(result.Errors))

	return result, nil
}

func (s *SyncService) SyncFolder(ctx context.Context, ownerID, folder string, forceResync bool) (*interfaces.ReconcileResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.SyncFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", folder)
	span.SetTag("force.resync", forceResync)

	if ownerID == "" {
		err := errors.Wrap(errs.ErrOwnerNotSet, "folder sync requires an owner")
		tracing.TraceErr(span, err)
		return nil, err
	}

	var lastUID uint32
	if forceResync {
		if err := s.syncStates.DeleteSyncState(ctx, ownerID, folder); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
	} else {
		state, err := s.syncStates.GetSyncState(ctx, ownerID, folder)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		if state != nil {
			lastUID = state.LastUID
		}
	}
	span.SetTag("last.uid", lastUID)

	total := &interfaces.ReconcileResult{}
	highestUID := lastUID

	// pages walk newest-first; stop as soon as a page holds nothing newer
	// than the resume point
	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		listing, err := s.mailbox.ListMessages(ctx, folder, page, s.syncPageSize, "")
		if err != nil {
			tracing.TraceErr(span, err)
			return total, err
		}
		for _, skipped := range listing.Skipped {
			total.Errors = append(total.Errors, skipped)
		}
		if len(listing.Messages) == 0 {
			break
		}

		var batch []interfaces.MessageDetail
		sawOlder := false
		for _, summary := range listing.Messages {
			if summary.UID <= lastUID {
				sawOlder = true
				continue
			}
			if summary.UID > highestUID {
				highestUID = summary.UID
			}
			batch = append(batch, interfaces.MessageDetail{MessageSummary: summary})
		}

		if len(batch) > 0 {
			result, err := s.Reconcile(ctx, ownerID, folder, batch, forceResync)
			if result != nil {
				total.Written += result.Written
				total.Skipped += result.Skipped
				total.Errors = append(total.Errors, result.Errors...)
			}
			if err != nil {
				return total, err
			}
		}

		if sawOlder {
			break
		}
	}

	if highestUID > lastUID || forceResync {
		state := &models.FolderSyncState{
			OwnerID:  ownerID,
			Folder:   folder,
			LastUID:  highestUID,
			LastSync: utils.Now(),
		}
		if err := s.syncStates.SaveSyncState(ctx, state); err != nil {
			// the sync itself succeeded; a stale resume point only costs
			// re-upserting already stored messages
			tracing.TraceErr(span, err)
			s.log.Warnf("Failed to save sync state for %s: %v", folder, err)
		}
	}

	span.SetTag("written", total.Written)
	span.SetTag("skipped", total.Skipped)

	return total, nil
}

// emailFromDetail maps a fetched message onto its stored form.
func emailFromDetail(ownerID string, detail *interfaces.MessageDetail) *models.Email {
	sentAt := detail.Date

	record := &models.Email{
		OwnerID:       ownerID,
		Folder:        detail.Folder,
		ImapUID:       detail.UID,
		Subject:       detail.Subject,
		FromAddress:   detail.From.Address,
		FromName:      detail.From.Name,
		ToAddresses:   addressStrings(detail.To),
		CcAddresses:   addressStrings(detail.Cc),
		Flags:         append([]string(nil), detail.Flags...),
		SentAt:        &sentAt,
		SyncedAt:      utils.Now(),
		BodyText:      detail.TextBody,
		BodyHTML:      detail.HTMLBody,
		Preview:       detail.Preview,
		SizeBytes:     detail.SizeBytes,
		HasAttachment: len(detail.Attachments) > 0,
	}

	for _, header := range detail.Headers {
		if record.RawHeaders == nil {
			record.RawHeaders = models.JSONMap{}
		}
		record.RawHeaders[header.Name] = header.Value
	}

	if messageID := headerLookup(detail.Headers, "Message-Id"); messageID != "" {
		record.MessageID = messageID
	}

	if len(detail.Attachments) > 0 {
		items := make([]interface{}, 0, len(detail.Attachments))
		for _, att := range detail.Attachments {
			items = append(items, map[string]interface{}{
				"filename":    att.Filename,
				"contentType": att.ContentType,
				"sizeBytes":   att.SizeBytes,
				"contentId":   att.ContentID,
			})
		}
		record.Attachments = models.JSONMap{"items": items}
	}

	return record
}

func addressStrings(addresses []interfaces.EmailAddress) []string {
	if len(addresses) == 0 {
		return nil
	}
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, mailparse.FormatAddress(a))
	}
	return out
}

func headerLookup(headers []interfaces.HeaderField, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
