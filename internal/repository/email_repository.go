package repository

import (
	"context"
	"reflect"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/models"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{
		db: db,
	}
}

// Upsert writes a message under its (ownerId, folder, uid) key. Merge mode
// keeps stored fields the incoming record does not supply; replace mode
// overwrites the stored record. Either way the write is idempotent for
// identical input.
func (r *emailRepository) Upsert(ctx context.Context, email *models.Email, mode interfaces.UpsertMode) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag("owner.id", email.OwnerID)
	span.SetTag("folder", email.Folder)
	span.SetTag("uid", email.ImapUID)
	span.SetTag("mode", string(mode))

	if email.OwnerID == "" || email.Folder == "" || email.ImapUID == 0 {
		err := errors.New("upsert requires ownerId, folder and uid")
		tracing.TraceErr(span, err)
		return false, err
	}

	existing, err := r.GetByKey(ctx, email.OwnerID, email.Folder, email.ImapUID)
	if err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}

	normalizeForStorage(email)
	email.SyncedAt = utils.Now()

	if existing == nil {
		if err := r.db.WithContext(ctx).Create(email).Error; err != nil {
			tracing.TraceErr(span, err)
			return false, err
		}
		return true, nil
	}

	if mode == interfaces.UpsertModeReplace {
		email.ID = existing.ID
		email.CreatedAt = existing.CreatedAt
		if err := r.db.WithContext(ctx).Save(email).Error; err != nil {
			tracing.TraceErr(span, err)
			return false, err
		}
		return true, nil
	}

	merged := mergeEmail(existing, email)
	shadow := *merged
	shadow.SyncedAt = existing.SyncedAt
	if reflect.DeepEqual(*existing, shadow) {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Save(merged).Error; err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}
	return true, nil
}

// normalizeForStorage derives the lookup columns from the raw header
// values before any write path touches the database.
func normalizeForStorage(email *models.Email) {
	email.MessageID = strings.Trim(email.MessageID, "<>")
	email.CleanSubject = utils.NormalizeSubject(email.Subject)
}

// mergeEmail overlays the incoming record on the stored one: incoming
// fields that carry data win, stored fields survive where the incoming
// record is empty.
func mergeEmail(existing, incoming *models.Email) *models.Email {
	merged := *existing
	merged.SyncedAt = incoming.SyncedAt

	if incoming.MessageID != "" {
		merged.MessageID = incoming.MessageID
	}
	if incoming.Subject != "" {
		merged.Subject = incoming.Subject
		merged.CleanSubject = incoming.CleanSubject
	}
	if incoming.Preview != "" {
		merged.Preview = incoming.Preview
	}
	if incoming.FromAddress != "" {
		merged.FromAddress = incoming.FromAddress
	}
	if incoming.FromName != "" {
		merged.FromName = incoming.FromName
	}
	if len(incoming.ToAddresses) > 0 {
		merged.ToAddresses = incoming.ToAddresses
	}
	if len(incoming.CcAddresses) > 0 {
		merged.CcAddresses = incoming.CcAddresses
	}
	if len(incoming.Flags) > 0 {
		merged.Flags = incoming.Flags
	}
	if incoming.SentAt != nil {
		merged.SentAt = incoming.SentAt
	}
	if incoming.BodyText != "" {
		merged.BodyText = incoming.BodyText
	}
	if incoming.BodyHTML != "" {
		merged.BodyHTML = incoming.BodyHTML
	}
	if incoming.SizeBytes > 0 {
		merged.SizeBytes = incoming.SizeBytes
	}
	if incoming.HasAttachment {
		merged.HasAttachment = true
	}
	if len(incoming.RawHeaders) > 0 {
		merged.RawHeaders = incoming.RawHeaders
	}
	if len(incoming.Attachments) > 0 {
		merged.Attachments = incoming.Attachments
	}

	return &merged
}

func (r *emailRepository) GetByKey(ctx context.Context, ownerID, folder string, uid uint32) (*models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByKey")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var email models.Email
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND folder = ? AND imap_uid = ?", ownerID, folder, uid).
		First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) ListByFolder(ctx context.Context, ownerID, folder string, limit int) ([]models.Email, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.ListByFolder")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var emails []models.Email
	query := r.db.WithContext(ctx).
		Where("owner_id = ? AND folder = ?", ownerID, folder).
		Order("sent_at DESC NULLS LAST")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&emails).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return emails, nil
}
