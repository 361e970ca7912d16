package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/models"
	"github.com/relocato/mailbridge/internal/tracing"
)

type deliveryLogRepository struct {
	db *gorm.DB
}

func NewDeliveryLogRepository(db *gorm.DB) interfaces.DeliveryLogRepository {
	return &deliveryLogRepository{db: db}
}

func (r *deliveryLogRepository) Create(ctx context.Context, log *models.DeliveryLog) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryLogRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *deliveryLogRepository) ListRecent(ctx context.Context, limit int) ([]models.DeliveryLog, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "deliveryLogRepository.ListRecent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if limit <= 0 {
		limit = 50
	}

	var logs []models.DeliveryLog
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return logs, nil
}
