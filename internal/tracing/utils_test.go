package tracing

import (
	"context"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/stretchr/testify/assert"

	"github.com/relocato/mailbridge/internal/utils"
)

func TestSetDefaultServiceSpanTags(t *testing.T) {
	// Arrange
	tracer := mocktracer.New()
	span := tracer.StartSpan("test-op")
	ctx := utils.WithCustomContext(context.Background(), &utils.CustomContext{
		AppSource: "sync-cron",
		OwnerId:   "owner-1",
	})

	// Act
	SetDefaultServiceSpanTags(ctx, span)
	span.Finish()

	// Assert
	mockSpan := span.(*mocktracer.MockSpan)
	assert.Equal(t, "owner-1", mockSpan.Tag(SpanTagOwnerId))
	assert.Equal(t, "sync-cron", mockSpan.Tag(SpanTagAppSource))
	assert.Equal(t, SpanTagComponentService, mockSpan.Tag(SpanTagComponent))
}

func TestSetDefaultServiceSpanTags_AnonymousContext(t *testing.T) {
	// Arrange
	tracer := mocktracer.New()
	span := tracer.StartSpan("test-op")

	// Act
	SetDefaultServiceSpanTags(context.Background(), span)
	span.Finish()

	// Assert: no identity tags for anonymous calls
	mockSpan := span.(*mocktracer.MockSpan)
	assert.Nil(t, mockSpan.Tag(SpanTagOwnerId))
	assert.Nil(t, mockSpan.Tag(SpanTagAppSource))
}
