package utils

import (
	"context"

	"github.com/gin-gonic/gin"
)

// CustomContext carries the caller identity resolved by the API middleware.
// OwnerId is empty for anonymous / service-level calls; operations that
// persist data require it.
type CustomContext struct {
	AppSource string
	OwnerId   string
}

type customContextKeyType struct{}

var customContextKey customContextKeyType

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func WithCustomContextFromGinRequest(c *gin.Context, appSource string) context.Context {
	customContext := &CustomContext{
		AppSource: appSource,
		OwnerId:   c.GetString("OwnerId"),
	}
	return WithCustomContext(c.Request.Context(), customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}

func GetOwnerIdFromContext(ctx context.Context) string {
	return GetContext(ctx).OwnerId
}

func SetOwnerIdInContext(ctx context.Context, ownerId string) context.Context {
	customContext := GetContext(ctx)
	customContext.OwnerId = ownerId
	return WithCustomContext(ctx, customContext)
}
