package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

type SyncHandler struct {
	syncService interfaces.SyncService
}

func NewSyncHandler(syncService interfaces.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Run reconciles a folder into the durable store for the authenticated
// owner. force=true replaces stored records instead of merging.
func (h *SyncHandler) Run() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SyncHandler.Run", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		ownerID := utils.GetOwnerIdFromContext(ctx)
		if ownerID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Owner identity is required"})
			return
		}
		tracing.TagOwner(span, ownerID)

		folder := c.DefaultQuery("folder", "INBOX")
		force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

		span.SetTag("folder.name", folder)
		span.SetTag("force.resync", force)

		result, err := h.syncService.SyncFolder(ctx, ownerID, folder, force)
		if err != nil {
			tracing.TraceErr(span, err)
			payload := gin.H{"error": "Sync failed", "details": err.Error()}
			if result != nil {
				payload["partial"] = result
			}
			c.JSON(http.StatusBadGateway, payload)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
