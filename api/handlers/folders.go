package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/tracing"
)

type FoldersHandler struct {
	mailboxService interfaces.MailboxService
}

func NewFoldersHandler(mailboxService interfaces.MailboxService) *FoldersHandler {
	return &FoldersHandler{mailboxService: mailboxService}
}

// List returns the folder tree, depth-first with parents before children.
func (h *FoldersHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "FoldersHandler.List", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		folders, err := h.mailboxService.ListFolders(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list folders", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"folders": folders,
			"count":   len(folders),
		})
	}
}
