package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/tracing"
)

type EmailsHandler struct {
	mailboxService  interfaces.MailboxService
	deliveryService interfaces.DeliveryService
}

func NewEmailsHandler(mailboxService interfaces.MailboxService, deliveryService interfaces.DeliveryService) *EmailsHandler {
	return &EmailsHandler{
		mailboxService:  mailboxService,
		deliveryService: deliveryService,
	}
}

// List returns one page of message summaries, newest first.
func (h *EmailsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "EmailsHandler.List", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		folder := c.DefaultQuery("folder", "INBOX")
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
			return
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		query := c.Query("query")

		span.SetTag("folder.name", folder)
		span.SetTag("page", page)

		result, err := h.mailboxService.ListMessages(ctx, folder, page, limit, query)
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, errs.ErrFolderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Folder not found", "details": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to list messages", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// Read fetches the full message body. Per mailbox protocol convention
// the fetch marks the message seen on the server.
func (h *EmailsHandler) Read() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "EmailsHandler.Read", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		folder := c.Param("folder")
		uid, err := strconv.ParseUint(c.Param("uid"), 10, 32)
		if err != nil || uid == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "uid must be a positive integer"})
			return
		}

		span.SetTag("folder.name", folder)
		span.SetTag("message.uid", uid)

		detail, err := h.mailboxService.ReadMessage(ctx, folder, uint32(uid))
		if err != nil {
			tracing.TraceErr(span, err)
			if errors.Is(err, errs.ErrMessageNotFound) || errors.Is(err, errs.ErrFolderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Message not found", "details": err.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to read message", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, detail)
	}
}

// Send submits a message to the delivery chain. A total provider failure
// answers 502 with the per-provider attempts in the payload.
func (h *EmailsHandler) Send() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "EmailsHandler.Send", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)

		var request interfaces.DeliveryRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		result, err := h.deliveryService.Send(ctx, &request)
		if err != nil {
			tracing.TraceErr(span, err)
			if result != nil {
				// at least one provider was tried; surface the attempts
				c.JSON(http.StatusBadGateway, result)
				return
			}
			if errors.Is(err, errs.ErrNoProvidersConfigured) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No delivery providers configured"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid delivery request", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
