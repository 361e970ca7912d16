package imap

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/relocato/mailbridge/config"
	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/mailparse"
	"github.com/relocato/mailbridge/internal/tracing"
)

// IMAPService implements the mailbox read path. Each public method opens
// a fresh session, performs one logical unit of work and closes the
// session on every exit path, so no connection outlives a call.
type IMAPService struct {
	config   *config.MailboxConfig
	log      logger.Logger
	sessions *SessionManager
	now      mailparse.Clock
}

func NewIMAPService(cfg *config.MailboxConfig, log logger.Logger) *IMAPService {
	return &IMAPService{
		config:   cfg,
		log:      log,
		sessions: NewSessionManager(cfg, log),
		now:      time.Now,
	}
}

func (s *IMAPService) ListFolders(ctx context.Context) ([]interfaces.FolderDescriptor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.ListFolders")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	session, err := s.sessions.Open(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer session.Close()

	return s.listFolders(ctx, session)
}

func (s *IMAPService) ListMessages(ctx context.Context, folder string, page, pageSize int, query string) (*interfaces.MessagePage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.ListMessages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	session, err := s.sessions.Open(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer session.Close()

	return s.listMessages(ctx, session, folder, page, pageSize, query)
}

func (s *IMAPService) ReadMessage(ctx context.Context, folder string, uid uint32) (*interfaces.MessageDetail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPService.ReadMessage")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	session, err := s.sessions.Open(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	defer session.Close()

	return s.readMessage(ctx, session, folder, uid)
}

// Probe opens and immediately closes a session. Used by the health probe
// to verify the inbound path end to end.
func (s *IMAPService) Probe(ctx context.Context) error {
	session, err := s.sessions.Open(ctx)
	if err != nil {
		return err
	}
	session.Close()
	return nil
}
