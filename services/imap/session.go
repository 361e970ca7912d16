package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/relocato/mailbridge/config"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/logger"
	"github.com/relocato/mailbridge/internal/tracing"
)

const logoutTimeout = 5 * time.Second

// SessionManager hands out connected, authenticated IMAP sessions and
// bounds how many are open at once. Every session obtained through Open
// must be closed by the caller on all exit paths.
type SessionManager struct {
	config *config.MailboxConfig
	log    logger.Logger
	slots  *semaphore.Weighted
}

func NewSessionManager(cfg *config.MailboxConfig, log logger.Logger) *SessionManager {
	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &SessionManager{
		config: cfg,
		log:    log,
		slots:  semaphore.NewWeighted(int64(maxSessions)),
	}
}

// Session wraps one authenticated IMAP connection. Close is idempotent.
type Session struct {
	client    *client.Client
	manager   *SessionManager
	closeOnce sync.Once
}

// Open dials the server, verifies capabilities and logs in. Connection
// and authentication run under separate timeouts so a slow handshake and
// a slow login are reported distinctly.
func (m *SessionManager) Open(ctx context.Context) (*Session, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SessionManager.Open")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", m.config.Host)
	span.SetTag("port", m.config.Port)
	span.SetTag("tls", m.config.UseTLS)

	if err := m.slots.Acquire(ctx, 1); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "waiting for a session slot")
	}
	release := func() { m.slots.Release(1) }

	serverAddr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	dialer := &net.Dialer{
		Timeout:   time.Duration(m.config.ConnTimeoutSec) * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if m.config.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: m.config.Host,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}

	if err != nil {
		release()
		tracing.TraceErr(span, err)
		if isTimeout(err) {
			return nil, errors.Wrapf(errs.ErrConnectionTimeout, "connecting to %s: %v", serverAddr, err)
		}
		return nil, errors.Wrapf(err, "failed to connect to %s", serverAddr)
	}

	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		release()
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to get capabilities")
	}
	span.SetTag("server.capabilities", fmt.Sprintf("%v", caps))

	loginSpan := opentracing.StartSpan(
		"SessionManager.login",
		opentracing.ChildOf(span.Context()),
	)
	loginSpan.SetTag("username", m.config.Username)

	c.Timeout = time.Duration(m.config.AuthTimeoutSec) * time.Second
	err = c.Login(m.config.Username, m.config.Password)
	c.Timeout = 0
	if err != nil {
		c.Logout()
		release()
		tracing.TraceErr(loginSpan, err)
		loginSpan.Finish()
		return nil, errors.Wrapf(errs.ErrAuthenticationFailed, "login as %s: %v", m.config.Username, err)
	}
	loginSpan.Finish()

	m.log.Debugf("Opened IMAP session to %s as %s", serverAddr, m.config.Username)

	return &Session{client: c, manager: m}, nil
}

// Close logs out with a bounded wait and releases the session slot. Safe
// to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		span := opentracing.StartSpan("Session.Close")
		defer span.Finish()
		tracing.SetDefaultServiceSpanTags(context.Background(), span)

		defer s.manager.slots.Release(1)

		logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
		defer cancel()

		s.client.Timeout = logoutTimeout

		done := make(chan error, 1)
		go func() {
			done <- s.client.Logout()
			close(done)
		}()

		select {
		case err := <-done:
			if err != nil {
				tracing.TraceErr(span, err)
				s.manager.log.Warnf("Error during IMAP logout: %v", err)
			}
		case <-logoutCtx.Done():
			span.SetTag("timeout", true)
			s.manager.log.Warn("IMAP logout timed out")
		}
	})
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
