// Command sessionwatch watches a locally stored session and reports
// expiry transitions without any server round trip. It is the
// reference consumer of the session monitor: load the stored token,
// poll its claims, warn as expiry approaches, clear the store on
// forced logout.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staffdesk/internal/config"
	"github.com/spec-kit/staffdesk/internal/observability"
	"github.com/spec-kit/staffdesk/internal/session"
)

func main() {
	var (
		sessionPath = flag.String("session-file", defaultSessionPath(), "path of the persistent session file")
		interval    = flag.Duration("interval", 15*time.Second, "poll interval")
	)
	flag.Parse()

	logger, err := observability.NewLogger(config.LoggerConfig{Level: "info"})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	store := session.NewScopedStore(session.NewFileStore(*sessionPath), session.NewMemoryStore())
	sess, ok, err := store.Load()
	if err != nil {
		logger.Fatal("failed to load session", zap.Error(err))
	}
	if !ok {
		logger.Fatal("no stored session; log in first")
	}

	expiresAt := sess.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt, err = session.DecodeExpiry(sess.Token)
		if err != nil {
			logger.Fatal("stored token has no readable expiry", zap.Error(err))
		}
	}

	done := make(chan struct{})
	monitor := session.NewMonitor(session.Config{PollInterval: *interval}, session.Callbacks{
		OnWarning: func(remaining time.Duration) {
			logger.Warn("session expiring soon", zap.Duration("remaining", remaining))
		},
		OnCritical: func(remaining time.Duration) {
			logger.Warn("session about to expire", zap.Duration("remaining", remaining))
		},
		OnExpired: func() {
			logger.Info("session expired, clearing stored session")
			if err := store.Clear(); err != nil {
				logger.Error("failed to clear session store", zap.Error(err))
			}
			close(done)
		},
	})

	monitor.Start(expiresAt)
	defer monitor.Stop()

	if err := monitor.Renew(); err != nil {
		logger.Warn("renewal unavailable", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
	case sig := <-sigCh:
		logger.Info("stopping", zap.String("signal", sig.String()))
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".staffdesk/session.json"
	}
	return filepath.Join(home, ".staffdesk", "session.json")
}
