package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/imkarma/taskboard/internal/board"
	"github.com/imkarma/taskboard/internal/cache"
	"github.com/imkarma/taskboard/internal/config"
	"github.com/imkarma/taskboard/internal/notify"
	"github.com/imkarma/taskboard/internal/store"
	"github.com/imkarma/taskboard/internal/worker"
)

const workspaceDirName = ".taskboard"

const dateLayout = "2006-01-02"

// workspacePath returns the path to a file inside .taskboard/.
func workspacePath(parts ...string) string {
	elems := append([]string{workspaceDirName}, parts...)
	return filepath.Join(elems...)
}

// loadConfig reads .taskboard/config.yaml, returning an error if the
// workspace is not initialized.
func loadConfig() (*config.Config, error) {
	cfgPath := workspacePath("config.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("taskboard not initialized. Run: taskboard init")
	}
	return config.Load(cfgPath)
}

// databasePath resolves the configured database relative to the workspace.
func databasePath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Database) {
		return cfg.Database
	}
	return workspacePath(cfg.Database)
}

// mustStore opens the store, returning an error if taskboard is not initialized.
func mustStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(databasePath(cfg))
}

// openStore opens or creates the SQLite store at the given path.
func openStore(dbPath string) (*store.Store, error) {
	return store.New(dbPath)
}

// newLogger builds the diagnostics logger. User-facing output goes to
// stdout with fmt; logs go to stderr.
func newLogger(cfg *config.Config) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return logger
}

// session bundles everything a board command needs.
type session struct {
	cfg   *config.Config
	log   *log.Logger
	store *store.Store
	notes *notify.Queue
	hub   *board.Hub
	redis *redis.Client
}

// openSession opens the store and builds a hub on top of it. A configured
// but unreachable Redis is logged and skipped.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := openStore(databasePath(cfg))
	if err != nil {
		return nil, err
	}

	sess := &session{cfg: cfg, log: newLogger(cfg), store: s}
	sess.notes = notify.NewQueue(cfg.NotifyTTL(), sess.log)

	opts := board.Options{
		Logger:    sess.log,
		Notifier:  sess.notes,
		Pool:      worker.NewPool(worker.PoolConfig{MaxWorkers: cfg.Workers, Logger: sess.log}),
		NotifyTTL: cfg.NotifyTTL(),
	}
	if cfg.CacheEnabled() {
		client, err := cache.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			sess.log.WithError(err).Warn("board cache disabled")
		} else {
			sess.redis = client
			opts.Cache = cache.New(client, cfg.CacheTTL())
		}
	}
	sess.hub = board.NewHub(s, opts)
	return sess, nil
}

func (s *session) Close() {
	s.notes.Close()
	if s.redis != nil {
		s.redis.Close()
	}
	s.store.Close()
}

// actor returns the user the command acts as: --actor, then config.
func (s *session) actor() (string, error) {
	return resolveActor(flagActor, s.cfg)
}

func resolveActor(flag string, cfg *config.Config) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if cfg.Actor != "" {
		return cfg.Actor, nil
	}
	return "", fmt.Errorf("no actor set. Pass --actor or set actor in %s", workspacePath("config.yaml"))
}

// engine returns the board engine of projectID.
func (s *session) engine(ctx context.Context, projectID string) (*board.Engine, error) {
	return s.hub.Engine(ctx, projectID)
}

// printNotes prints the messages the engine left for the user.
func (s *session) printNotes() {
	for _, n := range s.notes.Pending() {
		fmt.Println(formatNote(n))
	}
}

func formatNote(n notify.Notification) string {
	switch n.Kind {
	case notify.KindSuccess:
		return fmt.Sprintf("%s✓ %s%s", colorGreen, n.Message, colorReset)
	case notify.KindError:
		return fmt.Sprintf("%s✗ %s%s", colorRed, n.Message, colorReset)
	default:
		return fmt.Sprintf("%s• %s%s", colorCyan, n.Message, colorReset)
	}
}

// parseDate parses a YYYY-MM-DD flag value. Empty means unset.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
