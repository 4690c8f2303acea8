package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/loqalabs/loqa-reply/internal/config"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a saved reply does not exist.
	ErrNotFound = errors.New("saved reply not found")
	// ErrForbidden is returned when a saved reply belongs to another owner.
	ErrForbidden = errors.New("saved reply belongs to a different owner")
)

// SavedReply is a generated reply the owner chose to keep.
type SavedReply struct {
	ID           int64     `json:"id"`
	Owner        string    `json:"-"`
	EmailSubject string    `json:"emailSubject"`
	EmailContent string    `json:"emailContent"`
	Tone         string    `json:"tone"`
	ReplyText    string    `json:"replyText"`
	Summary      string    `json:"summary"`
	IsFavorite   bool      `json:"isFavorite"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store wraps a SQLite-backed saved replies table.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store according to config.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log.With(slog.String("component", "store")), clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			s.log.Warn("store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		s.log.Warn("store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS saved_replies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner TEXT NOT NULL,
    email_subject TEXT NOT NULL DEFAULT '',
    email_content TEXT NOT NULL DEFAULT '',
    tone TEXT NOT NULL DEFAULT '',
    reply_text TEXT NOT NULL DEFAULT '',
    summary TEXT NOT NULL DEFAULT '',
    is_favorite INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_replies_owner_created ON saved_replies(owner, created_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts a reply and returns it with its id and timestamp set.
func (s *Store) Save(ctx context.Context, r SavedReply) (SavedReply, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO saved_replies(owner, email_subject, email_content, tone, reply_text, summary, is_favorite, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Owner, r.EmailSubject, r.EmailContent, r.Tone, r.ReplyText, r.Summary, r.IsFavorite, r.CreatedAt.UnixNano())
	if err != nil {
		return SavedReply{}, fmt.Errorf("insert saved reply: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return SavedReply{}, err
	}
	s.log.Info("reply saved", slog.Int64("id", r.ID), slog.String("owner", r.Owner))
	return r, nil
}

// Get loads a reply owned by owner.
func (s *Store) Get(ctx context.Context, owner string, id int64) (SavedReply, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM saved_replies WHERE id = ?`, id)
	r, err := scanReply(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedReply{}, ErrNotFound
	}
	if err != nil {
		return SavedReply{}, err
	}
	if r.Owner != owner {
		return SavedReply{}, ErrForbidden
	}
	return r, nil
}

// ToggleFavorite flips the favorite flag and returns the updated reply.
func (s *Store) ToggleFavorite(ctx context.Context, owner string, id int64) (SavedReply, error) {
	r, err := s.Get(ctx, owner, id)
	if err != nil {
		return SavedReply{}, err
	}
	r.IsFavorite = !r.IsFavorite
	if _, err := s.db.ExecContext(ctx, `UPDATE saved_replies SET is_favorite = ? WHERE id = ?`, r.IsFavorite, id); err != nil {
		return SavedReply{}, fmt.Errorf("update favorite: %w", err)
	}
	s.log.Debug("favorite toggled", slog.Int64("id", id), slog.Bool("favorite", r.IsFavorite))
	return r, nil
}

// Delete removes a reply owned by owner.
func (s *Store) Delete(ctx context.Context, owner string, id int64) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saved_replies WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete saved reply: %w", err)
	}
	s.log.Info("reply deleted", slog.Int64("id", id), slog.String("owner", owner))
	return nil
}

// Count returns the number of replies owned by owner.
func (s *Store) Count(ctx context.Context, owner string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_replies WHERE owner = ?`, owner).Scan(&n)
	return n, err
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionDays <= 0 {
		return nil
	}
	cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM saved_replies WHERE created_at < ? AND is_favorite = 0`, cutoff.UnixNano())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.log.Info("pruned saved replies", slog.Int64("count", n))
	}
	return nil
}

const columns = `id, owner, email_subject, email_content, tone, reply_text, summary, is_favorite, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanReply(row scanner) (SavedReply, error) {
	var r SavedReply
	var created int64
	if err := row.Scan(&r.ID, &r.Owner, &r.EmailSubject, &r.EmailContent, &r.Tone, &r.ReplyText, &r.Summary, &r.IsFavorite, &created); err != nil {
		return SavedReply{}, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	return r, nil
}

func (s *Store) queryReplies(ctx context.Context, query string, args ...any) ([]SavedReply, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	replies := []SavedReply{}
	for rows.Next() {
		r, err := scanReply(rows)
		if err != nil {
			return nil, err
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}
