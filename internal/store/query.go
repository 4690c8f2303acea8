package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Page is one page of an owner's saved replies, newest first.
type Page struct {
	Items      []SavedReply `json:"content"`
	Page       int          `json:"page"`
	Size       int          `json:"size"`
	Total      int64        `json:"totalElements"`
	TotalPages int          `json:"totalPages"`
}

// Filter narrows a history listing. Zero values match everything.
type Filter struct {
	Tone string
	From time.Time
	To   time.Time
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (f Filter) where(owner string) (string, []any) {
	clauses := []string{"owner = ?"}
	args := []any{owner}
	if tone := strings.TrimSpace(f.Tone); tone != "" {
		clauses = append(clauses, "tone = ?")
		args = append(args, tone)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.To.UnixNano())
	}
	return strings.Join(clauses, " AND "), args
}

// List returns a page of replies matching filter. page is zero based.
func (s *Store) List(ctx context.Context, owner string, filter Filter, page, size int) (Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	where, args := filter.where(owner)
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_replies WHERE `+where, args...).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count replies: %w", err)
	}

	items, err := s.queryReplies(ctx,
		`SELECT `+columns+` FROM saved_replies WHERE `+where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, size, page*size)...)
	if err != nil {
		return Page{}, fmt.Errorf("list replies: %w", err)
	}

	return Page{
		Items:      items,
		Page:       page,
		Size:       size,
		Total:      total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// Search finds replies whose subject, reply text or summary contains term,
// ignoring case. A non-empty tone further restricts the result.
func (s *Store) Search(ctx context.Context, owner, term, tone string) ([]SavedReply, error) {
	where, args := Filter{Tone: tone}.where(owner)
	if term = strings.TrimSpace(term); term != "" {
		where += ` AND (instr(lower(email_subject), lower(?)) > 0
			OR instr(lower(reply_text), lower(?)) > 0
			OR instr(lower(summary), lower(?)) > 0)`
		args = append(args, term, term, term)
	}
	replies, err := s.queryReplies(ctx,
		`SELECT `+columns+` FROM saved_replies WHERE `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("search replies: %w", err)
	}
	return replies, nil
}

// Favorites returns the owner's favorite replies, newest first.
func (s *Store) Favorites(ctx context.Context, owner string) ([]SavedReply, error) {
	replies, err := s.queryReplies(ctx,
		`SELECT `+columns+` FROM saved_replies WHERE owner = ? AND is_favorite = 1 ORDER BY created_at DESC, id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return replies, nil
}

// All returns every reply the owner saved, newest first.
func (s *Store) All(ctx context.Context, owner string) ([]SavedReply, error) {
	replies, err := s.queryReplies(ctx,
		`SELECT `+columns+` FROM saved_replies WHERE owner = ? ORDER BY created_at DESC, id DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return replies, nil
}
