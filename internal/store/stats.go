package store

import (
	"context"
	"fmt"
	"time"
)

// SubjectCount is how often one subject appears among saved replies.
type SubjectCount struct {
	Subject string `json:"subject"`
	Count   int64  `json:"count"`
}

// Stats summarizes an owner's saved replies.
type Stats struct {
	TotalReplies     int64            `json:"totalReplies"`
	FavoriteReplies  int64            `json:"favoriteReplies"`
	ToneDistribution map[string]int64 `json:"toneDistribution"`
	RecentActivity   int64            `json:"recentActivity"`
	TopSubjects      []SubjectCount   `json:"topSubjects"`
}

const (
	recentWindow    = 30 * 24 * time.Hour
	topSubjectCount = 5
)

// Stats computes totals, tone distribution, activity over the last 30 days
// and the five most frequent subjects.
func (s *Store) Stats(ctx context.Context, owner string) (Stats, error) {
	stats := Stats{ToneDistribution: map[string]int64{}, TopSubjects: []SubjectCount{}}

	since := s.clock().Add(-recentWindow).UnixNano()
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(is_favorite), 0),
       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
FROM saved_replies WHERE owner = ?`, since, owner).
		Scan(&stats.TotalReplies, &stats.FavoriteReplies, &stats.RecentActivity)
	if err != nil {
		return Stats{}, fmt.Errorf("count stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tone, COUNT(*) FROM saved_replies WHERE owner = ? GROUP BY tone`, owner)
	if err != nil {
		return Stats{}, fmt.Errorf("tone distribution: %w", err)
	}
	for rows.Next() {
		var tone string
		var n int64
		if err := rows.Scan(&tone, &n); err != nil {
			rows.Close()
			return Stats{}, err
		}
		stats.ToneDistribution[tone] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	rows, err = s.db.QueryContext(ctx, `
SELECT email_subject, COUNT(*) AS n FROM saved_replies
WHERE owner = ? AND email_subject <> ''
GROUP BY email_subject ORDER BY n DESC, email_subject ASC LIMIT ?`, owner, topSubjectCount)
	if err != nil {
		return Stats{}, fmt.Errorf("top subjects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc SubjectCount
		if err := rows.Scan(&sc.Subject, &sc.Count); err != nil {
			return Stats{}, err
		}
		stats.TopSubjects = append(stats.TopSubjects, sc)
	}
	return stats, rows.Err()
}
