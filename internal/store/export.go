package store

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var exportHeader = []string{"ID", "Subject", "Tone", "Created", "Is_Favorite", "Summary", "Reply_Preview"}

const (
	exportSummaryLen = 100
	exportReplyLen   = 200
)

// ExportCSV writes every reply the owner saved as CSV, newest first.
func (s *Store) ExportCSV(ctx context.Context, owner string, w io.Writer) error {
	replies, err := s.All(ctx, owner)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range replies {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.EmailSubject,
			r.Tone,
			r.CreatedAt.Format(time.RFC3339),
			strconv.FormatBool(r.IsFavorite),
			preview(r.Summary, exportSummaryLen),
			preview(r.ReplyText, exportReplyLen),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
