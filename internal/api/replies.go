package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/loqalabs/loqa-reply/internal/store"
)

type saveRequest struct {
	EmailSubject string `json:"emailSubject"`
	EmailContent string `json:"emailContent"`
	Tone         string `json:"tone"`
	ReplyText    string `json:"replyText"`
	Summary      string `json:"summary"`
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var body saveRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	required := []struct{ field, value string }{
		{"emailSubject", body.EmailSubject},
		{"emailContent", body.EmailContent},
		{"replyText", body.ReplyText},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			writeError(w, http.StatusBadRequest, f.field+" is required", nil)
			return
		}
	}

	saved, err := s.store.Save(r.Context(), store.SavedReply{
		Owner:        owner(r),
		EmailSubject: body.EmailSubject,
		EmailContent: body.EmailContent,
		Tone:         body.Tone,
		ReplyText:    body.ReplyText,
		Summary:      body.Summary,
	})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid page", err)
		return
	}
	size, err := queryInt(q.Get("size"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid size", err)
		return
	}
	filter := store.Filter{Tone: q.Get("tone")}
	if filter.From, err = parseDate(firstParam(q, "from", "fromDate"), false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date", err)
		return
	}
	if filter.To, err = parseDate(firstParam(q, "to", "toDate"), true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date", err)
		return
	}

	result, err := s.store.List(r.Context(), owner(r), filter, page, size)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	replies, err := s.store.Search(r.Context(), owner(r), q.Get("q"), q.Get("tone"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	replies, err := s.store.Favorites(r.Context(), owner(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context(), owner(r))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleExport renders the whole CSV before answering so a failed export
// still gets a clean JSON error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.store.ExportCSV(r.Context(), owner(r), &buf); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="saved-replies.csv"`)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	saved, err := s.store.ToggleFavorite(r.Context(), owner(r), id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), owner(r), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reply id", err)
		return 0, false
	}
	return id, true
}

// firstParam returns the first non-empty value among the given keys.
func firstParam(q url.Values, keys ...string) string {
	for _, k := range keys {
		if v := q.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func queryInt(v string, fallback int) (int, error) {
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative: %d", n)
	}
	return n, nil
}

// parseDate accepts RFC 3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
