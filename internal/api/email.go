package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/loqalabs/loqa-reply/internal/inbound"
	"github.com/loqalabs/loqa-reply/internal/render"
	"github.com/loqalabs/loqa-reply/internal/reply"
)

type generateRequest struct {
	Subject      string `json:"subject"`
	EmailContent string `json:"emailContent"`
	Tone         string `json:"tone"`
	Language     string `json:"language"`
}

type testResponse struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
	Reply   string `json:"reply"`
}

// readGenerateRequest decodes and validates a generation request. It writes
// the 400 response itself and reports false on failure.
func readGenerateRequest(w http.ResponseWriter, r *http.Request) (reply.Request, bool) {
	var body generateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return reply.Request{}, false
	}
	if strings.TrimSpace(body.Subject) == "" {
		writeError(w, http.StatusBadRequest, "subject is required", nil)
		return reply.Request{}, false
	}
	if strings.TrimSpace(body.EmailContent) == "" {
		writeError(w, http.StatusBadRequest, "emailContent is required", nil)
		return reply.Request{}, false
	}
	return reply.Request{
		Subject:  body.Subject,
		Body:     body.EmailContent,
		Tone:     body.Tone,
		Language: body.Language,
	}, true
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.generateMulti(w, r, false)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	s.generateMulti(w, r, true)
}

func (s *Server) generateMulti(w http.ResponseWriter, r *http.Request, regenerate bool) {
	req, ok := readGenerateRequest(w, r)
	if !ok {
		return
	}
	res, err := s.drafter.GenerateMulti(r.Context(), req, regenerate)
	s.writeResult(w, r, res, err)
}

func (s *Server) handleGenerateSingle(w http.ResponseWriter, r *http.Request) {
	req, ok := readGenerateRequest(w, r)
	if !ok {
		return
	}
	res, err := s.drafter.GenerateSingle(r.Context(), req)
	s.writeResult(w, r, res, err)
}

func (s *Server) handleGenerateRaw(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := reply.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid mode", err)
		return
	}
	regenerate := false
	if v := q.Get("regenerate"); v != "" {
		if regenerate, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid regenerate flag", err)
			return
		}
	}

	msg, err := inbound.Parse(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid MIME message", err)
		return
	}
	if msg.Subject == "" || msg.Body == "" {
		writeError(w, http.StatusBadRequest, "message needs a subject and a body", nil)
		return
	}
	s.logger.Debug("parsed raw message", slog.String("from", msg.From), slog.String("subject", msg.Subject))

	req := msg.Request(q.Get("tone"), q.Get("language"), mode, regenerate)
	var res reply.Result
	if mode == reply.ModeSingle {
		res, err = s.drafter.GenerateSingle(r.Context(), req)
	} else {
		res, err = s.drafter.GenerateMulti(r.Context(), req, regenerate)
	}
	s.writeResult(w, r, res, err)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	res, err := s.drafter.GenerateSingle(r.Context(), reply.Request{
		Subject: "Connectivity check",
		Body:    "Hello, this is a test message to confirm the reply service is reachable.",
		Tone:    "friendly",
	})
	if err != nil {
		s.writeResult(w, r, res, err)
		return
	}
	writeJSON(w, http.StatusOK, testResponse{Status: "ok", Summary: res.Summary, Reply: res.Reply})
}

// writeResult answers with JSON, or with an HTML fragment for ?format=html.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, res reply.Result, err error) {
	if err != nil {
		s.logger.Error("reply generation failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to generate reply", err)
		return
	}
	if r.URL.Query().Get("format") == "html" {
		out, err := render.HTML(res)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render reply", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(out))
		return
	}
	writeJSON(w, http.StatusOK, res.Body())
}
