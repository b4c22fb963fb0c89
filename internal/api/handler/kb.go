package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/tlxsante/assistant/internal/api/response"
	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/kb"
	"github.com/tlxsante/assistant/internal/lang"
)

// KBHandler exposes knowledge-base lookup and maintenance endpoints.
type KBHandler struct {
	index     *kb.Index
	retriever *kb.Retriever
}

// NewKBHandler creates a new knowledge-base handler
func NewKBHandler(index *kb.Index, retriever *kb.Retriever) *KBHandler {
	return &KBHandler{index: index, retriever: retriever}
}

// AskRequest is a direct knowledge-base query, outside any session.
type AskRequest struct {
	Question string `json:"question" validate:"required"`
	Language string `json:"lang"`
}

// AskResponse is the retrieval result plus the resolved reply language.
type AskResponse struct {
	kb.Result
	Language domain.Language `json:"lang"`
}

// Ask answers a single question against the knowledge base.
func (h *KBHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	language := lang.Normalize(req.Language)
	if language == "" {
		language = domain.LangFrench
	}

	res, err := h.retriever.Answer(r.Context(), req.Question, language)
	if err != nil {
		response.InternalError(w, "lookup failed")
		return
	}
	response.OK(w, AskResponse{Result: res, Language: language})
}

// Status reports what the index currently serves.
func (h *KBHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.index.Status())
}

// ReloadRequest optionally overrides the configured CSV source.
type ReloadRequest struct {
	Source string `json:"source"`
}

// Reload re-reads the CSV source and swaps the served snapshot.
func (h *KBHandler) Reload(w http.ResponseWriter, r *http.Request) {
	var req ReloadRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	n, err := h.index.Reload(req.Source)
	if err != nil {
		log.Error().Err(err).Str("source", req.Source).Msg("knowledge base reload failed")
		response.BadRequest(w, err.Error())
		return
	}
	response.OK(w, map[string]any{"entries": n})
}

// CleanRequest names the source to rewrite and where to put the result.
type CleanRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// Clean rewrites the CSV source into canonical form, then serves it.
func (h *KBHandler) Clean(w http.ResponseWriter, r *http.Request) {
	var req CleanRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	dst, n, err := h.index.Clean(req.Source, req.Destination)
	if err != nil {
		log.Error().Err(err).Str("source", req.Source).Msg("knowledge base clean failed")
		response.BadRequest(w, err.Error())
		return
	}
	response.OK(w, map[string]any{"destination": dst, "entries": n})
}
