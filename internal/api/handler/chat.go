package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tlxsante/assistant/internal/api/response"
	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/flow"
)

// TurnProcessor runs one conversation turn.
type TurnProcessor interface {
	Turn(ctx context.Context, req *domain.TurnRequest) (*domain.TurnResponse, error)
}

// ChatHandler handles the conversational endpoint.
type ChatHandler struct {
	controller   TurnProcessor
	maxSizeBytes int64
}

// NewChatHandler creates a new chat handler
func NewChatHandler(controller TurnProcessor, maxSizeBytes int64) *ChatHandler {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 6 << 20
	}
	return &ChatHandler{controller: controller, maxSizeBytes: maxSizeBytes}
}

// ChatRequest is the JSON body of a text-only turn.
type ChatRequest struct {
	SessionID string           `json:"session_id"`
	Language  string           `json:"lang"`
	Messages  []domain.Message `json:"messages" validate:"required,min=1,dive"`
}

// slotFields maps multipart field names to the document slots.
var slotFields = map[string]domain.Slot{
	"prescription_file": domain.SlotPrescription,
	"insurance_file":    domain.SlotInsurance,
}

// Turn handles POST /chat. JSON bodies carry text-only turns; multipart
// bodies add the document uploads.
func (h *ChatHandler) Turn(w http.ResponseWriter, r *http.Request) {
	var req *domain.TurnRequest
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		req, err = h.parseMultipart(r)
	} else {
		req, err = h.parseJSON(r)
	}
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	resp, err := h.controller.Turn(r.Context(), req)
	if err != nil {
		response.InternalError(w, "failed to process message")
		return
	}
	response.OK(w, resp)
}

func (h *ChatHandler) parseJSON(r *http.Request) (*domain.TurnRequest, error) {
	var body ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errInvalidBody
	}
	if err := validate.Struct(body); err != nil {
		return nil, err
	}
	return &domain.TurnRequest{
		SessionID: body.SessionID,
		Language:  body.Language,
		Messages:  body.Messages,
	}, nil
}

func (h *ChatHandler) parseMultipart(r *http.Request) (*domain.TurnRequest, error) {
	// Two document slots plus form fields; one oversized file must still
	// parse so the policy can reject it with a precise reason.
	r.Body = http.MaxBytesReader(nil, r.Body, 3*h.maxSizeBytes)
	if err := r.ParseMultipartForm(h.maxSizeBytes); err != nil {
		return nil, errInvalidBody
	}

	req := &domain.TurnRequest{
		SessionID: r.FormValue("session_id"),
		Language:  r.FormValue("lang"),
		Uploads:   make(map[domain.Slot]*domain.Upload),
	}

	if raw := r.FormValue("messages"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Messages); err != nil {
			return nil, errInvalidBody
		}
	} else if msg := r.FormValue("message"); msg != "" {
		req.Messages = []domain.Message{{Role: domain.RoleUser, Content: msg}}
	}

	for field, slot := range slotFields {
		file, header, err := r.FormFile(field)
		if err == http.ErrMissingFile {
			continue
		}
		if err != nil {
			continue
		}
		up, err := readUpload(file, header, h.maxSizeBytes)
		file.Close()
		if err != nil {
			return nil, err
		}
		req.Uploads[slot] = up
	}

	if len(req.Messages) == 0 && len(req.Uploads) == 0 {
		return nil, errEmptyTurn
	}
	return req, nil
}

// readUpload buffers at most one byte past the ceiling, enough for the
// attachment policy to notice the overrun.
func readUpload(file multipart.File, header *multipart.FileHeader, maxSizeBytes int64) (*domain.Upload, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxSizeBytes+1))
	if err != nil {
		return nil, errInvalidBody
	}
	return &domain.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

var (
	errInvalidBody = &requestError{"invalid request body"}
	errEmptyTurn   = &requestError{"message or file required"}
)

type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

var _ TurnProcessor = (*flow.Controller)(nil)
