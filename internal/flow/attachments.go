package flow

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tlxsante/assistant/internal/domain"
)

// RejectReason codes why an upload was refused.
type RejectReason string

const (
	RejectTooLarge RejectReason = "too_large"
	RejectBadType  RejectReason = "bad_type"
)

// RejectError is returned when an upload fails validation. The session is
// left untouched in that case.
type RejectError struct {
	Slot   domain.Slot
	Reason RejectReason
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("attachment %s rejected: %s", e.Slot, e.Reason)
}

var allowedTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
}

// Some browsers send uploads as octet-stream; fall back to the extension.
var extTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// AttachmentPolicy validates and stores uploaded documents.
type AttachmentPolicy struct {
	MaxSizeBytes int64
}

// NewAttachmentPolicy creates a policy with the configured size ceiling.
func NewAttachmentPolicy(maxSizeBytes int64) *AttachmentPolicy {
	if maxSizeBytes <= 0 {
		maxSizeBytes = 6 << 20
	}
	return &AttachmentPolicy{MaxSizeBytes: maxSizeBytes}
}

// Ingest validates an upload and returns the encoded record for the slot.
// Size is checked after the type so an oversized PDF reports the size
// reason and an oversized .exe the type reason.
func (p *AttachmentPolicy) Ingest(slot domain.Slot, up *domain.Upload) (*domain.Attachment, error) {
	contentType := normalizeType(up)
	if _, ok := allowedTypes[contentType]; !ok {
		return nil, &RejectError{Slot: slot, Reason: RejectBadType}
	}
	if int64(len(up.Data)) > p.MaxSizeBytes {
		return nil, &RejectError{Slot: slot, Reason: RejectTooLarge}
	}
	return &domain.Attachment{
		Filename:    filepath.Base(up.Filename),
		ContentType: contentType,
		SizeBytes:   int64(len(up.Data)),
		Payload:     base64.StdEncoding.EncodeToString(up.Data),
	}, nil
}

// Required returns how many document slots the intent needs filled before
// the final confirmation: prescription + insurance card for rentals and
// renewals, one proof photo for a return, none otherwise.
func (p *AttachmentPolicy) Required(intent domain.Intent) int {
	switch intent {
	case domain.IntentRent, domain.IntentRenew:
		return 2
	case domain.IntentReturn:
		return 1
	default:
		return 0
	}
}

// Completeness reports stored versus required attachment counts for the
// session's active flow.
func (p *AttachmentPolicy) Completeness(sess *domain.Session) (have, required int) {
	return len(sess.Attachments), p.Required(sess.Intent)
}

func normalizeType(up *domain.Upload) string {
	ct := strings.ToLower(strings.TrimSpace(up.ContentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if _, ok := allowedTypes[ct]; ok {
		return ct
	}
	if ct == "" || ct == "application/octet-stream" {
		if mapped, ok := extTypes[strings.ToLower(filepath.Ext(up.Filename))]; ok {
			return mapped
		}
	}
	return ct
}
