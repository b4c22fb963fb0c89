package domain

import (
	"sync"
	"time"
)

// Language is a supported reply language code.
type Language string

const (
	LangFrench  Language = "fr"
	LangEnglish Language = "en"
	LangArabic  Language = "ar"
)

// FlowState identifies where a session currently sits in the rental flow.
type FlowState string

const (
	StateIdle       FlowState = "IDLE"
	StateCollecting FlowState = "COLLECTING"
	StateValidating FlowState = "VALIDATING"
	StateConfirming FlowState = "CONFIRMING"
	StateEditing    FlowState = "EDITING"
	StateSubmitted  FlowState = "SUBMITTED"
)

// FieldName names a required order field.
type FieldName string

const (
	FieldFullName   FieldName = "name"
	FieldStartDate  FieldName = "start_date"
	FieldEndDate    FieldName = "end_date"
	FieldPostalCode FieldName = "postal_code"

	// Return-issue flow fields.
	FieldOrderReference FieldName = "order_reference"
	FieldReturnChoice   FieldName = "choice"
)

// Slot names a required document placeholder within a session.
type Slot string

const (
	SlotPrescription Slot = "prescription"
	SlotInsurance    Slot = "insurance"
)

// Attachment is a stored, validated upload.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	// Payload is base64-encoded for transport to the downstream webhook.
	Payload string `json:"payload,omitempty"`
}

// Session is the per-conversation state, alive for the process lifetime.
// All turn processing for one session happens under its mutex; sessions
// for different ids proceed in parallel.
type Session struct {
	mu sync.Mutex

	ID          string
	Language    Language // empty until resolved
	State       FlowState
	Intent      Intent // intent of the active flow, if any
	Fields      map[FieldName]string
	Attachments map[Slot]*Attachment
	History     []Message

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns a fresh idle session for the given id.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		State:       StateIdle,
		Fields:      make(map[FieldName]string),
		Attachments: make(map[Slot]*Attachment),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Lock serializes turn processing for this session.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the per-session lock.
func (s *Session) Unlock() { s.mu.Unlock() }

// Reset returns the session to idle, clearing collected data and history
// but keeping the resolved language.
func (s *Session) Reset() {
	s.State = StateIdle
	s.Intent = IntentOther
	s.Fields = make(map[FieldName]string)
	s.Attachments = make(map[Slot]*Attachment)
	s.History = nil
	s.UpdatedAt = time.Now()
}

// Append records an exchanged message on the session history.
func (s *Session) Append(role MessageRole, content string) {
	s.History = append(s.History, Message{Role: role, Content: content})
	s.UpdatedAt = time.Now()
}
