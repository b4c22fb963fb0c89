package domain

// MessageRole represents the sender of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one exchanged chat message.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// Upload is a raw file received with a turn, before validation.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// TurnRequest is one inbound chat turn.
type TurnRequest struct {
	SessionID string
	Messages  []Message
	Language  string // explicit client choice, optional
	Uploads   map[Slot]*Upload
}

// OrderSummary is the structured field snapshot shown before submission.
type OrderSummary struct {
	Name       string `json:"name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	PostalCode string `json:"postal_code"`
}

// TurnResponse is the outgoing envelope for one turn. Summary and Confirm
// are distinct from the prose reply so the caller can render a
// confirmation affordance instead of a chat bubble.
type TurnResponse struct {
	Reply                string        `json:"reply"`
	SessionID            string        `json:"session_id"`
	Language             Language      `json:"lang"`
	Intent               Intent        `json:"intent,omitempty"`
	State                FlowState     `json:"state"`
	Confirm              bool          `json:"confirm,omitempty"`
	Summary              *OrderSummary `json:"summary,omitempty"`
	AttachmentsRequested bool          `json:"attachments_requested,omitempty"`
	AttachmentCount      int           `json:"attachment_count"`
	AttachmentsRequired  int           `json:"attachments_required"`
}

// Order is the confirmed request handed off to the downstream workflow.
// Summary carries the rental fields; Fields is the raw field map so
// return dossiers (order reference, exchange/refund choice) ride along.
type Order struct {
	SessionID   string               `json:"session_id"`
	Intent      Intent               `json:"intent"`
	Language    Language             `json:"lang"`
	Summary     OrderSummary         `json:"summary"`
	Fields      map[FieldName]string `json:"fields,omitempty"`
	Attachments map[Slot]*Attachment `json:"attachments,omitempty"`
}
