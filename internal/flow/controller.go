// Package flow implements the conversational state machine: intent-driven
// entry into the rental, renewal and return flows, field collection and
// validation, the confirmation step, and handoff of confirmed orders.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/intent"
	"github.com/tlxsante/assistant/internal/kb"
	"github.com/tlxsante/assistant/internal/lang"
	"github.com/tlxsante/assistant/internal/session"
)

// Answerer resolves free-text questions against the knowledge base.
type Answerer interface {
	Answer(ctx context.Context, query string, language domain.Language) (kb.Result, error)
}

// Completer is the generative fallback for questions the knowledge base
// cannot answer.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Dispatcher hands a confirmed order to the downstream workflow. Dispatch
// must not block the turn; implementations deliver asynchronously.
type Dispatcher interface {
	Dispatch(order *domain.Order)
}

// Controller drives one conversation turn end to end.
type Controller struct {
	store      *session.Store
	resolver   *lang.Resolver
	classifier *intent.Classifier
	answerer   Answerer
	generator  Completer
	policy     *AttachmentPolicy
	dispatcher Dispatcher
	genTimeout time.Duration
}

// NewController wires the turn pipeline. answerer, generator and
// dispatcher may be nil; the controller degrades to the canned replies.
// genTimeout bounds each generative fallback call (30s when zero).
func NewController(
	store *session.Store,
	resolver *lang.Resolver,
	classifier *intent.Classifier,
	answerer Answerer,
	generator Completer,
	policy *AttachmentPolicy,
	dispatcher Dispatcher,
	genTimeout time.Duration,
) *Controller {
	if genTimeout <= 0 {
		genTimeout = 30 * time.Second
	}
	return &Controller{
		store:      store,
		resolver:   resolver,
		classifier: classifier,
		answerer:   answerer,
		generator:  generator,
		policy:     policy,
		dispatcher: dispatcher,
		genTimeout: genTimeout,
	}
}

// Turn processes one inbound message and/or upload batch for a session.
// All session mutation happens under the session lock, so concurrent
// turns for the same id serialize while other sessions proceed.
func (c *Controller) Turn(ctx context.Context, req *domain.TurnRequest) (*domain.TurnResponse, error) {
	sess := c.store.Get(req.SessionID)
	sess.Lock()
	defer sess.Unlock()

	userText := lastUserMessage(req.Messages)
	sess.Language = c.resolver.Resolve(ctx, req.Language, userText, sess.Language)

	resp := &domain.TurnResponse{SessionID: sess.ID, Language: sess.Language}

	// Uploads are validated before routing so a rejected file never
	// mutates the session and its slot stays empty.
	var rejections []string
	for slot, up := range req.Uploads {
		rec, err := c.policy.Ingest(slot, up)
		if err != nil {
			var rej *RejectError
			if !errors.As(err, &rej) {
				return nil, err
			}
			log.Warn().
				Str("session_id", sess.ID).
				Str("slot", string(slot)).
				Str("filename", up.Filename).
				Str("reason", string(rej.Reason)).
				Msg("attachment rejected")
			rejections = append(rejections, attachmentRejectMessage(sess.Language, up.Filename, rej.Reason))
			continue
		}
		sess.Attachments[slot] = rec
	}

	if userText != "" {
		sess.Append(domain.RoleUser, userText)
	}

	switch {
	case userText == "" && len(req.Uploads) > 0:
		c.continueAfterUpload(sess, resp)
	case IsReset(userText):
		sess.Reset()
		resp.Reply = msgResetDone.in(sess.Language)
	default:
		c.route(ctx, sess, userText, resp)
	}

	if len(rejections) > 0 {
		note := strings.Join(rejections, " ")
		if resp.Reply == "" {
			resp.Reply = note
		} else {
			resp.Reply = note + "\n\n" + resp.Reply
		}
	}

	resp.State = sess.State
	resp.AttachmentCount, resp.AttachmentsRequired = c.policy.Completeness(sess)
	if resp.Reply != "" {
		sess.Append(domain.RoleAssistant, resp.Reply)
	}
	return resp, nil
}

func (c *Controller) route(ctx context.Context, sess *domain.Session, text string, resp *domain.TurnResponse) {
	it := c.classifier.Classify(text)

	switch sess.State {
	case domain.StateConfirming:
		c.handleConfirming(sess, text, it, resp)
	case domain.StateCollecting, domain.StateValidating, domain.StateEditing:
		c.handleCollecting(sess, text, it, resp)
	default: // Idle or Submitted
		switch {
		case sess.State == domain.StateSubmitted && IsAffirmative(text):
			// Confirmation replayed after submission: acknowledge, never
			// dispatch a second time.
			resp.Intent = sess.Intent
			resp.Reply = msgSubmitted.in(sess.Language)
		case it == domain.IntentRent || it == domain.IntentRenew:
			c.enterOrderFlow(sess, it, resp)
		case it == domain.IntentReturn:
			c.enterReturnFlow(sess, text, resp)
		default:
			resp.Intent = it
			c.answerQuestion(ctx, sess, text, resp)
		}
	}
}

func (c *Controller) enterOrderFlow(sess *domain.Session, it domain.Intent, resp *domain.TurnResponse) {
	// Documents from a previous submitted order never carry over; files
	// sent alongside or ahead of the opening message do.
	if sess.State == domain.StateSubmitted {
		sess.Attachments = make(map[domain.Slot]*domain.Attachment)
	}
	sess.Intent = it
	sess.State = domain.StateCollecting
	sess.Fields = make(map[domain.FieldName]string)
	resp.Intent = it
	resp.AttachmentsRequested = true
	resp.Reply = msgAskDetails.in(sess.Language)
}

func (c *Controller) enterReturnFlow(sess *domain.Session, text string, resp *domain.TurnResponse) {
	sess.Intent = domain.IntentReturn
	resp.Intent = domain.IntentReturn

	issue, endOfUse := ReturnReason(text)
	switch {
	case issue:
		sess.State = domain.StateCollecting
		c.collectReturn(sess, text, resp)
	case endOfUse:
		// End-of-use returns need no dossier, just the shipping routine.
		resp.Reply = msgReturnEndOfUse.in(sess.Language)
		sess.State = domain.StateIdle
		sess.Intent = domain.IntentOther
	default:
		sess.State = domain.StateCollecting
		resp.Reply = msgAskReturnReason.in(sess.Language)
	}
}

func (c *Controller) handleCollecting(sess *domain.Session, text string, it domain.Intent, resp *domain.TurnResponse) {
	resp.Intent = sess.Intent

	if IsNegative(text) {
		c.cancelFlow(sess, resp)
		return
	}
	if it.StartsFlow() && it != sess.Intent {
		// The customer switched flows mid-collection.
		if it == domain.IntentReturn {
			sess.Fields = make(map[domain.FieldName]string)
			c.enterReturnFlow(sess, text, resp)
			return
		}
		sess.Intent = it
		resp.Intent = it
		if sess.Fields[domain.FieldOrderReference] != "" || sess.Fields[domain.FieldReturnChoice] != "" {
			sess.Fields = make(map[domain.FieldName]string)
		}
	}

	if sess.Intent == domain.IntentReturn {
		c.collectReturn(sess, text, resp)
		return
	}

	ExtractOrderFields(sess.Fields, text)
	edits, _ := ParseLabeledEdits(text)
	for f, v := range edits {
		sess.Fields[f] = v
	}

	if missing := MissingOrderFields(sess.Fields); len(missing) > 0 {
		sess.State = domain.StateCollecting
		resp.Reply = fmt.Sprintf(msgMissingFields.in(sess.Language), labelList(sess.Language, missing))
		return
	}
	c.validateAndConfirm(sess, resp)
}

// validateAndConfirm runs the validation pass over a complete field set
// and either bounces the invalid fields back to collection or moves the
// session to the confirmation step.
func (c *Controller) validateAndConfirm(sess *domain.Session, resp *domain.TurnResponse) {
	sess.State = domain.StateValidating

	issues := ValidateOrderFields(sess.Fields)
	if len(issues) > 0 {
		resp.Reply = issueMessage(sess.Language, sess.Fields, issues)
		clearIssueFields(sess.Fields, issues)
		sess.State = domain.StateCollecting
		return
	}

	sess.State = domain.StateConfirming
	resp.Confirm = true
	resp.Summary = orderSummary(sess)
	if have, required := c.policy.Completeness(sess); have < required {
		resp.AttachmentsRequested = true
	}
	resp.Reply = fmt.Sprintf(msgConfirmSummary.in(sess.Language),
		sess.Fields[domain.FieldFullName],
		sess.Fields[domain.FieldStartDate],
		sess.Fields[domain.FieldEndDate],
		sess.Fields[domain.FieldPostalCode])
}

func (c *Controller) handleConfirming(sess *domain.Session, text string, it domain.Intent, resp *domain.TurnResponse) {
	resp.Intent = sess.Intent

	switch {
	case IsAffirmative(text):
		if have, required := c.policy.Completeness(sess); have < required {
			// Confirmed but documents still missing: hold the submission.
			resp.Confirm = true
			resp.AttachmentsRequested = true
			resp.Reply = fmt.Sprintf(msgNeedAttachments.in(sess.Language), required-have)
			return
		}
		c.submit(sess, resp)
	case IsNegative(text):
		c.cancelFlow(sess, resp)
	default:
		edits, unknown := ParseLabeledEdits(text)
		if len(edits) > 0 {
			sess.State = domain.StateEditing
			for f, v := range edits {
				sess.Fields[f] = v
			}
			c.validateAndConfirm(sess, resp)
			return
		}
		if len(unknown) > 0 {
			resp.Confirm = true
			resp.Reply = fmt.Sprintf(msgUnknownEditLabel.in(sess.Language), unknown[0])
			return
		}
		if it.StartsFlow() && it != sess.Intent {
			if it == domain.IntentReturn {
				sess.Fields = make(map[domain.FieldName]string)
				c.enterReturnFlow(sess, text, resp)
			} else {
				c.enterOrderFlow(sess, it, resp)
			}
			return
		}
		// Not a decision, not an edit: show the summary again.
		resp.Confirm = true
		resp.Summary = orderSummary(sess)
		resp.Reply = fmt.Sprintf(msgConfirmSummary.in(sess.Language),
			sess.Fields[domain.FieldFullName],
			sess.Fields[domain.FieldStartDate],
			sess.Fields[domain.FieldEndDate],
			sess.Fields[domain.FieldPostalCode])
	}
}

// collectReturn accumulates the return-issue dossier: order reference,
// exchange-or-refund choice, and one photo of the device.
func (c *Controller) collectReturn(sess *domain.Session, text string, resp *domain.TurnResponse) {
	resp.Intent = domain.IntentReturn

	issue, endOfUse := ReturnReason(text)
	if endOfUse && !issue && sess.Fields[domain.FieldOrderReference] == "" &&
		sess.Fields[domain.FieldReturnChoice] == "" {
		resp.Reply = msgReturnEndOfUse.in(sess.Language)
		sess.State = domain.StateIdle
		sess.Intent = domain.IntentOther
		return
	}

	if sess.Fields[domain.FieldOrderReference] == "" {
		if ref := ExtractOrderReference(text); ref != "" {
			sess.Fields[domain.FieldOrderReference] = ref
		}
	}
	if sess.Fields[domain.FieldReturnChoice] == "" {
		if choice := ExtractReturnChoice(kb.Fold(text)); choice != "" {
			sess.Fields[domain.FieldReturnChoice] = choice
		}
	}

	var missing []string
	if sess.Fields[domain.FieldOrderReference] == "" {
		missing = append(missing, fieldLabels[domain.FieldOrderReference].in(sess.Language))
	}
	if sess.Fields[domain.FieldReturnChoice] == "" {
		missing = append(missing, fieldLabels[domain.FieldReturnChoice].in(sess.Language))
	}
	if len(sess.Attachments) == 0 {
		missing = append(missing, returnPhotoLabel.in(sess.Language))
		resp.AttachmentsRequested = true
	}
	if len(missing) > 0 {
		resp.Reply = fmt.Sprintf(msgReturnIssueMissing.in(sess.Language), strings.Join(missing, ", "))
		return
	}

	sess.State = domain.StateSubmitted
	resp.Reply = msgReturnSubmitted.in(sess.Language)
	c.dispatch(sess)
}

// submit moves the session to SUBMITTED and hands the order off. The
// structured summary is emitted exactly once, on this transition.
func (c *Controller) submit(sess *domain.Session, resp *domain.TurnResponse) {
	sess.State = domain.StateSubmitted
	resp.Summary = orderSummary(sess)
	resp.Reply = msgSubmitted.in(sess.Language)
	c.dispatch(sess)
}

func (c *Controller) dispatch(sess *domain.Session) {
	if c.dispatcher == nil {
		return
	}
	attachments := make(map[domain.Slot]*domain.Attachment, len(sess.Attachments))
	for slot, a := range sess.Attachments {
		attachments[slot] = a
	}
	fields := make(map[domain.FieldName]string, len(sess.Fields))
	for f, v := range sess.Fields {
		fields[f] = v
	}
	c.dispatcher.Dispatch(&domain.Order{
		SessionID:   sess.ID,
		Intent:      sess.Intent,
		Language:    sess.Language,
		Summary:     *orderSummary(sess),
		Fields:      fields,
		Attachments: attachments,
	})
}

func (c *Controller) cancelFlow(sess *domain.Session, resp *domain.TurnResponse) {
	sess.State = domain.StateIdle
	sess.Intent = domain.IntentOther
	sess.Fields = make(map[domain.FieldName]string)
	sess.Attachments = make(map[domain.Slot]*domain.Attachment)
	resp.Intent = domain.IntentOther
	resp.Reply = msgCancelled.in(sess.Language)
}

// continueAfterUpload handles a turn that carried only files.
func (c *Controller) continueAfterUpload(sess *domain.Session, resp *domain.TurnResponse) {
	resp.Intent = sess.Intent
	switch sess.State {
	case domain.StateConfirming:
		resp.Confirm = true
		resp.Summary = orderSummary(sess)
		resp.Reply = fmt.Sprintf(msgConfirmSummary.in(sess.Language),
			sess.Fields[domain.FieldFullName],
			sess.Fields[domain.FieldStartDate],
			sess.Fields[domain.FieldEndDate],
			sess.Fields[domain.FieldPostalCode])
	case domain.StateCollecting, domain.StateEditing:
		if sess.Intent == domain.IntentReturn {
			c.collectReturn(sess, "", resp)
			return
		}
		if missing := MissingOrderFields(sess.Fields); len(missing) > 0 {
			resp.Reply = fmt.Sprintf(msgMissingFields.in(sess.Language), labelList(sess.Language, missing))
			return
		}
		c.validateAndConfirm(sess, resp)
	default:
		resp.Reply = msgFilesReceived.in(sess.Language)
	}
}

// answerQuestion serves the Q&A path: knowledge base first, generative
// fallback second, canned apology last.
func (c *Controller) answerQuestion(ctx context.Context, sess *domain.Session, text string, resp *domain.TurnResponse) {
	var refs []kb.Reference
	if c.answerer != nil {
		res, err := c.answerer.Answer(ctx, text, sess.Language)
		switch {
		case err != nil:
			log.Error().Err(err).Str("session_id", sess.ID).Msg("knowledge base lookup failed")
		case res.Found:
			resp.Reply = res.Answer
			return
		default:
			refs = res.References
		}
	}

	if c.generator != nil {
		out, err := c.generate(ctx, sess, refs)
		if err != nil {
			log.Warn().Err(err).Str("session_id", sess.ID).Msg("generative fallback failed")
		} else if strings.TrimSpace(out) != "" {
			resp.Reply = strings.TrimSpace(out)
			return
		}
	}

	resp.Reply = msgNoAnswer.in(sess.Language)
}

var replyLanguageLabels = map[domain.Language]string{
	domain.LangFrench:  "French",
	domain.LangEnglish: "English",
	domain.LangArabic:  "Arabic",
}

// generate asks the default provider for a reply over the recent history,
// grounded on the knowledge base's near-miss entries when there are any.
func (c *Controller) generate(ctx context.Context, sess *domain.Session, refs []kb.Reference) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.genTimeout)
	defer cancel()

	history := sess.History
	if len(history) > 12 {
		history = history[len(history)-12:]
	}
	var b strings.Builder
	if len(refs) > 0 {
		b.WriteString("FAQ entries close to the question:\n")
		for _, ref := range refs {
			b.WriteString("Q: " + ref.Question + "\nA: " + ref.Answer + "\n")
		}
		b.WriteString("\nConversation:\n")
	}
	for _, m := range history {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	system := "You are the assistant of a medical equipment rental service specialized in breast pumps. " +
		"Answer briefly and warmly, using the FAQ entries when they apply. " +
		"If you do not know, say so and point the customer to the support team. " +
		"Reply only in " + replyLanguageLabels[sess.Language] + "."
	return c.generator.Complete(ctx, system, b.String())
}

func orderSummary(sess *domain.Session) *domain.OrderSummary {
	return &domain.OrderSummary{
		Name:       sess.Fields[domain.FieldFullName],
		StartDate:  sess.Fields[domain.FieldStartDate],
		EndDate:    sess.Fields[domain.FieldEndDate],
		PostalCode: sess.Fields[domain.FieldPostalCode],
	}
}

// issueMessage turns validation failures into one corrective prompt, most
// specific first.
func issueMessage(language domain.Language, fields map[domain.FieldName]string, issues []FieldIssue) string {
	for _, is := range issues {
		if is.Code == "date_order" {
			return msgDateOrder.in(language)
		}
	}
	for _, is := range issues {
		if is.Code == "unparseable_date" {
			return fmt.Sprintf(msgBadDate.in(language), fields[is.Field])
		}
	}
	for _, is := range issues {
		if is.Code == "bad_postal" {
			return msgBadPostal.in(language)
		}
	}
	return msgBadName.in(language)
}

// clearIssueFields empties the failed fields so the next message fills
// them afresh.
func clearIssueFields(fields map[domain.FieldName]string, issues []FieldIssue) {
	for _, is := range issues {
		fields[is.Field] = ""
	}
}

func lastUserMessage(messages []domain.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
