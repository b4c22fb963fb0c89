package domain

// Intent is a coarse classification of a user message driving flow entry.
type Intent string

const (
	IntentRent   Intent = "rent"
	IntentRenew  Intent = "renew"
	IntentReturn Intent = "return"
	// IntentOther is the default when no keyword set matches. It is not
	// "no intent": it routes the turn to Q&A instead of the rental flow.
	IntentOther Intent = "other"
)

// StartsFlow reports whether the intent (re)enters an order flow.
func (i Intent) StartsFlow() bool {
	return i == IntentRent || i == IntentRenew || i == IntentReturn
}
