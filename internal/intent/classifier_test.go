package intent_test

import (
	"testing"

	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/intent"
)

func TestClassify(t *testing.T) {
	c := intent.NewClassifier()

	tests := []struct {
		name string
		text string
		want domain.Intent
	}{
		// French
		{"fr rent", "Bonjour, je veux louer un tire-lait", domain.IntentRent},
		{"fr rent location", "c'est pour une location", domain.IntentRent},
		{"fr renew", "je souhaite renouveler ma location", domain.IntentRenew},
		{"fr renew prolong", "peut-on prolonger d'un mois ?", domain.IntentRenew},
		{"fr return", "je veux rendre l'appareil", domain.IntentReturn},

		// English
		{"en rent", "hi, I would like to rent a breast pump", domain.IntentRent},
		{"en renew", "can I renew for two more weeks?", domain.IntentRenew},
		{"en return", "I need to send back the device", domain.IntentReturn},

		// Arabic
		{"ar rent", "أريد استئجار مضخة", domain.IntentRent},
		{"ar renew", "أود تجديد الإيجار", domain.IntentRenew},
		{"ar return", "أريد إرجاع الجهاز", domain.IntentReturn},

		// Device shorthand + failure wording reads as a return
		{"shorthand broken", "mon tl ne fonctionne plus", domain.IntentReturn},
		{"shorthand not working", "the tl is not working", domain.IntentReturn},
		{"full device word broken", "mon tire-lait ne fonctionne plus", domain.IntentReturn},

		// No keyword set matches
		{"question", "quels sont vos horaires ?", domain.IntentOther},
		{"greeting", "bonjour !", domain.IntentOther},
		{"empty", "", domain.IntentOther},
		{"whitespace", "   ", domain.IntentOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyShorthandNeedsBoundary(t *testing.T) {
	c := intent.NewClassifier()

	// "tl" inside another word must not combine with failure vocabulary.
	if got := c.Classify("gently, rien ne fonctionne chez moi"); got == domain.IntentReturn {
		t.Errorf("embedded shorthand classified as return")
	}
}
