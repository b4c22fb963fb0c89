package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tlxsante/assistant/internal/domain"
)

func TestExtractOrderFields(t *testing.T) {
	t.Run("single message with everything", func(t *testing.T) {
		fields := map[domain.FieldName]string{}
		ExtractOrderFields(fields, "Jean Dupont, du 22/01/2026 au 15/02/2026, 75011")

		assert.Equal(t, "Jean Dupont", fields[domain.FieldFullName])
		assert.Equal(t, "22/01/2026", fields[domain.FieldStartDate])
		assert.Equal(t, "15/02/2026", fields[domain.FieldEndDate])
		assert.Equal(t, "75011", fields[domain.FieldPostalCode])
	})

	t.Run("a date year is never taken for a postal code", func(t *testing.T) {
		fields := map[domain.FieldName]string{}
		ExtractOrderFields(fields, "du 22/01/2026 au 15/02/2026")

		assert.Empty(t, fields[domain.FieldPostalCode])
	})

	t.Run("existing values are kept", func(t *testing.T) {
		fields := map[domain.FieldName]string{
			domain.FieldStartDate: "01/01/2026",
		}
		ExtractOrderFields(fields, "finalement jusqu'au 20/03/2026")

		assert.Equal(t, "01/01/2026", fields[domain.FieldStartDate])
		assert.Equal(t, "20/03/2026", fields[domain.FieldEndDate])
	})

	t.Run("four digit postal code", func(t *testing.T) {
		fields := map[domain.FieldName]string{}
		ExtractOrderFields(fields, "Marie Curie, 1040")
		assert.Equal(t, "1040", fields[domain.FieldPostalCode])
	})

	t.Run("flow chatter is not a name", func(t *testing.T) {
		fields := map[domain.FieldName]string{}
		ExtractOrderFields(fields, "bonjour je veux louer un tire lait")
		assert.Empty(t, fields[domain.FieldFullName])
	})

	t.Run("hyphenated and accented names", func(t *testing.T) {
		fields := map[domain.FieldName]string{}
		ExtractOrderFields(fields, "Anne-Sophie Müller")
		assert.Equal(t, "Anne-Sophie Müller", fields[domain.FieldFullName])
	})
}

func TestMissingOrderFields(t *testing.T) {
	fields := map[domain.FieldName]string{
		domain.FieldFullName:  "Jean Dupont",
		domain.FieldStartDate: "22/01/2026",
	}
	missing := MissingOrderFields(fields)
	assert.Equal(t, []domain.FieldName{domain.FieldEndDate, domain.FieldPostalCode}, missing)

	fields[domain.FieldEndDate] = "15/02/2026"
	fields[domain.FieldPostalCode] = "75011"
	assert.Empty(t, MissingOrderFields(fields))
}

func TestValidateOrderFields(t *testing.T) {
	valid := func() map[domain.FieldName]string {
		return map[domain.FieldName]string{
			domain.FieldFullName:   "Jean Dupont",
			domain.FieldStartDate:  "22/01/2026",
			domain.FieldEndDate:    "15/02/2026",
			domain.FieldPostalCode: "75011",
		}
	}

	t.Run("valid set passes", func(t *testing.T) {
		assert.Empty(t, ValidateOrderFields(valid()))
	})

	t.Run("two digit year accepted", func(t *testing.T) {
		f := valid()
		f[domain.FieldStartDate] = "22/01/26"
		assert.Empty(t, ValidateOrderFields(f))
	})

	t.Run("impossible date", func(t *testing.T) {
		f := valid()
		f[domain.FieldStartDate] = "32/01/2026"
		issues := ValidateOrderFields(f)
		assert.Len(t, issues, 1)
		assert.Equal(t, "unparseable_date", issues[0].Code)
		assert.Equal(t, domain.FieldStartDate, issues[0].Field)
	})

	t.Run("end before start", func(t *testing.T) {
		f := valid()
		f[domain.FieldStartDate] = "15/02/2026"
		f[domain.FieldEndDate] = "22/01/2026"
		issues := ValidateOrderFields(f)
		assert.Len(t, issues, 2)
		assert.Equal(t, "date_order", issues[0].Code)
	})

	t.Run("bad postal", func(t *testing.T) {
		f := valid()
		f[domain.FieldPostalCode] = "123"
		issues := ValidateOrderFields(f)
		assert.Len(t, issues, 1)
		assert.Equal(t, "bad_postal", issues[0].Code)
	})

	t.Run("single word name", func(t *testing.T) {
		f := valid()
		f[domain.FieldFullName] = "Jean"
		issues := ValidateOrderFields(f)
		assert.Len(t, issues, 1)
		assert.Equal(t, "bad_name", issues[0].Code)
	})
}

func TestExtractOrderReference(t *testing.T) {
	assert.Equal(t, "CMD-2024-118", ExtractOrderReference("ma commande CMD-2024-118 svp"))
	assert.Equal(t, "A1234", ExtractOrderReference("ref A1234"))
	// A plain word is not a reference, even at four-plus characters.
	assert.Empty(t, ExtractOrderReference("bonjour voici ma commande"))
	assert.Empty(t, ExtractOrderReference(""))
}

func TestExtractReturnChoice(t *testing.T) {
	assert.Equal(t, "exchange", ExtractReturnChoice("je prefere un echange"))
	assert.Equal(t, "refund", ExtractReturnChoice("un remboursement svp"))
	assert.Equal(t, "refund", ExtractReturnChoice("i want a refund"))
	assert.Empty(t, ExtractReturnChoice("je ne sais pas"))
}

func TestAffirmativeNegativeReset(t *testing.T) {
	t.Run("affirmative", func(t *testing.T) {
		for _, s := range []string{"oui", "Oui merci", "yes", "ok", "d'accord", "je confirme", "نعم"} {
			assert.True(t, IsAffirmative(s), "IsAffirmative(%q)", s)
		}
		for _, s := range []string{"bonjour", "non", "je voudrais un devis", ""} {
			assert.False(t, IsAffirmative(s), "IsAffirmative(%q)", s)
		}
	})

	t.Run("negative", func(t *testing.T) {
		for _, s := range []string{"non", "No", "j'annule", "annuler", "cancel", "لا"} {
			assert.True(t, IsNegative(s), "IsNegative(%q)", s)
		}
		for _, s := range []string{"oui", "bonjour", ""} {
			assert.False(t, IsNegative(s), "IsNegative(%q)", s)
		}
	})

	t.Run("reset", func(t *testing.T) {
		assert.True(t, IsReset("reset"))
		assert.True(t, IsReset("on peut tout recommencer ?"))
		assert.False(t, IsReset("bonjour"))
	})
}

func TestReturnReason(t *testing.T) {
	issue, end := ReturnReason("mon tire-lait ne fonctionne plus")
	assert.True(t, issue)
	assert.False(t, end)

	issue, end = ReturnReason("j'ai fini, je n'en ai plus besoin")
	assert.False(t, issue)
	assert.True(t, end)

	issue, end = ReturnReason("je veux faire un retour")
	assert.False(t, issue)
	assert.False(t, end)
}

func TestParseLabeledEdits(t *testing.T) {
	t.Run("single edit", func(t *testing.T) {
		edits, unknown := ParseLabeledEdits("code postal : 75020")
		assert.Empty(t, unknown)
		assert.Equal(t, map[domain.FieldName]string{domain.FieldPostalCode: "75020"}, edits)
	})

	t.Run("multiple edits with accents", func(t *testing.T) {
		edits, unknown := ParseLabeledEdits("date début: 01/02/2026; date fin: 28/02/2026")
		assert.Empty(t, unknown)
		assert.Equal(t, "01/02/2026", edits[domain.FieldStartDate])
		assert.Equal(t, "28/02/2026", edits[domain.FieldEndDate])
	})

	t.Run("english labels", func(t *testing.T) {
		edits, _ := ParseLabeledEdits("start date = 01/02/2026")
		assert.Equal(t, "01/02/2026", edits[domain.FieldStartDate])
	})

	t.Run("unknown label reported", func(t *testing.T) {
		edits, unknown := ParseLabeledEdits("couleur : rose")
		assert.Empty(t, edits)
		assert.Equal(t, []string{"couleur"}, unknown)
	})

	t.Run("free text is not an edit", func(t *testing.T) {
		edits, unknown := ParseLabeledEdits("je confirme tout")
		assert.Empty(t, edits)
		assert.Empty(t, unknown)
	})
}
