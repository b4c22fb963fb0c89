package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlxsante/assistant/internal/domain"
	"github.com/tlxsante/assistant/internal/session"
)

func TestGetCreatesAndReuses(t *testing.T) {
	s := session.NewStore()

	sess := s.Get("abc")
	require.NotNil(t, sess)
	assert.Equal(t, "abc", sess.ID)
	assert.Equal(t, domain.StateIdle, sess.State)

	again := s.Get("abc")
	assert.Same(t, sess, again)
	assert.Equal(t, 1, s.Len())
}

func TestGetGeneratesID(t *testing.T) {
	s := session.NewStore()

	a := s.Get("")
	b := s.Get("")
	assert.NotEmpty(t, a.ID)
	assert.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, s.Len())
}

func TestGetConcurrentSameID(t *testing.T) {
	s := session.NewStore()

	const goroutines = 32
	out := make([]*domain.Session, goroutines)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = s.Get("same")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, out[0], out[i])
	}
	assert.Equal(t, 1, s.Len())
}

func TestSessionReset(t *testing.T) {
	s := session.NewStore()
	sess := s.Get("r")

	sess.Language = domain.LangEnglish
	sess.State = domain.StateConfirming
	sess.Intent = domain.IntentRent
	sess.Fields[domain.FieldFullName] = "Jean Dupont"
	sess.Attachments[domain.SlotPrescription] = &domain.Attachment{Filename: "a.pdf"}
	sess.Append(domain.RoleUser, "bonjour")

	sess.Reset()

	assert.Equal(t, domain.StateIdle, sess.State)
	assert.Equal(t, domain.IntentOther, sess.Intent)
	assert.Empty(t, sess.Fields)
	assert.Empty(t, sess.Attachments)
	assert.Empty(t, sess.History)
	assert.Equal(t, domain.LangEnglish, sess.Language, "reset keeps the resolved language")
}
