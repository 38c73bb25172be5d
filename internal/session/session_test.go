package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haandol/open-perplexity/internal/models"
)

func TestTurnAppendsUserAndAssistantMessages(t *testing.T) {
	s := New()
	err := s.Turn("What's the weather in Tokyo tomorrow?", func(state *models.State) (string, error) {
		return "Sunny tomorrow [1].", nil
	})
	require.NoError(t, err)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUser, history[0].Role)
	assert.Equal(t, "What's the weather in Tokyo tomorrow?", history[0].Content)
	assert.Equal(t, models.RoleAssistant, history[1].Role)
	assert.Equal(t, "Sunny tomorrow [1].", history[1].Content)
}

func TestTurnKeepsUserMessageOnFailure(t *testing.T) {
	s := New()
	boom := errors.New("backend down")
	err := s.Turn("hello", func(state *models.State) (string, error) {
		return "", boom
	})
	require.ErrorIs(t, err, boom)

	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, models.RoleUser, history[0].Role)
}

func TestTurnStateCarriesHistory(t *testing.T) {
	s := New()
	require.NoError(t, s.Turn("first question", func(state *models.State) (string, error) {
		return "first answer", nil
	}))

	var seen *models.State
	require.NoError(t, s.Turn("second question", func(state *models.State) (string, error) {
		seen = state
		return "second answer", nil
	}))

	require.NotNil(t, seen)
	assert.Equal(t, "second question", seen.UserInput)
	// the new user message is already part of the history the state sees
	require.Len(t, seen.Messages, 3)
	assert.Equal(t, "second question", seen.Messages[2].Content)
}

func TestTurnsOnOneSessionDoNotOverlap(t *testing.T) {
	s := New()
	var active int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Turn("q", func(state *models.State) (string, error) {
				if !atomic.CompareAndSwapInt32(&active, 0, 1) {
					t.Error("two turns ran concurrently on the same session")
				}
				time.Sleep(2 * time.Millisecond)
				atomic.StoreInt32(&active, 0)
				return "a", nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, s.History(), 16)
}

func TestHistoryReturnsACopy(t *testing.T) {
	s := New()
	require.NoError(t, s.Turn("q", func(state *models.State) (string, error) { return "a", nil }))

	history := s.History()
	history[0].Content = "mutated"
	assert.Equal(t, "q", s.History()[0].Content)
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	s := m.Create()
	require.NotEmpty(t, s.ID)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)

	m.Delete(s.ID)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
}

func TestSessionsGetDistinctIDs(t *testing.T) {
	m := NewManager()
	a := m.Create()
	b := m.Create()
	assert.NotEqual(t, a.ID, b.ID)
}
