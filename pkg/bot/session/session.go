// Package session keeps the in-progress conversation of each user. State is
// in memory only and is lost on restart.
package session

import (
	"context"
	"sync"
	"time"
)

const DefaultTimeout = 30 * time.Minute

type Flow string

const (
	FlowCompliment    Flow = "compliment"
	FlowAddEvent      Flow = "add_event"
	FlowAddWish       Flow = "add_wish"
	FlowAddMemory     Flow = "add_memory"
	FlowAnswer        Flow = "answer"
	FlowAddQuestion   Flow = "add_question"
	FlowAddMovie      Flow = "add_movie"
	FlowAddIdea       Flow = "add_idea"
	FlowReminderTime  Flow = "reminder_time"
	FlowQuestionTimes Flow = "question_times"
	FlowMovieRoulette Flow = "movie_roulette"
)

type Step string

const (
	StepText        Step = "text"
	StepAttachment  Step = "attachment"
	StepTiming      Step = "timing"
	StepDate        Step = "date"
	StepClock       Step = "clock"
	StepTitle       Step = "title"
	StepDetails     Step = "details"
	StepLink        Step = "link"
	StepPhoto       Step = "photo"
	StepMedia       Step = "media"
	StepSendTime    Step = "send_time"
	StepSummaryTime Step = "summary_time"
	StepGenre       Step = "genre"
	StepPick        Step = "pick"
)

// Draft accumulates what a flow collected so far. Each flow uses the fields
// it needs.
type Draft struct {
	Text             string
	Caption          string
	AttachmentKind   string
	AttachmentFileID string
	Date             time.Time
	Title            string
	Details          string
	Link             string
	Day              string
	Clock            string
}

type State struct {
	Flow      Flow
	Step      Step
	ChatID    int64
	Draft     Draft
	ExpiresAt time.Time
}

type Manager struct {
	mu      sync.Mutex
	states  map[int64]State
	now     func() time.Time
	timeout time.Duration
}

func NewManager(now func() time.Time, timeout time.Duration) *Manager {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		states:  make(map[int64]State),
		now:     now,
		timeout: timeout,
	}
}

// Start replaces whatever the user was doing with a fresh flow.
func (m *Manager) Start(userID, chatID int64, flow Flow, step Step) State {
	state := State{
		Flow:      flow,
		Step:      step,
		ChatID:    chatID,
		ExpiresAt: m.now().Add(m.timeout),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = state
	return state
}

// Get returns the live state of the user. Expired state is dropped.
func (m *Manager) Get(userID int64) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[userID]
	if !ok {
		return State{}, false
	}
	if !m.now().Before(state.ExpiresAt) {
		delete(m.states, userID)
		return State{}, false
	}
	return state, true
}

// Advance moves the flow to step after applying fn to the draft, and
// extends the expiry. It reports false when there is no live state.
func (m *Manager) Advance(userID int64, step Step, fn func(*Draft)) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.states[userID]
	now := m.now()
	if !ok || !now.Before(state.ExpiresAt) {
		delete(m.states, userID)
		return State{}, false
	}
	if fn != nil {
		fn(&state.Draft)
	}
	state.Step = step
	state.ExpiresAt = now.Add(m.timeout)
	m.states[userID] = state
	return state, true
}

// Clear ends the user's flow and reports whether there was one.
func (m *Manager) Clear(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.states[userID]
	delete(m.states, userID)
	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func (m *Manager) SweepExpired() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for userID, state := range m.states {
		if !now.Before(state.ExpiresAt) {
			delete(m.states, userID)
			removed++
		}
	}
	return removed
}

func (m *Manager) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired()
		}
	}
}
