package view

import (
	"sync"
	"time"
)

// DefaultStatusDelay is how long a status message stays visible.
const DefaultStatusDelay = 2 * time.Second

// Kind tells a success banner from an error banner.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is the banner shown after a user action.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Status is a transient banner that clears itself after a fixed delay. A
// newer message replaces the older one and restarts the delay.
type Status struct {
	mu    sync.Mutex
	delay time.Duration
	msg   Message
	set   bool
	seq   uint64
	timer *time.Timer
}

// NewStatus returns an empty banner. Non-positive delays use
// DefaultStatusDelay.
func NewStatus(delay time.Duration) *Status {
	if delay <= 0 {
		delay = DefaultStatusDelay
	}
	return &Status{delay: delay}
}

// Success shows text as a success banner.
func (s *Status) Success(text string) { s.show(Message{Kind: KindSuccess, Text: text}) }

// Error shows text as an error banner.
func (s *Status) Error(text string) { s.show(Message{Kind: KindError, Text: text}) }

// Current returns the visible message, if any.
func (s *Status) Current() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msg, s.set
}

// Clear hides the banner immediately.
func (s *Status) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.stopTimer()
	s.msg, s.set = Message{}, false
}

func (s *Status) show(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq
	s.stopTimer()
	s.msg, s.set = m, true
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seq == seq {
			s.msg, s.set = Message{}, false
		}
	})
}

// Stop cancels any pending clear. The current message stays visible.
func (s *Status) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimer()
}

func (s *Status) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
