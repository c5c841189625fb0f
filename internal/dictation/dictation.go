// Package dictation defines the speech-capture capability notes consume.
// The core never talks to a speech provider directly: a Recognizer
// streams transcript events, and a Session folds them into the pending
// (not-yet-saved) note body. When no recognizer is available the feature
// is simply disabled.
package dictation

import (
	"bufio"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Event is a partial or final transcript chunk.
type Event struct {
	IsFinal bool   `json:"isFinal"`
	Text    string `json:"text"`
}

// Recognizer is the external dictation provider. Implementations deliver
// events on their own schedule; the channel is closed when capture ends.
type Recognizer interface {
	Start() error
	Stop() // idempotent; stopping a stopped session is a no-op
	Events() <-chan Event
}

// Session accumulates transcript events into a pending body buffer. The
// buffer is only ever read at save time, so no coordination with the
// note store is needed.
type Session struct {
	mu        sync.Mutex
	rec       Recognizer
	logger    *slog.Logger
	listening bool
	committed strings.Builder
	interim   string
	done      chan struct{}
}

// NewSession creates a session over the given recognizer. A nil
// recognizer is allowed and leaves the session permanently unavailable.
func NewSession(rec Recognizer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{rec: rec, logger: logger}
}

// Available reports whether dictation is supported in this environment.
func (s *Session) Available() bool {
	return s != nil && s.rec != nil
}

// Listening reports whether a capture is in progress.
func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// Start begins capture. Events are consumed until the recognizer closes
// its channel. Starting an unavailable or already-listening session is a
// no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.rec == nil || s.listening {
		s.mu.Unlock()
		return nil
	}
	s.listening = true
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if err := s.rec.Start(); err != nil {
		s.mu.Lock()
		s.listening = false
		// The channel is never closed on this path; drop it so Wait and
		// Stop don't block on it later.
		s.done = nil
		s.mu.Unlock()
		return err
	}

	go func() {
		defer close(done)
		for ev := range s.rec.Events() {
			s.apply(ev)
		}
		s.mu.Lock()
		s.listening = false
		s.mu.Unlock()
		s.logger.Debug("dictation capture ended")
	}()

	return nil
}

// Stop ends capture. Idempotent: stopping an already-stopped session is
// a no-op. Blocks until the event stream has drained.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.rec == nil || !s.listening {
		s.mu.Unlock()
		return
	}
	done := s.done
	s.mu.Unlock()

	s.rec.Stop()
	if done != nil {
		<-done
	}
}

// Toggle starts capture if stopped and stops it if listening. Returns
// whether the session is listening afterwards.
func (s *Session) Toggle() (bool, error) {
	if s.Listening() {
		s.Stop()
		return false, nil
	}
	if err := s.Start(); err != nil {
		return false, err
	}
	return s.Available(), nil
}

// Wait blocks until the current capture ends on its own, e.g. when the
// recognizer reaches the end of its input. Returns immediately if no
// capture was started.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Body returns the current pending body text: all finalized text plus
// the latest interim chunk.
func (s *Session) Body() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.TrimSpace(s.committed.String() + s.interim)
}

// Reset clears the pending body, e.g. after the text is saved into a
// note.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.Reset()
	s.interim = ""
}

func (s *Session) apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.IsFinal {
		s.committed.WriteString(ev.Text)
		s.committed.WriteString(" ")
		s.interim = ""
		return
	}
	// Interim chunks replace each other until finalized.
	s.interim = ev.Text
}

// ReaderRecognizer adapts a line-oriented text stream into a Recognizer:
// every line is emitted as a final transcript event. It backs dictation
// in environments without a speech provider (piped stdin, tests).
type ReaderRecognizer struct {
	r      io.Reader
	mu     sync.Mutex
	events chan Event
	stop   chan struct{}
	once   sync.Once
}

// NewReaderRecognizer creates a recognizer over r.
func NewReaderRecognizer(r io.Reader) *ReaderRecognizer {
	return &ReaderRecognizer{r: r}
}

// Start begins scanning lines from the reader.
func (r *ReaderRecognizer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events != nil {
		return nil
	}
	r.events = make(chan Event)
	r.stop = make(chan struct{})

	go func() {
		defer close(r.events)
		scanner := bufio.NewScanner(r.r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case r.events <- Event{IsFinal: true, Text: line}:
			case <-r.stop:
				return
			}
		}
	}()

	return nil
}

// Stop ends scanning. Safe to call repeatedly.
func (r *ReaderRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop == nil {
		return
	}
	r.once.Do(func() { close(r.stop) })
}

// Events returns the transcript stream.
func (r *ReaderRecognizer) Events() <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}
