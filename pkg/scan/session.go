package scan

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketboy/rocketboy/pkg/zapclient"
)

// Event is one progress line.
type Event struct {
	SessionID string    `json:"sessionId"`
	Phase     Phase     `json:"phase"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	ID           string                `json:"id"`
	TargetURL    string                `json:"targetUrl"`
	Phase        Phase                 `json:"phase"`
	SpiderScanID int                   `json:"spiderScanId"`
	ActiveScanID int                   `json:"activeScanId"`
	ProgressLog  []string              `json:"progressLog"`
	Alerts       *string               `json:"alerts,omitempty"`
	Summary      []zapclient.RiskCount `json:"summary,omitempty"`
	Error        string                `json:"error,omitempty"`
	StartedAt    time.Time             `json:"startedAt"`
	FinishedAt   *time.Time            `json:"finishedAt,omitempty"`
}

// subscriberBuffer is the live capacity of a subscription on top of the
// replayed backlog.
const subscriberBuffer = 64

// Session is one scan of one target. It is safe for concurrent use; only
// the Orchestrator changes it.
type Session struct {
	mu sync.RWMutex

	id           string
	targetURL    string
	phase        Phase
	spiderScanID int
	activeScanID int
	progressLog  []string
	events       []Event
	alerts       *string
	summary      []zapclient.RiskCount
	err          error
	startedAt    time.Time
	finishedAt   time.Time

	subs map[chan Event]struct{}
	done chan struct{}
}

// NewSession creates an Idle session for targetURL.
func NewSession(targetURL string) *Session {
	return &Session{
		id:        uuid.NewString(),
		targetURL: targetURL,
		phase:     PhaseIdle,
		startedAt: time.Now(),
		subs:      make(map[chan Event]struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Session) ID() string        { return s.id }
func (s *Session) TargetURL() string { return s.targetURL }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Err returns the failure cause of a Failed session.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ProgressLog returns a copy of the progress lines so far.
func (s *Session) ProgressLog() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.progressLog...)
}

// Alerts returns the raw alert report once Completed.
func (s *Session) Alerts() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.alerts == nil {
		return "", false
	}
	return *s.alerts, true
}

// Done is closed when the session reaches a terminal phase.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ID:           s.id,
		TargetURL:    s.targetURL,
		Phase:        s.phase,
		SpiderScanID: s.spiderScanID,
		ActiveScanID: s.activeScanID,
		ProgressLog:  append([]string{}, s.progressLog...),
		Summary:      s.summary,
		StartedAt:    s.startedAt,
	}
	if s.alerts != nil {
		a := *s.alerts
		snap.Alerts = &a
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		snap.FinishedAt = &t
	}
	return snap
}

// Subscribe returns a channel that first replays every event so far and
// then receives new ones. The channel is closed when the session ends or
// when unsubscribe is called. A subscriber that falls more than the buffer
// behind loses intermediate events, but the terminal event always arrives
// last; the progress log stays complete.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, len(s.events)+subscriberBuffer)
	for _, ev := range s.events {
		ch <- ev
	}
	if s.phase.Terminal() {
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// transition moves the session to next and records msg.
func (s *Session) transition(next Phase, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(next, msg)
}

// fail records err and moves the session to Failed.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.phase.CanTransition(PhaseFailed) {
		return &TransitionError{From: s.phase, To: PhaseFailed}
	}
	s.err = err
	return s.transitionLocked(PhaseFailed, "Scan failed: "+err.Error())
}

func (s *Session) transitionLocked(next Phase, msg string) error {
	if !s.phase.CanTransition(next) {
		return &TransitionError{From: s.phase, To: next}
	}
	s.phase = next
	s.appendLocked(msg)
	if next.Terminal() {
		s.finishedAt = time.Now()
		for ch := range s.subs {
			close(ch)
		}
		s.subs = make(map[chan Event]struct{})
		close(s.done)
	}
	return nil
}

// logf records a progress line without changing phase.
func (s *Session) logf(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(msg)
}

func (s *Session) appendLocked(msg string) {
	ev := Event{SessionID: s.id, Phase: s.phase, Message: msg, Time: time.Now()}
	s.progressLog = append(s.progressLog, msg)
	s.events = append(s.events, ev)
	terminal := s.phase.Terminal()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
			if !terminal {
				continue
			}
			// Only appendLocked sends, so freeing one slot guarantees room.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) setSpiderScanID(id int) {
	s.mu.Lock()
	s.spiderScanID = id
	s.mu.Unlock()
}

func (s *Session) setActiveScanID(id int) {
	s.mu.Lock()
	s.activeScanID = id
	s.mu.Unlock()
}

func (s *Session) setAlerts(report string, summary []zapclient.RiskCount) {
	s.mu.Lock()
	s.alerts = &report
	s.summary = summary
	s.mu.Unlock()
}
