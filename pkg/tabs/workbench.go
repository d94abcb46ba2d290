// Package tabs keeps the open request tabs of a workbench. Each tab owns
// its request independently, so sends on different tabs never contend.
package tabs

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/rocketboy/rocketboy/pkg/logging"
	"github.com/rocketboy/rocketboy/pkg/request"
)

var (
	// ErrNotFound is returned for an unknown tab id.
	ErrNotFound = errors.New("tab not found")

	// ErrSendInProgress is returned when a tab is already sending.
	ErrSendInProgress = errors.New("a send is already in progress for this tab")
)

// Sender sends one request for a tab. *executor.Executor implements it.
type Sender interface {
	SendTab(ctx context.Context, tabID string, spec *request.Spec) *request.Spec
}

// Tab is a snapshot of one open tab.
type Tab struct {
	ID      string        `json:"id"`
	Spec    *request.Spec `json:"request"`
	Saved   bool          `json:"saved"`
	Sending bool          `json:"sending"`
	Diff    *ResponseDiff `json:"diff,omitempty"`
}

type tab struct {
	id      string
	spec    *request.Spec
	saved   bool
	sending bool
	diff    *ResponseDiff
}

func (t *tab) snapshot() Tab {
	return Tab{
		ID:      t.id,
		Spec:    t.spec.Clone(),
		Saved:   t.saved,
		Sending: t.sending,
		Diff:    t.diff,
	}
}

// Workbench holds the open tabs.
type Workbench struct {
	sender Sender
	logger *slog.Logger

	mu    sync.RWMutex
	tabs  map[string]*tab
	order []string
}

// Option configures a Workbench.
type Option func(*Workbench)

// WithLogger sets the operational logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workbench) {
		w.logger = logging.Component(logger, "tabs")
	}
}

// NewWorkbench creates an empty workbench sending through sender.
func NewWorkbench(sender Sender, opts ...Option) *Workbench {
	w := &Workbench{
		sender: sender,
		logger: logging.Nop(),
		tabs:   make(map[string]*tab),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Open adds a tab holding a copy of spec. A nil spec opens a blank request.
func (w *Workbench) Open(spec *request.Spec) Tab {
	if spec == nil {
		spec = request.New()
	} else {
		spec = spec.Clone()
	}
	t := &tab{id: uuid.NewString(), spec: spec}

	w.mu.Lock()
	w.tabs[t.id] = t
	w.order = append(w.order, t.id)
	snap := t.snapshot()
	w.mu.Unlock()

	w.logger.Debug("tab opened", "tab", t.id, "name", spec.Name)
	return snap
}

// ImportRequests opens one tab per spec, in order.
func (w *Workbench) ImportRequests(specs []*request.Spec) []Tab {
	out := make([]Tab, 0, len(specs))
	for _, s := range specs {
		if s == nil {
			continue
		}
		out = append(out, w.Open(s))
	}
	return out
}

// Get returns a snapshot of tab id.
func (w *Workbench) Get(id string) (Tab, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.tabs[id]
	if !ok {
		return Tab{}, ErrNotFound
	}
	return t.snapshot(), nil
}

// List returns every tab in the order they were opened.
func (w *Workbench) List() []Tab {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Tab, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.tabs[id].snapshot())
	}
	return out
}

// Update replaces the request of tab id. The previous results are kept so
// the next send can be compared against them.
func (w *Workbench) Update(id string, spec *request.Spec) (Tab, error) {
	if spec == nil {
		return Tab{}, errors.New("request is required")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tabs[id]
	if !ok {
		return Tab{}, ErrNotFound
	}
	if t.sending {
		return Tab{}, ErrSendInProgress
	}
	next := spec.Clone()
	next.StatusCode = t.spec.StatusCode
	next.ResponseBody = t.spec.ResponseBody
	next.ResponseHeaders = t.spec.ResponseHeaders
	next.ResponseTime = t.spec.ResponseTime
	next.PreTestLog = t.spec.PreTestLog
	next.PostTestLog = t.spec.PostTestLog
	next.AssertionResults = t.spec.AssertionResults
	t.spec = next
	t.saved = false
	return t.snapshot(), nil
}

// MarkSaved flags tab id as saved.
func (w *Workbench) MarkSaved(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tabs[id]
	if !ok {
		return ErrNotFound
	}
	t.saved = true
	return nil
}

// Close removes tab id. The result of a send still in flight is discarded.
func (w *Workbench) Close(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.tabs[id]; !ok {
		return ErrNotFound
	}
	delete(w.tabs, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

// Send sends the request of tab id and stores the result. At most one send
// per tab runs at a time.
func (w *Workbench) Send(ctx context.Context, id string) (Tab, error) {
	w.mu.Lock()
	t, ok := w.tabs[id]
	if !ok {
		w.mu.Unlock()
		return Tab{}, ErrNotFound
	}
	if t.sending {
		w.mu.Unlock()
		return Tab{}, ErrSendInProgress
	}
	t.sending = true
	work := t.spec.Clone()
	var previous *string
	if t.spec.StatusCode != nil && t.spec.ResponseBody != nil {
		previous = request.Ptr(*t.spec.ResponseBody)
	}
	w.mu.Unlock()

	w.sender.SendTab(ctx, id, work)

	w.mu.Lock()
	defer w.mu.Unlock()
	t.sending = false
	if _, open := w.tabs[id]; !open {
		w.logger.Debug("tab closed during send", "tab", id)
		return t.snapshot(), ErrNotFound
	}
	t.diff = nil
	if previous != nil && work.StatusCode != nil && work.ResponseBody != nil {
		t.diff = DiffBodies(*previous, *work.ResponseBody)
	}
	t.spec = work
	return t.snapshot(), nil
}
