package scan

// Phase is the state of a scan session.
type Phase string

const (
	PhaseIdle              Phase = "Idle"
	PhaseContextAdded      Phase = "ContextAdded"
	PhaseSpiderRunning     Phase = "SpiderRunning"
	PhaseSpiderDone        Phase = "SpiderDone"
	PhaseActiveScanRunning Phase = "ActiveScanRunning"
	PhaseActiveScanDone    Phase = "ActiveScanDone"
	PhaseCompleted         Phase = "Completed"
	PhaseFailed            Phase = "Failed"
)

var phaseRank = map[Phase]int{
	PhaseIdle:              0,
	PhaseContextAdded:      1,
	PhaseSpiderRunning:     2,
	PhaseSpiderDone:        3,
	PhaseActiveScanRunning: 4,
	PhaseActiveScanDone:    5,
	PhaseCompleted:         6,
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// CanTransition reports whether a session in p may move to next.
// Failed is reachable from every non-terminal phase; every other move must
// go strictly forward. Polling within a running phase is not a transition.
func (p Phase) CanTransition(next Phase) bool {
	if p.Terminal() {
		return false
	}
	if next == PhaseFailed {
		return true
	}
	from, ok := phaseRank[p]
	if !ok {
		return false
	}
	to, ok := phaseRank[next]
	return ok && to > from
}
