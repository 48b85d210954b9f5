package executor

// The per-item control flow is a small state machine. Keeping the transition
// function pure makes the retry-with-repair logic testable without a live
// API call; the executor only supplies events as they happen.

// phase is the processing state of one item.
type phase int

const (
	phaseDispatch phase = iota // sending the initial request
	phaseRepair                // sending a corrective follow-up request
	phaseSucceeded
	phaseFailedValidation
	phaseFailedTransient
)

func (p phase) String() string {
	switch p {
	case phaseDispatch:
		return "dispatch"
	case phaseRepair:
		return "repair"
	case phaseSucceeded:
		return "succeeded"
	case phaseFailedValidation:
		return "failed_validation"
	case phaseFailedTransient:
		return "failed_transient"
	}
	return "unknown"
}

// terminal reports whether no further requests will be made.
func (p phase) terminal() bool {
	return p == phaseSucceeded || p == phaseFailedValidation || p == phaseFailedTransient
}

// machineEvent is what happened to the in-flight request.
type machineEvent int

const (
	// eventValid: the response parsed and passed structural validation.
	eventValid machineEvent = iota
	// eventInvalid: the response was received but failed parsing or
	// validation.
	eventInvalid
	// eventTransientExhausted: the transient retry budget ran out without a
	// response.
	eventTransientExhausted
)

// next is the pure transition function: given the current phase, the event,
// and how many repair attempts remain, it returns the next phase. An invalid
// response moves to repair while budget remains, and to failed_validation
// once the budget is spent. Transient exhaustion during the initial dispatch
// is terminal; during a repair it is treated as a failed repair attempt
// rather than a transient failure, because a valid response was already
// proven reachable.
func next(p phase, ev machineEvent, repairsLeft int) phase {
	if p.terminal() {
		return p
	}

	switch ev {
	case eventValid:
		return phaseSucceeded

	case eventInvalid:
		if repairsLeft > 0 {
			return phaseRepair
		}
		return phaseFailedValidation

	case eventTransientExhausted:
		if p == phaseRepair {
			if repairsLeft > 0 {
				return phaseRepair
			}
			return phaseFailedValidation
		}
		return phaseFailedTransient
	}

	return p
}
