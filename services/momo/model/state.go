package model

// State of a transaction.
type State string

const (
	// StateInitiated - the provider accepted the request to pay for processing.
	StateInitiated State = "initiated"
	// StatePending - the provider has not settled the request to pay yet.
	StatePending State = "pending"
	// StateCompleted - the payer paid.
	StateCompleted State = "completed"
	// StateFailed - the payment will not happen.
	StateFailed State = "failed"
)

// Transitions represents the valid forward-transitions for each given state.
var Transitions = map[State][]State{
	StateInitiated: {StatePending, StateCompleted, StateFailed},
	StatePending:   {StatePending, StateCompleted, StateFailed},
	StateCompleted: {},
	StateFailed:    {},
}

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	_, ok := Transitions[s]
	return ok
}

// IsTerminal reports whether s has no way out.
func (s State) IsTerminal() bool {
	return s.IsValid() && len(Transitions[s]) == 0
}

// GetValidTransitions returns valid transitions.
func (s State) GetValidTransitions() []State {
	return Transitions[s]
}

// CanTransitionTo reports whether moving from s to next is allowed, staying put is always allowed
// for non terminal states.
func (s State) CanTransitionTo(next State) bool {
	for _, v := range Transitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// ValidateTransition checks a state change written to the store.
// Terminal states can be rewritten with themselves, which changes nothing.
func ValidateTransition(from, to State) error {
	if from == to && from.IsValid() {
		return nil
	}
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	return nil
}

// GetAllValidTransitionSequences returns all valid transition sequences from initiated,
// a state is visited once per sequence.
func GetAllValidTransitionSequences() [][]State {
	return RecurseTransitionResolution(StateInitiated, []State{})
}

// RecurseTransitionResolution returns the list of valid transition paths that are
// possible for a given state.
func RecurseTransitionResolution(state State, currentTree []State) [][]State {
	var (
		result      [][]State
		updatedTree = append(currentTree, state)
	)

	var possibleStates []State
	for _, next := range state.GetValidTransitions() {
		if !contains(updatedTree, next) {
			possibleStates = append(possibleStates, next)
		}
	}

	if len(possibleStates) == 0 {
		tempTree := make([]State, len(updatedTree))
		copy(tempTree, updatedTree)
		result = append(result, tempTree)
		return result
	}

	for _, possibleState := range possibleStates {
		recursed := RecurseTransitionResolution(possibleState, updatedTree)
		result = append(result, recursed...)
	}
	return result
}

func contains(states []State, s State) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}
