package quicksend

import "fmt"

// State is a step of one quick-send invocation. Fallback and Dispatch are
// terminal.
type State int

const (
	StateLoad State = iota
	StateRuleEvaluation
	StateDesignation
	StateFirstTemplate
	StateFallback
	StateDispatch
)

var stateNames = map[State]string{
	StateLoad:           "load",
	StateRuleEvaluation: "rule_evaluation",
	StateDesignation:    "designation",
	StateFirstTemplate:  "first_template",
	StateFallback:       "fallback",
	StateDispatch:       "dispatch",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for k, v := range stateNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("unknown quick-send state %q", text)
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateFallback || s == StateDispatch
}
