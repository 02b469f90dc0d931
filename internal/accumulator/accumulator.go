// Package accumulator applies voted symbols to the recognized text.
//
// The state machine has no phases of its own. Reduce is a pure function from
// (state, vote) to the next state, and the only memory besides the two text
// buffers is the last appended letter used for debouncing.
package accumulator

import (
	"unicode/utf8"

	"github.com/ayusman/signscribe/internal/gesture"
)

// DefaultThreshold is the confidence a vote must exceed to be applied.
const DefaultThreshold = 0.7

// State is the accumulated text. The zero value is empty.
type State struct {
	// Pending is the working text being spelled.
	Pending string
	// Confirmed is the text most recently finalized by a commit.
	Confirmed string
	// LastLetter is the letter appended by the previous applied vote, empty
	// if that vote was a control symbol. Only a letter repeated with no control
	// symbol in between is debounced.
	LastLetter gesture.Symbol
}

// Action reports what a reduction did.
type Action int

const (
	// ActionNone means there was no vote.
	ActionNone Action = iota
	// ActionRejected means the vote did not exceed the threshold.
	ActionRejected
	// ActionCommit moved Pending into Confirmed.
	ActionCommit
	// ActionSpace appended a space.
	ActionSpace
	// ActionBackspace removed the last character, or did nothing on empty text.
	ActionBackspace
	// ActionAppend appended a letter.
	ActionAppend
	// ActionDebounced suppressed a repeat of the last letter.
	ActionDebounced
)

var actionNames = [...]string{
	ActionNone:      "none",
	ActionRejected:  "rejected",
	ActionCommit:    "commit",
	ActionSpace:     "space",
	ActionBackspace: "backspace",
	ActionAppend:    "append",
	ActionDebounced: "debounced",
}

// String implements fmt.Stringer.
func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// Mutates reports whether the action changed the state.
func (a Action) Mutates() bool {
	switch a {
	case ActionCommit, ActionSpace, ActionBackspace, ActionAppend:
		return true
	}
	return false
}

// Reducer applies confidence-gated votes to a State.
type Reducer struct {
	// Threshold is exclusive: a vote with Confidence equal to it is discarded.
	Threshold float64
}

// NewReducer returns a Reducer with the given threshold.
func NewReducer(threshold float64) Reducer {
	return Reducer{Threshold: threshold}
}

// Reduce returns the state after applying vote, and what was done.
// A nil vote or one at or below the threshold leaves the state untouched.
// Control symbols re-arm the debounce, so a letter can be repeated by
// signing any control symbol between the two occurrences.
func (r Reducer) Reduce(s State, vote *gesture.Vote) (State, Action) {
	if vote == nil {
		return s, ActionNone
	}
	if vote.Confidence <= r.Threshold {
		return s, ActionRejected
	}

	switch vote.Symbol {
	case gesture.SymbolCommit:
		s.Confirmed = s.Pending
		s.Pending = ""
		s.LastLetter = ""
		return s, ActionCommit

	case gesture.SymbolSpace:
		s.Pending += " "
		s.LastLetter = ""
		return s, ActionSpace

	case gesture.SymbolBackspace:
		if s.Pending != "" {
			_, size := utf8.DecodeLastRuneInString(s.Pending)
			s.Pending = s.Pending[:len(s.Pending)-size]
		}
		s.LastLetter = ""
		return s, ActionBackspace

	default:
		if vote.Symbol == s.LastLetter {
			return s, ActionDebounced
		}
		s.Pending += string(vote.Symbol)
		s.LastLetter = vote.Symbol
		return s, ActionAppend
	}
}
