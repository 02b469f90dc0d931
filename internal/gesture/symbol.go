// Package gesture turns hand landmarks into a smoothed stream of sign symbols.
//
// The stages are feature normalization, classification and temporal voting.
// Text editing on top of the voted symbols lives in package accumulator.
package gesture

// Symbol is a classifier output label.
type Symbol string

// Control symbols. Every other label is a letter appended verbatim.
const (
	SymbolCommit    Symbol = "OK"
	SymbolSpace     Symbol = "SPACE"
	SymbolBackspace Symbol = "BACKSPACE"
)

// IsControl reports whether s is one of the editing control symbols.
func (s Symbol) IsControl() bool {
	switch s {
	case SymbolCommit, SymbolSpace, SymbolBackspace:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (s Symbol) String() string {
	return string(s)
}
