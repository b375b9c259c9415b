// Package feedback grades question/answer turns with independent evaluators.
//
// Evaluators inspect either the user's input or the model's output and emit
// named signals. A Runner fans evaluators out concurrently with individual
// timeouts; an evaluator that fails or times out simply contributes no
// signal, it never blocks the turn.
package feedback

// Subject identifies which side of a turn an evaluator grades.
type Subject string

const (
	// SubjectInput evaluators grade the user's question.
	SubjectInput Subject = "input"
	// SubjectOutput evaluators grade the generated answer.
	SubjectOutput Subject = "output"
)

// Signal is one evaluator's verdict on a turn.
//
// Boolean evaluators set Bool; scored evaluators set Score in [0, 1].
// Consumers dispatch on Name and read the matching field.
type Signal struct {
	Name    string  `json:"name"`
	Subject Subject `json:"subject"`
	Bool    bool    `json:"bool,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

// SignalSet maps signal name to verdict for one turn.
type SignalSet map[string]Signal

// Lookup returns the named signal and whether it was produced this turn.
func (s SignalSet) Lookup(name string) (Signal, bool) {
	sig, ok := s[name]
	return sig, ok
}
