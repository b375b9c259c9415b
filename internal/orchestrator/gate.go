package orchestrator

import "github.com/fyrsmithlabs/medcoderd/internal/feedback"

// Rule names which guardrail fired for a turn.
type Rule string

const (
	// RuleNone means the raw answer passed through unchanged.
	RuleNone Rule = "none"
	// RulePII means personal information was detected in the question.
	RulePII Rule = "pii"
	// RuleRestate means the answer scored below the conciseness threshold.
	RuleRestate Rule = "restate"
)

// Canned replies returned when a guardrail fires.
const (
	PIIMessage     = "I'm sorry but personal information was detected in your question. Please remove any personal information."
	RestateMessage = "Please restate your question in a way the AI can understand and give a better answer"
)

// Gate applies the guardrails to a raw answer.
//
// PII on the input wins over everything else. Otherwise a conciseness score
// strictly below threshold asks the user to restate. An absent signal never
// fires its rule, so a turn with no feedback passes through untouched.
// Gate is pure: same inputs, same verdict.
func Gate(raw string, signals feedback.SignalSet, threshold float64) (string, Rule) {
	if sig, ok := signals.Lookup(feedback.SignalPIIDetection); ok && sig.Bool {
		return PIIMessage, RulePII
	}
	if sig, ok := signals.Lookup(feedback.SignalConciseness); ok && sig.Score < threshold {
		return RestateMessage, RuleRestate
	}
	return raw, RuleNone
}
