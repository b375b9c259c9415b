package feedback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// Signal names produced by the built-in evaluators.
const (
	SignalPIIDetection = "pii_detection"
	SignalConciseness  = "conciseness"
)

// ErrUnparsableVerdict indicates the grading model returned something the
// evaluator could not interpret.
var ErrUnparsableVerdict = errors.New("unparsable evaluator verdict")

// Evaluator grades one side of a question/answer turn.
type Evaluator interface {
	// Name is the signal name this evaluator emits.
	Name() string
	// Subject reports which side of the turn is graded.
	Subject() Subject
	// Evaluate grades the turn. Input evaluators read question, output
	// evaluators read answer; the other argument is ignored.
	Evaluate(ctx context.Context, question, answer string) (Signal, error)
}

const piiPromptTemplate = `Does the following text contain personally identifiable information such as a person's name, date of birth, address, phone number, email address, social security number, or medical record number?
Answer with exactly one word: yes or no.

Text: %s`

// PIIEvaluator flags personal information in the user's question using a
// grading model.
type PIIEvaluator struct {
	llm llms.Model
}

// NewPIIEvaluator creates the input-side PII detector.
func NewPIIEvaluator(llm llms.Model) *PIIEvaluator {
	return &PIIEvaluator{llm: llm}
}

func (e *PIIEvaluator) Name() string     { return SignalPIIDetection }
func (e *PIIEvaluator) Subject() Subject { return SubjectInput }

func (e *PIIEvaluator) Evaluate(ctx context.Context, question, _ string) (Signal, error) {
	verdict, err := llms.GenerateFromSinglePrompt(ctx, e.llm,
		fmt.Sprintf(piiPromptTemplate, question),
		llms.WithTemperature(0),
	)
	if err != nil {
		return Signal{}, fmt.Errorf("grading pii: %w", err)
	}

	switch strings.ToLower(strings.Trim(strings.TrimSpace(verdict), ".")) {
	case "yes":
		return Signal{Name: SignalPIIDetection, Subject: SubjectInput, Bool: true}, nil
	case "no":
		return Signal{Name: SignalPIIDetection, Subject: SubjectInput, Bool: false}, nil
	default:
		return Signal{}, fmt.Errorf("%w: %q", ErrUnparsableVerdict, verdict)
	}
}

const concisenessPromptTemplate = `Rate how concise the following answer is on a scale from 0.0 to 1.0, where 1.0 is a direct, to-the-point answer and 0.0 is rambling or evasive.
Respond with only the number.

Answer: %s`

// ConcisenessEvaluator scores how concise the generated answer is using a
// grading model.
type ConcisenessEvaluator struct {
	llm llms.Model
}

// NewConcisenessEvaluator creates the output-side conciseness scorer.
func NewConcisenessEvaluator(llm llms.Model) *ConcisenessEvaluator {
	return &ConcisenessEvaluator{llm: llm}
}

func (e *ConcisenessEvaluator) Name() string     { return SignalConciseness }
func (e *ConcisenessEvaluator) Subject() Subject { return SubjectOutput }

func (e *ConcisenessEvaluator) Evaluate(ctx context.Context, _, answer string) (Signal, error) {
	verdict, err := llms.GenerateFromSinglePrompt(ctx, e.llm,
		fmt.Sprintf(concisenessPromptTemplate, answer),
		llms.WithTemperature(0),
	)
	if err != nil {
		return Signal{}, fmt.Errorf("grading conciseness: %w", err)
	}

	score, err := strconv.ParseFloat(strings.TrimSpace(verdict), 64)
	if err != nil || score < 0 || score > 1 {
		return Signal{}, fmt.Errorf("%w: %q", ErrUnparsableVerdict, verdict)
	}
	return Signal{Name: SignalConciseness, Subject: SubjectOutput, Score: score}, nil
}
