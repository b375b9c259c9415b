package feedback

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultEvaluatorTimeout = 10 * time.Second

// Runner fans a fixed set of evaluators out over each turn.
type Runner struct {
	evaluators []Evaluator
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRunner creates a Runner. A non-positive timeout falls back to the
// default per-evaluator budget.
func NewRunner(evaluators []Evaluator, timeout time.Duration, logger *zap.Logger) *Runner {
	if timeout <= 0 {
		timeout = defaultEvaluatorTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{evaluators: evaluators, timeout: timeout, logger: logger}
}

// Run grades a turn with every evaluator concurrently and collects the
// signals that succeeded. Run never fails: an evaluator error is logged and
// its signal omitted.
//
// An evaluator still running at the deadline is abandoned, not joined. Its
// goroutine gets a cancelled context and may finish whenever it likes; the
// turn proceeds without its signal. This holds even for evaluators that
// ignore cancellation outright.
func (r *Runner) Run(ctx context.Context, question, answer string) SignalSet {
	if len(r.evaluators) == 0 {
		return nil
	}

	evalCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make([]chan outcome, len(r.evaluators))
	for i, ev := range r.evaluators {
		ch := make(chan outcome, 1)
		results[i] = ch
		go func(ev Evaluator, ch chan<- outcome) {
			sig, err := ev.Evaluate(evalCtx, question, answer)
			ch <- outcome{signal: sig, err: err}
		}(ev, ch)
	}

	deadline := time.Now().Add(r.timeout)
	signals := make(SignalSet, len(r.evaluators))
	for i, ev := range r.evaluators {
		out, ok := awaitOutcome(results[i], deadline)
		if !ok {
			r.logger.Warn("evaluator timed out",
				zap.String("evaluator", ev.Name()),
				zap.Duration("timeout", r.timeout))
			continue
		}
		if out.err != nil {
			r.logger.Warn("evaluator failed",
				zap.String("evaluator", ev.Name()),
				zap.Error(out.err))
			continue
		}
		signals[out.signal.Name] = out.signal
	}
	return signals
}

type outcome struct {
	signal Signal
	err    error
}

// awaitOutcome waits for one evaluator result until deadline. On expiry it
// takes one last non-blocking look so a result racing the timer still
// counts.
func awaitOutcome(ch <-chan outcome, deadline time.Time) (outcome, bool) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case out := <-ch:
		return out, true
	case <-timer.C:
		select {
		case out := <-ch:
			return out, true
		default:
			return outcome{}, false
		}
	}
}
