package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap/zaptest"
)

// scriptedLLM returns a fixed completion for every prompt.
type scriptedLLM struct {
	reply string
	err   error
}

func (l *scriptedLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if l.err != nil {
		return nil, l.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: l.reply}},
	}, nil
}

func (l *scriptedLLM) Call(ctx context.Context, _ string, opts ...llms.CallOption) (string, error) {
	resp, err := l.GenerateContent(ctx, nil, opts...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestPIIEvaluator(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		wantBool bool
		wantErr  bool
	}{
		{name: "detected", reply: "yes", wantBool: true},
		{name: "clean", reply: "no", wantBool: false},
		{name: "trailing period", reply: "Yes.", wantBool: true},
		{name: "garbage", reply: "perhaps", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewPIIEvaluator(&scriptedLLM{reply: tt.reply})
			assert.Equal(t, SignalPIIDetection, ev.Name())
			assert.Equal(t, SubjectInput, ev.Subject())

			sig, err := ev.Evaluate(context.Background(), "Patient John Smith seen today", "")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparsableVerdict)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBool, sig.Bool)
		})
	}
}

func TestConcisenessEvaluator(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantScore float64
		wantErr   bool
	}{
		{name: "high", reply: "0.9", wantScore: 0.9},
		{name: "low", reply: "0.1", wantScore: 0.1},
		{name: "whitespace", reply: " 1.0\n", wantScore: 1.0},
		{name: "out of range", reply: "7", wantErr: true},
		{name: "not a number", reply: "pretty good", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewConcisenessEvaluator(&scriptedLLM{reply: tt.reply})
			assert.Equal(t, SignalConciseness, ev.Name())
			assert.Equal(t, SubjectOutput, ev.Subject())

			sig, err := ev.Evaluate(context.Background(), "", "99213")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnparsableVerdict)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantScore, sig.Score, 1e-9)
		})
	}
}

func TestEvaluatorGraderError(t *testing.T) {
	ev := NewPIIEvaluator(&scriptedLLM{err: errors.New("backend down")})
	_, err := ev.Evaluate(context.Background(), "question", "")
	assert.Error(t, err)
}

// stubEvaluator is a canned evaluator for Runner tests. With ignoreCtx set
// it sleeps through its full delay no matter what the context says, like a
// hung network call.
type stubEvaluator struct {
	name      string
	signal    Signal
	err       error
	delay     time.Duration
	ignoreCtx bool
}

func (s *stubEvaluator) Name() string     { return s.name }
func (s *stubEvaluator) Subject() Subject { return s.signal.Subject }

func (s *stubEvaluator) Evaluate(ctx context.Context, _, _ string) (Signal, error) {
	if s.delay > 0 {
		if s.ignoreCtx {
			time.Sleep(s.delay)
		} else {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return Signal{}, ctx.Err()
			}
		}
	}
	return s.signal, s.err
}

func TestRunnerCollectsAllSignals(t *testing.T) {
	runner := NewRunner([]Evaluator{
		&stubEvaluator{name: "pii_detection", signal: Signal{Name: "pii_detection", Subject: SubjectInput, Bool: false}},
		&stubEvaluator{name: "conciseness", signal: Signal{Name: "conciseness", Subject: SubjectOutput, Score: 0.8}},
	}, time.Second, zaptest.NewLogger(t))

	signals := runner.Run(context.Background(), "q", "a")
	require.Len(t, signals, 2)

	sig, ok := signals.Lookup("conciseness")
	require.True(t, ok)
	assert.InDelta(t, 0.8, sig.Score, 1e-9)
}

func TestRunnerOmitsFailedEvaluator(t *testing.T) {
	runner := NewRunner([]Evaluator{
		&stubEvaluator{name: "pii_detection", signal: Signal{Name: "pii_detection", Subject: SubjectInput}, err: errors.New("grader unavailable")},
		&stubEvaluator{name: "conciseness", signal: Signal{Name: "conciseness", Subject: SubjectOutput, Score: 0.6}},
	}, time.Second, zaptest.NewLogger(t))

	signals := runner.Run(context.Background(), "q", "a")
	require.Len(t, signals, 1)

	_, ok := signals.Lookup("pii_detection")
	assert.False(t, ok)
}

func TestRunnerTimesOutSlowEvaluator(t *testing.T) {
	runner := NewRunner([]Evaluator{
		&stubEvaluator{name: "slow", signal: Signal{Name: "slow", Subject: SubjectOutput}, delay: 5 * time.Second},
		&stubEvaluator{name: "conciseness", signal: Signal{Name: "conciseness", Subject: SubjectOutput, Score: 0.7}},
	}, 50*time.Millisecond, zaptest.NewLogger(t))

	start := time.Now()
	signals := runner.Run(context.Background(), "q", "a")
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, signals, 1)
	_, ok := signals.Lookup("slow")
	assert.False(t, ok)
}

func TestRunnerAbandonsHungEvaluator(t *testing.T) {
	hung := &stubEvaluator{
		name:      "hung",
		signal:    Signal{Name: "hung", Subject: SubjectOutput},
		delay:     3 * time.Second,
		ignoreCtx: true,
	}
	runner := NewRunner([]Evaluator{
		hung,
		&stubEvaluator{name: "conciseness", signal: Signal{Name: "conciseness", Subject: SubjectOutput, Score: 0.9}},
	}, 50*time.Millisecond, zaptest.NewLogger(t))

	start := time.Now()
	signals := runner.Run(context.Background(), "q", "a")
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, signals, 1)
	_, ok := signals.Lookup("hung")
	assert.False(t, ok)
	sig, ok := signals.Lookup("conciseness")
	require.True(t, ok)
	assert.InDelta(t, 0.9, sig.Score, 1e-9)
}

func TestRunnerNoEvaluators(t *testing.T) {
	runner := NewRunner(nil, time.Second, zaptest.NewLogger(t))
	assert.Empty(t, runner.Run(context.Background(), "q", "a"))
}
