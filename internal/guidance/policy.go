// Package guidance decides what help a child gets after a wrong answer.
// It is a pure function of the attempt number and the hints an exercise
// carries, so it can be exercised without any persistence.
package guidance

type Kind int

const (
	KindNone Kind = iota
	KindHint
	KindReveal
)

// MaxAttempts is the attempt number at which the answer is revealed instead
// of a further hint.
const MaxAttempts = 3

// Guidance is the escalation decision for one incorrect attempt.
// HintIndex is zero-based into the exercise's hint list and only meaningful
// when Kind is KindHint.
type Guidance struct {
	Kind      Kind
	HintIndex int
}

// Next returns the guidance for an incorrect answer on the given attempt
// number. Attempt 1 shows the first hint when one exists, attempt 2 the
// second, and from MaxAttempts on the answer and explanation are revealed.
func Next(attemptNumber, hintCount int) Guidance {
	if attemptNumber >= MaxAttempts {
		return Guidance{Kind: KindReveal}
	}

	switch attemptNumber {
	case 1:
		if hintCount >= 1 {
			return Guidance{Kind: KindHint, HintIndex: 0}
		}
	case 2:
		if hintCount >= 2 {
			return Guidance{Kind: KindHint, HintIndex: 1}
		}
	}
	return Guidance{Kind: KindNone}
}
