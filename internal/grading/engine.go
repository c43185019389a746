package grading

// Q is a minimal view of a question needed for scoring.
// Keep this in sync with whatever fields the quiz store uses.
type Q struct {
	ID      int64
	Text    string
	Options []string
	Correct []int // indices into Options
}

// Unmatched is the resolved index of an answer whose text matches no option.
const Unmatched = -1

// Result is the outcome of scoring one submission against a quiz's answer key.
type Result struct {
	Correct int  // questions answered correctly
	Total   int  // questions in the quiz
	Passed  bool // Correct/Total*100 >= passing criteria

	// Selections holds the resolved option index for every answered question,
	// Unmatched when the text is not one of the options.
	Selections map[int64]int
}

// Percent reports the share of correct answers. Display only; Passed is
// decided without rounding.
func (r Result) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total) * 100
}

// Score grades answers (question id -> selected option text) against questions.
// It is a pure function: identical inputs always produce identical results.
// A question with no entry in answers contributes nothing; it is not an error here.
// A quiz with no questions cannot be passed.
func Score(questions []Q, passingCriteria int, answers map[int64]string) Result {
	res := Result{
		Total:      len(questions),
		Selections: make(map[int64]int, len(answers)),
	}
	for _, q := range questions {
		text, ok := answers[q.ID]
		if !ok {
			continue
		}
		idx := Resolve(q.Options, text)
		res.Selections[q.ID] = idx
		if idx != Unmatched && containsIndex(q.Correct, idx) {
			res.Correct++
		}
	}
	res.Passed = Passes(res.Correct, res.Total, passingCriteria)
	return res
}

// Passes compares correct/total*100 against the threshold exactly, using
// integer cross-multiplication instead of a rounded percentage.
func Passes(correct, total, passingCriteria int) bool {
	if total <= 0 {
		return false
	}
	return correct*100 >= passingCriteria*total
}

// Resolve returns the first index in options equal to text, or Unmatched.
func Resolve(options []string, text string) int {
	for i, o := range options {
		if o == text {
			return i
		}
	}
	return Unmatched
}

func containsIndex(set []int, idx int) bool {
	for _, c := range set {
		if c == idx {
			return true
		}
	}
	return false
}
