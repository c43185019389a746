package grading

// Missing lists, in quiz order, the questions without a usable answer.
// An empty answer string counts as unanswered. Submissions with any missing
// question are rejected before Score runs.
func Missing(questions []Q, answers map[int64]string) []Q {
	var out []Q
	for _, q := range questions {
		if s, ok := answers[q.ID]; !ok || s == "" {
			out = append(out, q)
		}
	}
	return out
}
