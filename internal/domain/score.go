package domain

// Score levels for a week's completion rate.
const (
	ScoreRed    = "red"
	ScoreYellow = "yellow"
	ScoreGreen  = "green"
	ScoreFire   = "fire"
)

// CompletionPercentage returns the rounded percentage of completed tasks.
func CompletionPercentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return (completed*100 + total/2) / total
}

func ScoreLevel(percentage int) string {
	switch {
	case percentage >= 90:
		return ScoreFire
	case percentage >= 75:
		return ScoreGreen
	case percentage >= 50:
		return ScoreYellow
	default:
		return ScoreRed
	}
}

// StalenessDescription labels how long a task has been carried forward.
func StalenessDescription(count int) string {
	switch count {
	case 0:
		return "New"
	case 1:
		return "Carried over once"
	case 2:
		return "Carried over twice"
	case 3:
		return "Getting stale"
	case 4:
		return "Very stale"
	default:
		return "Extremely stale"
	}
}
