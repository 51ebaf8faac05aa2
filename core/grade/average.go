package grade

import (
	"math"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"
)

// present reports whether a score counts toward an average. 0 means "not entered".
func present(score null.Int) bool {
	return score.Valid && score.Int != 0
}

// parseScore reads a decrypted score; anything empty, non numeric or 0 is absent.
func parseScore(s string) null.Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Int{}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n == 0 {
		return null.Int{}
	}
	return null.IntFrom(n)
}

func formatScore(score null.Int) string {
	if !present(score) {
		return ""
	}
	return strconv.Itoa(score.Int)
}

// roundHalfUp rounds to the nearest integer, .5 going up.
func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}

// mean returns the rounded mean of the present values.
func mean(values ...null.Int) (int, bool) {
	var sum, n int
	for _, v := range values {
		if present(v) {
			sum += v.Int
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return roundHalfUp(float64(sum) / float64(n)), true
}

// Remarks returns "Passed" for ratings of at least 75, "Failed" otherwise.
func Remarks(rating int) string {
	if rating >= passingRating {
		return Passed
	}
	return Failed
}

// FinalRating computes the final rating and remarks of one subject from its quarter scores.
// Both are "" when no quarter has a score.
func FinalRating(quarters ...string) (final, remarks string) {
	scores := make([]null.Int, 0, len(quarters))
	for _, q := range quarters {
		scores = append(scores, parseScore(q))
	}
	avg, ok := mean(scores...)
	if !ok {
		return "", ""
	}
	return strconv.Itoa(avg), Remarks(avg)
}

// ComputeAverage is the general average of one quarter: the rounded mean of the
// present subject scores. It is invalid when no subject has a score.
func ComputeAverage(scores Scores) null.Int {
	values := make([]null.Int, 0, len(Subjects))
	for _, sub := range Subjects {
		values = append(values, scores.Get(sub.Column))
	}
	avg, ok := mean(values...)
	if !ok {
		return null.Int{}
	}
	return null.IntFrom(avg)
}
