// Package matching scores how closely a search result resembles a playlist item title.
package matching

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/desertthunder/ytmirror/internal/models"
)

const (
	MinScore = 0
	MaxScore = 100
)

// Similarity returns the percentage similarity between title and label, normalized by the length of title.
//
// The result is clamped to [MinScore, MaxScore] and only reaches MaxScore when the strings are identical.
func Similarity(title, label string) int {
	if title == label {
		return MaxScore
	}

	n := utf8.RuneCountInString(title)
	if n == 0 {
		return MinScore
	}

	distance := levenshtein.ComputeDistance(title, label)
	score := int(math.Round(MaxScore * (1 - float64(distance)/float64(n))))

	switch {
	case score < MinScore:
		return MinScore
	case score >= MaxScore:
		return MaxScore - 1
	}
	return score
}

// Best returns the first candidate and its score against title.
//
// Search results arrive ranked by the service, so the top result is the one bound to a pending record.
func Best(title string, candidates []models.Candidate) (models.Candidate, int, bool) {
	if len(candidates) == 0 {
		return models.Candidate{}, 0, false
	}
	top := candidates[0]
	return top, Similarity(title, top.Label()), true
}

// Rank scores every candidate against title, preserving service order.
func Rank(title string, candidates []models.Candidate) []int {
	scores := make([]int, len(candidates))
	for i, c := range candidates {
		scores[i] = Similarity(title, c.Label())
	}
	return scores
}
