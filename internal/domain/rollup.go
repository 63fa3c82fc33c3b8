package domain

import (
	"math"
	"sort"
)

// groupAverages rolls per-area scores into the three composite scores.
// Areas with no record or a nil score are excluded from their group's
// average rather than counted as zero; a group with no usable member stays
// nil. Averages round half up.
func groupAverages(scores map[string]*int, groups map[string]ScoreGroup) OverallScores {
	sums := make(map[ScoreGroup]int)
	counts := make(map[ScoreGroup]int)

	for areaID, score := range scores {
		if score == nil {
			continue
		}
		group, ok := groups[areaID]
		if !ok {
			continue
		}
		sums[group] += *score
		counts[group]++
	}

	average := func(group ScoreGroup) *int {
		if counts[group] == 0 {
			return nil
		}
		avg := int(math.Round(float64(sums[group]) / float64(counts[group])))
		return &avg
	}

	return OverallScores{
		General:     average(GroupGeneral),
		Performance: average(GroupPerformance),
		Longevity:   average(GroupLongevity),
	}
}

// rankRecommendations groups stored selection rows by category,
// de-duplicates by exact text and orders by priority.
//
// Duplicate text within a category keeps the position of its first
// occurrence but the priority and selected flag of the last one. The sort
// is stable, so equal priorities preserve that order. The selection lookup
// is keyed by text alone: identical text in two categories shares one
// toggle state, matching how the rest of the product treats selections.
func rankRecommendations(rows []RecommendationSelection) (map[string][]RankedRecommendation, map[string]bool) {
	byCategory := make(map[string][]RankedRecommendation)
	position := make(map[string]map[string]int)
	selections := make(map[string]bool)

	for _, row := range rows {
		entry := RankedRecommendation{
			Text:     row.Text,
			Priority: normalizePriority(row.Priority),
			Selected: row.Selected,
		}

		if position[row.Category] == nil {
			position[row.Category] = make(map[string]int)
		}
		if idx, seen := position[row.Category][row.Text]; seen {
			byCategory[row.Category][idx] = entry
		} else {
			position[row.Category][row.Text] = len(byCategory[row.Category])
			byCategory[row.Category] = append(byCategory[row.Category], entry)
		}

		selections[row.Text] = row.Selected
	}

	for category := range byCategory {
		items := byCategory[category]
		sort.SliceStable(items, func(i, j int) bool {
			return priorityRank(items[i].Priority) < priorityRank(items[j].Priority)
		})
	}

	return byCategory, selections
}

func normalizePriority(p Priority) Priority {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return p
	default:
		return PriorityMedium
	}
}

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}
