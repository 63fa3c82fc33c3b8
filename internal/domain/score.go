package domain

import "math"

// Category multipliers applied to a finding's weight. Anything outside the
// known categories contributes zero, same as a risk.
const (
	multiplierStrength = 1.0
	multiplierWarning  = 0.5
)

// defaultWeight is used when a finding's name has no weight row for the
// record's health area.
const defaultWeight = 1.0

// ReferenceTables bundles the full weight and name lookup tables. They are
// not pre-filtered by health area; ComputeScore filters internally.
type ReferenceTables struct {
	BloodWeights []MarkerWeight
	BloodNames   []MarkerName
	DNAWeights   []MarkerWeight
	DNANames     []MarkerName
}

// ComputeScore derives the 0-100 health area score for one insight record.
// Blood and DNA findings are pooled into a single weighted average: each
// finding contributes weight*multiplier to the numerator and weight to the
// denominator. Returns nil when the record has no findings at all, which
// callers must keep distinct from a zero score.
//
// Pure function: no I/O, deterministic, never errors. Malformed findings
// score as risk.
func ComputeScore(record InsightRecord, refs ReferenceTables) *int {
	bloodNames := nameIndex(refs.BloodNames)
	dnaNames := nameIndex(refs.DNANames)

	var totalWeighted, totalWeight float64

	for _, finding := range record.BloodMarkers {
		weight := weightFor(record.HealthAreaID, finding.Name, refs.BloodWeights, bloodNames)
		totalWeighted += weight * categoryMultiplier(finding.Category)
		totalWeight += weight
	}
	for _, finding := range record.DNATraits {
		weight := weightFor(record.HealthAreaID, finding.Name, refs.DNAWeights, dnaNames)
		totalWeighted += weight * categoryMultiplier(finding.Category)
		totalWeight += weight
	}

	if totalWeight == 0 {
		return nil
	}

	// Multipliers and weights are non-negative, so the result is already
	// inside [0,100]. Half rounds up.
	score := int(math.Round(100 * totalWeighted / totalWeight))
	return &score
}

func nameIndex(names []MarkerName) map[string]string {
	index := make(map[string]string, len(names))
	for _, n := range names {
		index[n.MarkerID] = n.Name
	}
	return index
}

// weightFor resolves a finding's display name back to a weight row for the
// record's health area. When several markers share a display name the first
// matching row in table order wins. Unmatched names fall back to the
// default weight.
func weightFor(healthAreaID, findingName string, weights []MarkerWeight, names map[string]string) float64 {
	for _, row := range weights {
		if row.HealthAreaID != healthAreaID {
			continue
		}
		if names[row.MarkerID] == findingName {
			return row.Weight
		}
	}
	return defaultWeight
}

func categoryMultiplier(category FindingCategory) float64 {
	switch category {
	case FindingStrength:
		return multiplierStrength
	case FindingWarning:
		return multiplierWarning
	default:
		return 0
	}
}
