package domain

import "time"

// FindingCategory classifies a finding for scoring purposes.
type FindingCategory string

const (
	FindingStrength FindingCategory = "strength"
	FindingWarning  FindingCategory = "warning"
	FindingRisk     FindingCategory = "risk"
)

// Priority orders recommendations within a category.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation categories produced by the insight generator.
const (
	CategoryDiet            = "Diet"
	CategorySupplementation = "Supplementation"
	CategoryExercise        = "Exercise"
	CategoryLifestyle       = "Lifestyle"
	CategoryMonitoring      = "Monitoring"
)

// HealthArea is a named wellness category findings are organised under.
// Reference data; set once, never mutated by this service.
type HealthArea struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MarkerWeight ties a blood marker or DNA trait to a health area with an
// importance weight. One marker can carry different weights in different
// areas.
type MarkerWeight struct {
	MarkerID     string  `json:"marker_id"`
	HealthAreaID string  `json:"health_area_id"`
	Weight       float64 `json:"weight"`
}

// MarkerName maps an internal marker or trait id to its display name.
// Findings are stored by name, so scoring joins through this table.
type MarkerName struct {
	MarkerID string `json:"marker_id"`
	Name     string `json:"name"`
}

// Finding is a single classified observation inside an insight record,
// either a blood marker result or a DNA trait.
type Finding struct {
	Name     string          `json:"name"`
	Category FindingCategory `json:"category"`
	Status   string          `json:"status,omitempty"`
	Insight  string          `json:"insight,omitempty"`
	Effect   string          `json:"effect,omitempty"`
	RSID     string          `json:"rsid,omitempty"`
}

// Recommendation is one actionable item attached to an insight record.
type Recommendation struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
}

// InsightRecord is the per-user, per-health-area container of findings,
// summary and recommendations. Produced by the insight generator; read-only
// here.
type InsightRecord struct {
	UserID          string                      `json:"user_id"`
	HealthAreaID    string                      `json:"health_area_id"`
	Summary         string                      `json:"summary"`
	BloodMarkers    []Finding                   `json:"blood_markers"`
	DNATraits       []Finding                   `json:"dna_traits"`
	Recommendations map[string][]Recommendation `json:"recommendations"`
	GeneratedAt     time.Time                   `json:"generated_at"`
}

// RecommendationSelection is a user's stored toggle state for one
// recommendation text in one category.
type RecommendationSelection struct {
	Category string   `json:"category"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Selected bool     `json:"selected"`
}

// AreaInsight is the presentation-ready view of one health area.
type AreaInsight struct {
	HealthAreaID    string                      `json:"health_area_id"`
	HealthAreaName  string                      `json:"health_area_name"`
	Summary         string                      `json:"summary"`
	BloodMarkers    []Finding                   `json:"blood_markers"`
	DNATraits       []Finding                   `json:"dna_traits"`
	Recommendations map[string][]Recommendation `json:"recommendations"`
	Score           *int                        `json:"score"`
}

// AreaInsights is the result of a full per-area load. Areas with no insight
// record are absent from Insights, which is distinct from present with a
// nil score.
type AreaInsights struct {
	HealthAreas []HealthArea           `json:"health_areas"`
	Insights    map[string]AreaInsight `json:"insights"`
}

// RankedRecommendation is one de-duplicated, priority-ordered entry in the
// dashboard recommendation list.
type RankedRecommendation struct {
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Selected bool     `json:"selected"`
}

// OverallScores holds the three composite scores. A nil entry means no
// member area of that group had a usable score.
type OverallScores struct {
	General     *int `json:"general"`
	Performance *int `json:"performance"`
	Longevity   *int `json:"longevity"`
}

// Dashboard is the aggregated view backing the home screen.
type Dashboard struct {
	Overall         OverallScores                     `json:"overall"`
	Recommendations map[string][]RankedRecommendation `json:"recommendations"`
	Selections      map[string]bool                   `json:"selections"`
}

// ScoreGroup names one of the three composite score groups.
type ScoreGroup string

const (
	GroupGeneral     ScoreGroup = "general"
	GroupPerformance ScoreGroup = "performance"
	GroupLongevity   ScoreGroup = "longevity"
)

// DefaultScoreGroups assigns each production health area to exactly one
// composite group. The assignment is configuration, not derived data;
// deployments can inject their own table.
var DefaultScoreGroups = map[string]ScoreGroup{
	"cardio":     GroupGeneral,
	"gut":        GroupGeneral,
	"immune":     GroupGeneral,
	"brain":      GroupGeneral,
	"hormonal":   GroupGeneral,
	"fitness":    GroupPerformance,
	"energy":     GroupPerformance,
	"recovery":   GroupPerformance,
	"sleep":      GroupPerformance,
	"longevity":  GroupLongevity,
	"cellular":   GroupLongevity,
	"bone_joint": GroupLongevity,
}
