// Package domain implements health-area insight scoring and the aggregated
// views built from it.
package domain

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ithrive360/insights-service/internal/observability"
)

// Store captures the read model operations backing insight loads, plus the
// single write path for recommendation toggles. Implementations must be
// safe for concurrent use.
type Store interface {
	HealthAreas(ctx context.Context) ([]HealthArea, error)
	BloodMarkerWeights(ctx context.Context) ([]MarkerWeight, error)
	BloodMarkerNames(ctx context.Context) ([]MarkerName, error)
	DNATraitWeights(ctx context.Context) ([]MarkerWeight, error)
	DNATraitNames(ctx context.Context) ([]MarkerName, error)
	InsightRecords(ctx context.Context, userID string, healthAreaIDs []string) ([]InsightRecord, error)
	RecommendationSelections(ctx context.Context, userID string) ([]RecommendationSelection, error)
	SetRecommendationSelection(ctx context.Context, userID, category, text string, selected bool) error
}

// Service orchestrates insight loads and selection writes.
type Service struct {
	store  Store
	groups map[string]ScoreGroup
	logger *zap.Logger
}

// NewService constructs a Service. groups assigns health area ids to
// composite score groups; pass DefaultScoreGroups for production.
func NewService(store Store, groups map[string]ScoreGroup, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, groups: groups, logger: logger}
}

// LoadAreaInsights fetches and scores every insight record the user has.
// Reference tables and the health area list are fetched concurrently;
// scoring waits for all of them. Any fetch error fails the whole load, no
// partial result is returned.
func (s *Service) LoadAreaInsights(ctx context.Context, userID string) (*AreaInsights, error) {
	start := time.Now()

	var (
		areas []HealthArea
		refs  ReferenceTables
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		areas, err = s.store.HealthAreas(gctx)
		return err
	})
	s.fetchReferenceTables(g, gctx, &refs)
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load area insights: %w", err)
	}

	areaIDs := make([]string, 0, len(areas))
	areaNames := make(map[string]string, len(areas))
	for _, area := range areas {
		areaIDs = append(areaIDs, area.ID)
		areaNames[area.ID] = area.Name
	}

	records, err := s.store.InsightRecords(ctx, userID, areaIDs)
	if err != nil {
		return nil, fmt.Errorf("load area insights: %w", err)
	}

	insights := make(map[string]AreaInsight, len(records))
	for _, record := range records {
		name, ok := areaNames[record.HealthAreaID]
		if !ok {
			// Record for an area missing from reference data; show the raw
			// id rather than dropping the insight.
			name = record.HealthAreaID
		}
		insights[record.HealthAreaID] = AreaInsight{
			HealthAreaID:    record.HealthAreaID,
			HealthAreaName:  name,
			Summary:         record.Summary,
			BloodMarkers:    record.BloodMarkers,
			DNATraits:       record.DNATraits,
			Recommendations: record.Recommendations,
			Score:           ComputeScore(record, refs),
		}
	}
	observability.RecordScoresComputed(len(records))
	observability.ObserveLoadDuration("area_insights", time.Since(start))

	s.logger.Debug("area insights loaded",
		zap.String("user_id", userID),
		zap.Int("areas", len(areas)),
		zap.Int("records", len(records)),
	)

	return &AreaInsights{HealthAreas: areas, Insights: insights}, nil
}

// LoadDashboard scores every record the user has, rolls the scores into the
// three composite groups and assembles the ranked recommendation lists.
func (s *Service) LoadDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	start := time.Now()

	var (
		refs       ReferenceTables
		records    []InsightRecord
		selections []RecommendationSelection
	)

	g, gctx := errgroup.WithContext(ctx)
	s.fetchReferenceTables(g, gctx, &refs)
	g.Go(func() (err error) {
		records, err = s.store.InsightRecords(gctx, userID, nil)
		return err
	})
	g.Go(func() (err error) {
		selections, err = s.store.RecommendationSelections(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}

	scores := make(map[string]*int, len(records))
	for _, record := range records {
		scores[record.HealthAreaID] = ComputeScore(record, refs)
	}
	observability.RecordScoresComputed(len(records))

	ranked, selected := rankRecommendations(selections)

	observability.ObserveLoadDuration("dashboard", time.Since(start))
	s.logger.Debug("dashboard loaded",
		zap.String("user_id", userID),
		zap.Int("records", len(records)),
		zap.Int("selection_rows", len(selections)),
	)

	return &Dashboard{
		Overall:         groupAverages(scores, s.groups),
		Recommendations: ranked,
		Selections:      selected,
	}, nil
}

// ToggleRecommendation persists the selected flag for one (category, text)
// pair. The store upsert makes repeat writes with the same value no-ops, so
// the call is idempotent. Write failures are returned, never swallowed.
func (s *Service) ToggleRecommendation(ctx context.Context, userID, category, text string, selected bool) error {
	if err := s.store.SetRecommendationSelection(ctx, userID, category, text, selected); err != nil {
		return fmt.Errorf("toggle recommendation: %w", err)
	}
	observability.RecordSelectionToggled(time.Now().UTC())
	return nil
}

// fetchReferenceTables queues the four reference table fetches on the
// group. The tables are small and fetched unconditionally on every load,
// keeping the load path free of conditional branches.
func (s *Service) fetchReferenceTables(g *errgroup.Group, ctx context.Context, refs *ReferenceTables) {
	g.Go(func() (err error) {
		refs.BloodWeights, err = s.store.BloodMarkerWeights(ctx)
		return err
	})
	g.Go(func() (err error) {
		refs.BloodNames, err = s.store.BloodMarkerNames(ctx)
		return err
	})
	g.Go(func() (err error) {
		refs.DNAWeights, err = s.store.DNATraitWeights(ctx)
		return err
	})
	g.Go(func() (err error) {
		refs.DNANames, err = s.store.DNATraitNames(ctx)
		return err
	})
}
