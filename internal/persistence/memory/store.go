// Package memory provides an in-memory Store for local development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/ithrive360/insights-service/internal/domain"
)

type selectionKey struct {
	category string
	text     string
}

// Store keeps reference data, insight records and selections in memory.
// Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	areas      []domain.HealthArea
	refs       domain.ReferenceTables
	records    map[string][]domain.InsightRecord // keyed by user id
	selections map[string][]domain.RecommendationSelection
	positions  map[string]map[selectionKey]int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		records:    make(map[string][]domain.InsightRecord),
		selections: make(map[string][]domain.RecommendationSelection),
		positions:  make(map[string]map[selectionKey]int),
	}
}

// SeedHealthAreas replaces the health area list.
func (s *Store) SeedHealthAreas(areas []domain.HealthArea) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas = append([]domain.HealthArea(nil), areas...)
}

// SeedReferenceTables replaces the weight and name tables.
func (s *Store) SeedReferenceTables(refs domain.ReferenceTables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs = refs
}

// PutInsightRecord stores a record, replacing any existing record for the
// same (user, health area) pair.
func (s *Store) PutInsightRecord(record domain.InsightRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.records[record.UserID]
	for i, candidate := range existing {
		if candidate.HealthAreaID == record.HealthAreaID {
			existing[i] = record
			return
		}
	}
	s.records[record.UserID] = append(existing, record)
}

// SeedSelections replaces a user's stored selection rows.
func (s *Store) SeedSelections(userID string, rows []domain.RecommendationSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selections[userID] = append([]domain.RecommendationSelection(nil), rows...)
	positions := make(map[selectionKey]int, len(rows))
	for i, row := range rows {
		positions[selectionKey{row.Category, row.Text}] = i
	}
	s.positions[userID] = positions
}

// HealthAreas implements domain.Store.
func (s *Store) HealthAreas(ctx context.Context) ([]domain.HealthArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.HealthArea(nil), s.areas...), nil
}

// BloodMarkerWeights implements domain.Store.
func (s *Store) BloodMarkerWeights(ctx context.Context) ([]domain.MarkerWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MarkerWeight(nil), s.refs.BloodWeights...), nil
}

// BloodMarkerNames implements domain.Store.
func (s *Store) BloodMarkerNames(ctx context.Context) ([]domain.MarkerName, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MarkerName(nil), s.refs.BloodNames...), nil
}

// DNATraitWeights implements domain.Store.
func (s *Store) DNATraitWeights(ctx context.Context) ([]domain.MarkerWeight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MarkerWeight(nil), s.refs.DNAWeights...), nil
}

// DNATraitNames implements domain.Store.
func (s *Store) DNATraitNames(ctx context.Context) ([]domain.MarkerName, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.MarkerName(nil), s.refs.DNANames...), nil
}

// InsightRecords implements domain.Store. A nil healthAreaIDs slice means
// no area filter.
func (s *Store) InsightRecords(ctx context.Context, userID string, healthAreaIDs []string) ([]domain.InsightRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allowed map[string]struct{}
	if healthAreaIDs != nil {
		allowed = make(map[string]struct{}, len(healthAreaIDs))
		for _, id := range healthAreaIDs {
			allowed[id] = struct{}{}
		}
	}

	out := make([]domain.InsightRecord, 0, len(s.records[userID]))
	for _, record := range s.records[userID] {
		if allowed != nil {
			if _, ok := allowed[record.HealthAreaID]; !ok {
				continue
			}
		}
		out = append(out, record)
	}
	return out, nil
}

// RecommendationSelections implements domain.Store.
func (s *Store) RecommendationSelections(ctx context.Context, userID string) ([]domain.RecommendationSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RecommendationSelection(nil), s.selections[userID]...), nil
}

// SetRecommendationSelection implements domain.Store. Writing the same
// value twice leaves the stored rows unchanged.
func (s *Store) SetRecommendationSelection(ctx context.Context, userID, category, text string, selected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := selectionKey{category, text}
	if s.positions[userID] == nil {
		s.positions[userID] = make(map[selectionKey]int)
	}
	if idx, ok := s.positions[userID][key]; ok {
		s.selections[userID][idx].Selected = selected
		return nil
	}

	s.positions[userID][key] = len(s.selections[userID])
	s.selections[userID] = append(s.selections[userID], domain.RecommendationSelection{
		Category: category,
		Text:     text,
		Priority: domain.PriorityMedium,
		Selected: selected,
	})
	return nil
}
