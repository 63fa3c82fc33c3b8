package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ithrive360/insights-service/internal/domain"
	"github.com/ithrive360/insights-service/internal/events"
)

// Repository provides Postgres-backed persistence for reference data,
// insight records, selections and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// HealthAreas returns the full health area list in display order.
func (r *Repository) HealthAreas(ctx context.Context) ([]domain.HealthArea, error) {
	const query = `SELECT health_area_id, name FROM health_areas ORDER BY display_order, health_area_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := make([]domain.HealthArea, 0)
	for rows.Next() {
		var area domain.HealthArea
		if err := rows.Scan(&area.ID, &area.Name); err != nil {
			return nil, err
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

// BloodMarkerWeights returns the full blood weight table.
func (r *Repository) BloodMarkerWeights(ctx context.Context) ([]domain.MarkerWeight, error) {
	const query = `SELECT marker_id, health_area_id, weight FROM blood_marker_weights ORDER BY marker_id, health_area_id`
	return r.queryWeights(ctx, query)
}

// BloodMarkerNames returns the blood marker name table.
func (r *Repository) BloodMarkerNames(ctx context.Context) ([]domain.MarkerName, error) {
	const query = `SELECT marker_id, name FROM blood_marker_names ORDER BY marker_id`
	return r.queryNames(ctx, query)
}

// DNATraitWeights returns the full DNA weight table.
func (r *Repository) DNATraitWeights(ctx context.Context) ([]domain.MarkerWeight, error) {
	const query = `SELECT trait_id, health_area_id, weight FROM dna_trait_weights ORDER BY trait_id, health_area_id`
	return r.queryWeights(ctx, query)
}

// DNATraitNames returns the DNA trait name table.
func (r *Repository) DNATraitNames(ctx context.Context) ([]domain.MarkerName, error) {
	const query = `SELECT trait_id, name FROM dna_trait_names ORDER BY trait_id`
	return r.queryNames(ctx, query)
}

func (r *Repository) queryWeights(ctx context.Context, query string) ([]domain.MarkerWeight, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weights := make([]domain.MarkerWeight, 0)
	for rows.Next() {
		var weight domain.MarkerWeight
		if err := rows.Scan(&weight.MarkerID, &weight.HealthAreaID, &weight.Weight); err != nil {
			return nil, err
		}
		weights = append(weights, weight)
	}
	return weights, rows.Err()
}

func (r *Repository) queryNames(ctx context.Context, query string) ([]domain.MarkerName, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]domain.MarkerName, 0)
	for rows.Next() {
		var name domain.MarkerName
		if err := rows.Scan(&name.MarkerID, &name.Name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// InsightRecords returns the user's records, optionally restricted to the
// given health area ids. A nil slice means no filter.
func (r *Repository) InsightRecords(ctx context.Context, userID string, healthAreaIDs []string) ([]domain.InsightRecord, error) {
	query := `SELECT user_id, health_area_id, summary, blood_markers, dna_traits, recommendations, generated_at
        FROM insight_records WHERE user_id=$1`
	args := []interface{}{userID}

	if healthAreaIDs != nil {
		query += ` AND health_area_id = ANY($2)`
		args = append(args, healthAreaIDs)
	}
	query += ` ORDER BY health_area_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.InsightRecord, 0)
	for rows.Next() {
		var (
			record          domain.InsightRecord
			bloodRaw        []byte
			dnaRaw          []byte
			recommendations []byte
		)
		if err := rows.Scan(&record.UserID, &record.HealthAreaID, &record.Summary, &bloodRaw, &dnaRaw, &recommendations, &record.GeneratedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(bloodRaw, &record.BloodMarkers); err != nil {
			return nil, fmt.Errorf("decode blood markers for %s/%s: %w", record.UserID, record.HealthAreaID, err)
		}
		if err := json.Unmarshal(dnaRaw, &record.DNATraits); err != nil {
			return nil, fmt.Errorf("decode dna traits for %s/%s: %w", record.UserID, record.HealthAreaID, err)
		}
		if err := json.Unmarshal(recommendations, &record.Recommendations); err != nil {
			return nil, fmt.Errorf("decode recommendations for %s/%s: %w", record.UserID, record.HealthAreaID, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// RecommendationSelections returns the user's stored toggle rows in
// insertion order.
func (r *Repository) RecommendationSelections(ctx context.Context, userID string) ([]domain.RecommendationSelection, error) {
	const query = `SELECT category, recommendation_text, priority, is_selected
        FROM recommendation_selections WHERE user_id=$1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	selections := make([]domain.RecommendationSelection, 0)
	for rows.Next() {
		var row domain.RecommendationSelection
		if err := rows.Scan(&row.Category, &row.Text, &row.Priority, &row.Selected); err != nil {
			return nil, err
		}
		selections = append(selections, row)
	}
	return selections, rows.Err()
}

// SetRecommendationSelection upserts one toggle and records a selection
// change event in the same transaction. The conditional update makes a
// repeat write with the same value a no-op: no row changes and no event is
// emitted.
func (r *Repository) SetRecommendationSelection(ctx context.Context, userID, category, text string, selected bool) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const upsert = `INSERT INTO recommendation_selections (user_id, category, recommendation_text, is_selected, updated_at)
        VALUES ($1,$2,$3,$4,NOW())
        ON CONFLICT (user_id, category, recommendation_text)
        DO UPDATE SET is_selected = EXCLUDED.is_selected, updated_at = NOW()
        WHERE recommendation_selections.is_selected IS DISTINCT FROM EXCLUDED.is_selected`

	tag, err := tx.Exec(ctx, upsert, userID, category, text, selected)
	if err != nil {
		return err
	}

	if tag.RowsAffected() > 0 {
		if err = r.insertOutbox(ctx, tx, events.SelectionChanged{
			UserID:     userID,
			Category:   category,
			Text:       text,
			Selected:   selected,
			OccurredAt: time.Now().UTC(),
		}); err != nil {
			return err
		}
	}

	err = tx.Commit(ctx)
	return err
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, event events.SelectionChanged) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	const eventType = "insight.selection_changed"
	meta := eventCatalog[eventType]
	aggregateID := uuid.NewString()
	dedupeKey := fmt.Sprintf("%s:%s", aggregateID, eventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err = tx.Exec(ctx, stmt,
		"recommendation_selection",
		aggregateID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		event.UserID,
		body,
		dedupeKey,
	)
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	"insight.selection_changed": {
		Topic:         "insight_selection_events",
		SchemaSubject: "insight_selection_events-value",
	},
}
