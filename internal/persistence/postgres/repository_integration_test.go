//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ithrive360/insights-service/internal/domain"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	seedReferenceData(t, ctx, pool)

	_, err := pool.Exec(ctx, `INSERT INTO insight_records (record_id, user_id, health_area_id, summary, blood_markers, dna_traits, recommendations)
        VALUES (gen_random_uuid(), 'user-1', 'cardio', 'Lipids trending well',
            '[{"name":"LDL Cholesterol","category":"strength","status":"optimal"}]',
            '[{"name":"APOE","category":"warning","rsid":"rs429358"}]',
            '{"Diet":[{"text":"More oily fish","priority":"high"}]}')`)
	require.NoError(t, err)

	areas, err := repo.HealthAreas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 2)
	require.Equal(t, "cardio", areas[0].ID)

	weights, err := repo.BloodMarkerWeights(ctx)
	require.NoError(t, err)
	require.Len(t, weights, 1)
	require.Equal(t, 2.0, weights[0].Weight)

	records, err := repo.InsightRecords(ctx, "user-1", []string{"cardio", "gut"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Lipids trending well", records[0].Summary)
	require.Len(t, records[0].BloodMarkers, 1)
	require.Equal(t, domain.FindingStrength, records[0].BloodMarkers[0].Category)
	require.Len(t, records[0].DNATraits, 1)
	require.Equal(t, "rs429358", records[0].DNATraits[0].RSID)
	require.Len(t, records[0].Recommendations["Diet"], 1)

	// Area filter excludes the record.
	none, err := repo.InsightRecords(ctx, "user-1", []string{"gut"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSetRecommendationSelectionIdempotence(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	require.NoError(t, repo.SetRecommendationSelection(ctx, "user-1", "Diet", "More oily fish", true))
	require.NoError(t, repo.SetRecommendationSelection(ctx, "user-1", "Diet", "More oily fish", true))

	rows, err := repo.RecommendationSelections(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Selected)

	// The repeat write with the same value must not have emitted a second
	// outbox event.
	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&outboxCount))
	require.Equal(t, 1, outboxCount)

	// Flipping the value is a real change and emits again.
	require.NoError(t, repo.SetRecommendationSelection(ctx, "user-1", "Diet", "More oily fish", false))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&outboxCount))
	require.Equal(t, 2, outboxCount)
}

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("insights"),
		postgrescontainer.WithUsername("ithrive"),
		postgrescontainer.WithPassword("ithrive"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func seedReferenceData(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	_, err := pool.Exec(ctx, `INSERT INTO health_areas (health_area_id, name, display_order)
        VALUES ('cardio', 'Heart Health', 1), ('gut', 'Gut Health', 2)`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO blood_marker_names (marker_id, name) VALUES ('bm-ldl', 'LDL Cholesterol')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO blood_marker_weights (marker_id, health_area_id, weight) VALUES ('bm-ldl', 'cardio', 2)`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `INSERT INTO dna_trait_names (trait_id, name) VALUES ('dt-apoe', 'APOE')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO dna_trait_weights (trait_id, health_area_id, weight) VALUES ('dt-apoe', 'cardio', 1.5)`)
	require.NoError(t, err)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)

	for _, file := range files {
		path := filepath.Join(filepath.Dir(thisFile), file)
		contents, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(contents))
		require.NoError(t, err)
	}
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}
