package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("leads_test"),
		postgres.WithUsername("leads"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := NewDBConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	require.NoError(t, Migrate(db, logger))
	return db
}

func newLead(conferenceID, id string, created time.Time) *entity.Lead {
	return &entity.Lead{
		ConferenceID:   conferenceID,
		LeadID:         id,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Company:        "Engines Ltd",
		Interests:      []string{"golf", "spa"},
		ConsentContact: true,
		Status:         entity.StatusNew,
		Tags:           []string{},
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestLeadRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLeadRepository(db)
	ctx := context.Background()
	created := entity.NormalizeTimestamp(time.Now())

	lead := newLead("expo", "01JAAAAAAAAAAAAAAAAAAAAAAA", created)
	require.NoError(t, repo.Create(ctx, lead))
	assert.ErrorIs(t, repo.Create(ctx, lead), entity.ErrConflict)

	got, err := repo.Get(ctx, "expo", lead.LeadID)
	require.NoError(t, err)
	assert.Equal(t, []string{"golf", "spa"}, got.Interests)
	assert.True(t, created.Equal(got.CreatedAt))

	patch := entity.AdminPatch{}.WithAdminNotes("called twice")
	updated, err := repo.UpdateAdmin(ctx, "expo", lead.LeadID, patch, created.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "called twice", updated.AdminNotes)
	assert.Equal(t, entity.StatusNew, updated.Status)

	require.NoError(t, repo.Delete(ctx, "expo", lead.LeadID))
	assert.ErrorIs(t, repo.Delete(ctx, "expo", lead.LeadID), entity.ErrNotFound)
	_, err = repo.Get(ctx, "expo", lead.LeadID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestLeadRepositoryPagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLeadRepository(db)
	ctx := context.Background()
	base := entity.NormalizeTimestamp(time.Now())

	for i := 0; i < 12; i++ {
		ts := base.Add(time.Duration(i/2) * time.Second)
		require.NoError(t, repo.Create(ctx, newLead("expo", fmt.Sprintf("01J%023d", i), ts)))
	}
	require.NoError(t, repo.Create(ctx, newLead("other", "01JOTHER", base)))

	seen := map[string]bool{}
	token := ""
	for {
		page, err := repo.QueryByConference(ctx, "expo", entity.PageRequest{Limit: 5, Cursor: token})
		require.NoError(t, err)
		for _, l := range page.Leads {
			assert.False(t, seen[l.LeadID])
			seen[l.LeadID] = true
		}
		if page.NextCursor == "" {
			break
		}
		token = page.NextCursor
	}
	assert.Len(t, seen, 12)

	total := 0
	token = ""
	for {
		page, err := repo.ScanAll(ctx, entity.PageRequest{Limit: 4, Cursor: token})
		require.NoError(t, err)
		total += len(page.Leads)
		if page.NextCursor == "" {
			break
		}
		token = page.NextCursor
	}
	assert.Equal(t, 13, total)
}

func TestConferenceRepositoryUpsertKeepsCreatedAt(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConferenceRepository(db)
	ctx := context.Background()
	first := entity.NormalizeTimestamp(time.Now())

	_, err := repo.Upsert(ctx, &entity.Conference{
		ConferenceID: "expo", Name: "Expo", Enabled: true,
		CustomFields: map[string]any{"theme": "dark"},
		CreatedAt:    first, UpdatedAt: first,
	})
	require.NoError(t, err)

	later := first.Add(time.Hour)
	out, err := repo.Upsert(ctx, &entity.Conference{
		ConferenceID: "expo", Name: "Expo 2", Enabled: false,
		CreatedAt: later, UpdatedAt: later,
	})
	require.NoError(t, err)
	assert.Equal(t, "Expo 2", out.Name)
	assert.True(t, first.Equal(out.CreatedAt))
	assert.True(t, later.Equal(out.UpdatedAt))

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
