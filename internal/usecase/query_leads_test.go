package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/memory"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func seedLeads(t *testing.T, repo entity.LeadRepositoryInterface, conferenceID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ts := fixedNow.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(context.Background(), &entity.Lead{
			ConferenceID: conferenceID,
			LeadID:       fmt.Sprintf("%s-%03d", conferenceID, i),
			Email:        "lead@example.com",
			Status:       entity.StatusNew,
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}))
	}
}

func TestListLeadsPaginates(t *testing.T) {
	repo := memory.NewLeadRepo()
	seedLeads(t, repo, "expo", 7)
	seedLeads(t, repo, "other", 2)
	uc := usecase.NewManageLeadsUseCase(repo, discardLogger())

	first, err := uc.List(context.Background(), usecase.ListLeadsInput{ConferenceID: "expo", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, first.Count)
	require.NotNil(t, first.NextKey)
	assert.Equal(t, "expo-006", first.Leads[0].LeadID)

	second, err := uc.List(context.Background(), usecase.ListLeadsInput{ConferenceID: "expo", Limit: 5, Cursor: *first.NextKey})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Count)
	assert.Nil(t, second.NextKey)
}

func TestListAllLeadsFollowsNextKey(t *testing.T) {
	repo := memory.NewLeadRepo()
	seedLeads(t, repo, "expo", 4)
	seedLeads(t, repo, "summit", 3)
	uc := usecase.NewManageLeadsUseCase(repo, discardLogger())

	seen := map[string]int{}
	cursor, pages := "", 0
	for {
		out, err := uc.List(context.Background(), usecase.ListLeadsInput{Limit: 3, Cursor: cursor})
		require.NoError(t, err)
		assert.Equal(t, len(out.Leads), out.Count)
		for _, l := range out.Leads {
			seen[l.ConferenceID+"/"+l.LeadID]++
		}
		pages++
		require.LessOrEqual(t, pages, 10, "pagination did not terminate")
		if out.NextKey == nil {
			break
		}
		cursor = *out.NextKey
	}

	assert.Equal(t, 3, pages)
	require.Len(t, seen, 7)
	for key, n := range seen {
		assert.Equal(t, 1, n, "lead %s listed more than once", key)
	}
	assert.Contains(t, seen, "expo/expo-000")
	assert.Contains(t, seen, "summit/summit-002")
}

func TestListLeadsValidation(t *testing.T) {
	uc := usecase.NewManageLeadsUseCase(memory.NewLeadRepo(), discardLogger())

	out, err := uc.List(context.Background(), usecase.ListLeadsInput{})
	require.NoError(t, err)
	assert.Empty(t, out.Leads)
	assert.NotNil(t, out.Leads)
	assert.Nil(t, out.NextKey)

	_, err = uc.List(context.Background(), usecase.ListLeadsInput{ConferenceID: "expo", Cursor: "!!garbage!!"})
	var de *usecase.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, usecase.CodeBadRequest, de.Code)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, usecase.DefaultPageSize, usecase.ClampLimit(0))
	assert.Equal(t, usecase.MaxPageSize, usecase.ClampLimit(10_000))
	assert.Equal(t, 7, usecase.ClampLimit(7))
}

func TestUpdateAdminOnlyTouchesAdminFields(t *testing.T) {
	repo := memory.NewLeadRepo()
	seedLeads(t, repo, "expo", 1)
	uc := usecase.NewManageLeadsUseCase(repo, discardLogger())
	uc.Now = func() time.Time { return fixedNow.Add(time.Hour) }

	status := "qualified"
	tags := []string{" vip ", "", "golf"}
	lead, err := uc.UpdateAdmin(context.Background(), "expo", "expo-000", usecase.AdminPatchInput{
		Status: &status,
		Tags:   &tags,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusQualified, lead.Status)
	assert.Equal(t, []string{"vip", "golf"}, lead.Tags)
	assert.Equal(t, "lead@example.com", lead.Email)
	assert.True(t, lead.UpdatedAt.After(lead.CreatedAt))

	got, err := uc.Get(context.Background(), "expo", "expo-000")
	require.NoError(t, err)
	assert.Equal(t, "expo-000", got.LeadID)
	assert.Equal(t, entity.StatusQualified, got.Status)
}

func TestUpdateAdminRejects(t *testing.T) {
	repo := memory.NewLeadRepo()
	seedLeads(t, repo, "expo", 1)
	uc := usecase.NewManageLeadsUseCase(repo, discardLogger())

	_, err := uc.UpdateAdmin(context.Background(), "expo", "expo-000", usecase.AdminPatchInput{})
	assert.EqualError(t, err, "No valid fields to update")

	bogus := "archived"
	_, err = uc.UpdateAdmin(context.Background(), "expo", "expo-000", usecase.AdminPatchInput{Status: &bogus})
	assert.EqualError(t, err, "Invalid status: archived")

	notes := "x"
	_, err = uc.UpdateAdmin(context.Background(), "expo", "missing", usecase.AdminPatchInput{AdminNotes: &notes})
	var de *usecase.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, usecase.CodeNotFound, de.Code)
}

func TestDeleteLead(t *testing.T) {
	repo := memory.NewLeadRepo()
	seedLeads(t, repo, "expo", 1)
	uc := usecase.NewManageLeadsUseCase(repo, discardLogger())

	out, err := uc.Delete(context.Background(), "expo", "expo-000")
	require.NoError(t, err)
	assert.Equal(t, "expo-000", out.LeadID)
	assert.Equal(t, "expo", out.ConferenceID)

	_, err = uc.Get(context.Background(), "expo", "expo-000")
	assert.EqualError(t, err, "Lead not found")

	_, err = uc.Delete(context.Background(), "", "expo-000")
	assert.EqualError(t, err, "conferenceId query parameter is required")
}
