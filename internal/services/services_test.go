package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"okrhub/internal/docstore"
	"okrhub/internal/domain"
	"okrhub/internal/services"
)

func strPtr(s string) *string { return &s }

func TestObjectivesAreScopedByTimeFrame(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := services.NewObjectives(store)

	_, err := svc.GetAll(ctx, "tf-1")
	require.True(t, docstore.IsCollectionMissing(err), "first read reports missing collection")

	created, err := svc.Create(ctx, domain.Objective{Name: "Grow", Order: 10}, "tf-1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := svc.GetAll(ctx, "tf-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Grow", got[0].Name)

	_, err = svc.GetAll(ctx, "tf-2")
	assert.True(t, docstore.IsCollectionMissing(err), "other time frames stay untouched")
}

func TestSaveInspectsThenWrites(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := services.NewObjectives(store)

	saved, err := svc.Save(ctx, domain.Objective{ID: "o1", Name: "New"}, "tf")
	require.NoError(t, err, "save on a missing document creates it")
	assert.Equal(t, "o1", saved.ID)

	saved.WorkItems = []int{1, 2}
	_, err = svc.Save(ctx, saved, "tf")
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, "Objectives_tf", "o1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, doc.ETag)
	assert.Contains(t, string(doc.Body), `"WorkItems":[1,2]`)

	_, err = svc.Save(ctx, domain.Objective{Name: "no id"}, "tf")
	assert.ErrorIs(t, err, services.ErrInvalid)
}

func TestDeleteByPredicate(t *testing.T) {
	ctx := context.Background()
	svc := services.NewObjectives(docstore.NewMemoryStore())

	require.NoError(t, svc.Delete(ctx, func(domain.Objective) bool { return true }, "tf"), "missing collection is a no-op")

	for _, o := range []domain.Objective{
		{Name: "a", AreaID: strPtr("area-1")},
		{Name: "b", AreaID: strPtr("area-2")},
		{Name: "c", AreaID: strPtr("area-1")},
		{Name: "d"},
	} {
		_, err := svc.Create(ctx, o, "tf")
		require.NoError(t, err)
	}
	require.NoError(t, svc.Delete(ctx, func(o domain.Objective) bool { return o.InArea("area-1") }, "tf"))

	left, err := svc.GetAll(ctx, "tf")
	require.NoError(t, err)
	var names []string
	for _, o := range left {
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"b", "d"}, names)
}

func TestAreasValidateName(t *testing.T) {
	ctx := context.Background()
	svc := services.NewAreas(docstore.NewMemoryStore())
	_, err := svc.Create(ctx, domain.Area{})
	assert.ErrorIs(t, err, services.ErrInvalid)

	a, err := svc.Create(ctx, domain.Area{Name: "Platform"})
	require.NoError(t, err)
	a.Description = "infra"
	updated, err := svc.Save(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "infra", updated.Description)
}

func TestTimeFramesRejectDanglingCurrent(t *testing.T) {
	ctx := context.Background()
	svc := services.NewTimeFrames(docstore.NewMemoryStore())

	set := domain.NewTimeFrameSet("Current")
	created, err := svc.Create(ctx, set)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	created.CurrentTimeFrameID = "nope"
	_, err = svc.Save(ctx, created)
	assert.True(t, errors.Is(err, domain.ErrInvalidTimeFrameSet))

	sets, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, set.CurrentTimeFrameID, sets[0].CurrentTimeFrameID)
}

func TestProjectMetadata(t *testing.T) {
	name, err := services.ProjectMetadata{Name: "Fabrikam"}.ProjectName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Fabrikam", name)

	_, err = services.ProjectMetadata{}.ProjectName(context.Background())
	assert.ErrorIs(t, err, services.ErrProjectNameUnset)
}
