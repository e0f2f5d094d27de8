package rubrique

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todaysafrica/newsroom/internal/models"
	"github.com/todaysafrica/newsroom/internal/pkg/cache"
)

func ptr(v int64) *int64 { return &v }

func names(rs []models.Rubrique) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func TestBuildTree_Flat(t *testing.T) {
	tree := BuildTree([]models.Rubrique{
		{ID: 1, Name: "Politique"},
		{ID: 2, Name: "Économie"},
		{ID: 3, Name: "Élections", ParentID: ptr(1)},
		{ID: 4, Name: "Diplomatie", ParentID: ptr(1)},
		{ID: 5, Name: "Orpheline", ParentID: ptr(99)},
	})

	assert.Equal(t, []string{"Orpheline", "Politique", "Économie"}, names(tree))
	pol := tree[1]
	assert.Equal(t, []string{"Diplomatie", "Élections"}, names(pol.Children))
	assert.Nil(t, tree[0].ParentID)
}

func TestBuildTree_NestedAndCycle(t *testing.T) {
	tree := BuildTree([]models.Rubrique{
		{ID: 1, Name: "Sport", Children: []models.Rubrique{{ID: 2, Name: "Football"}}},
		{ID: 7, Name: "A", ParentID: ptr(8)},
		{ID: 8, Name: "B", ParentID: ptr(7)},
	})

	assert.Equal(t, []string{"A", "B", "Sport"}, names(tree))
	require.Len(t, tree[2].Children, 1)
	assert.Equal(t, int64(1), *tree[2].Children[0].ParentID)
}

type countingBackend struct {
	calls int
	list  []models.Rubrique
}

func (b *countingBackend) ListRubriques(context.Context) ([]models.Rubrique, error) {
	b.calls++
	return b.list, nil
}

func TestService_TreeCachedAndFind(t *testing.T) {
	be := &countingBackend{list: []models.Rubrique{{ID: 1, Name: "Culture"}, {ID: 2, Name: "Musique", ParentID: ptr(1)}}}
	svc := NewService(be, cache.New(cache.NewMemoryKV(), time.Minute))
	ctx := context.Background()

	_, err := svc.Tree(ctx)
	require.NoError(t, err)
	r, err := svc.Find(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "Musique", r.Name)
	assert.Equal(t, 1, be.calls)

	r, err = svc.Find(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, r)
}
