package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository/memory"
)

// countingRepo records how often searches reach the backing store.
type countingRepo struct {
	*memory.DrugRepository
	searches int
}

func (r *countingRepo) SearchDrugs(ctx context.Context, filter domain.DrugFilter) ([]domain.Drug, error) {
	r.searches++
	return r.DrugRepository.SearchDrugs(ctx, filter)
}

func setupCache(t *testing.T) (*CatalogCache, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	backing := &countingRepo{DrugRepository: memory.NewDrugRepository()}
	return NewCatalogCache(backing, client, time.Minute, zaptest.NewLogger(t)), backing, mr
}

func TestCatalogCache_SearchIsCached(t *testing.T) {
	ctx := context.Background()
	c, backing, _ := setupCache(t)
	require.NoError(t, c.CreateDrug(ctx, &domain.Drug{DrugID: "d1", Name: "Tylenol", Category: domain.CategoryAnalgesics, Form: domain.FormTablet, IsActive: true}))

	filter := domain.DrugFilter{Term: "tyl"}
	first, err := c.SearchDrugs(ctx, filter)
	require.NoError(t, err)
	second, err := c.SearchDrugs(ctx, filter)
	require.NoError(t, err)

	assert.Equal(t, 1, backing.searches)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].DrugID, second[0].DrugID)
}

func TestCatalogCache_WriteInvalidates(t *testing.T) {
	ctx := context.Background()
	c, backing, mr := setupCache(t)
	drug := &domain.Drug{DrugID: "d1", Name: "Tylenol", Category: domain.CategoryAnalgesics, Form: domain.FormTablet, IsActive: true}
	require.NoError(t, c.CreateDrug(ctx, drug))

	filter := domain.DrugFilter{Category: domain.CategoryAnalgesics}
	_, err := c.SearchDrugs(ctx, filter)
	require.NoError(t, err)

	drug.IsActive = false
	require.NoError(t, c.UpdateDrug(ctx, drug))

	drugs, err := c.SearchDrugs(ctx, filter)
	require.NoError(t, err)
	assert.Empty(t, drugs)
	assert.Equal(t, 2, backing.searches)

	gen, err := mr.Get(generationKey)
	require.NoError(t, err)
	assert.Equal(t, "2", gen)
}

func TestCatalogCache_FallsThroughWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { client.Close() })

	backing := &countingRepo{DrugRepository: memory.NewDrugRepository()}
	c := NewCatalogCache(backing, client, time.Minute, zaptest.NewLogger(t))
	require.NoError(t, c.CreateDrug(ctx, &domain.Drug{DrugID: "d1", Name: "Tylenol", IsActive: true}))

	drugs, err := c.SearchDrugs(ctx, domain.DrugFilter{Term: "tylenol"})
	require.NoError(t, err)
	assert.Len(t, drugs, 1)
	assert.Equal(t, 1, backing.searches)
}
