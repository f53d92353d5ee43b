// Package cache puts a Redis read-through cache in front of the drug catalog.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/domain"
	"github.com/cloud-wave-best-zizon/pharmacy-service/internal/repository"
)

const generationKey = "catalog:generation"

var _ repository.DrugRepository = (*CatalogCache)(nil)

// CatalogCache caches SearchDrugs results. Every catalog write bumps a
// generation counter that is part of each cache key, so stale entries are
// never read again and simply expire.
type CatalogCache struct {
	next   repository.DrugRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogCache(next repository.DrugRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	return &CatalogCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// NewRedisClient creates a client and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (c *CatalogCache) CreateDrug(ctx context.Context, drug *domain.Drug) error {
	if err := c.next.CreateDrug(ctx, drug); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CatalogCache) UpdateDrug(ctx context.Context, drug *domain.Drug) error {
	if err := c.next.UpdateDrug(ctx, drug); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CatalogCache) GetDrug(ctx context.Context, drugID string) (*domain.Drug, error) {
	return c.next.GetDrug(ctx, drugID)
}

func (c *CatalogCache) SearchDrugs(ctx context.Context, filter domain.DrugFilter) ([]domain.Drug, error) {
	key, err := c.searchKey(ctx, filter)
	if err != nil {
		c.logger.Warn("Catalog cache unavailable", zap.Error(err))
		return c.next.SearchDrugs(ctx, filter)
	}

	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var drugs []domain.Drug
		if err := json.Unmarshal(cached, &drugs); err == nil {
			return drugs, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	drugs, err := c.next.SearchDrugs(ctx, filter)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(drugs)
	if err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return drugs, nil
}

func (c *CatalogCache) searchKey(ctx context.Context, filter domain.DrugFilter) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}

	raw, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha1.Sum(raw)
	return fmt.Sprintf("catalog:%d:search:%s", gen, hex.EncodeToString(sum[:])), nil
}

func (c *CatalogCache) invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Error("Failed to invalidate catalog cache", zap.Error(err))
	}
}
