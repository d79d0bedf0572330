package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"katalog/internal/models"
)

// ErrCacheMiss is returned by a ListingCache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

const (
	listingKeyPrefix   = "katalog:products:all"
	generationCacheKey = "katalog:products:generation"
)

// ListingCache stores serialized product listings under generation-scoped keys.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Generation returns the current listing generation, 0 before the first Bump.
	Generation(ctx context.Context) (int64, error)
	// Bump advances the generation. Listings stored under older generations
	// are never read again and expire with their TTL.
	Bump(ctx context.Context) error
}

// RedisListingCache is a ListingCache backed by Redis.
type RedisListingCache struct {
	rdb *redis.Client
}

// NewRedisListingCache wraps an existing Redis client.
func NewRedisListingCache(rdb *redis.Client) *RedisListingCache {
	return &RedisListingCache{rdb: rdb}
}

// Get returns the cached value or ErrCacheMiss.
func (c *RedisListingCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisListingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisListingCache) Generation(ctx context.Context) (int64, error) {
	n, err := c.rdb.Get(ctx, generationCacheKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *RedisListingCache) Bump(ctx context.Context) error {
	return c.rdb.Incr(ctx, generationCacheKey).Err()
}

var _ ProductRepository = (*CachedProductRepository)(nil)

// CachedProductRepository serves the full listing from a cache and
// retires it on every write by bumping the cache generation. Single-record reads go straight to next.
// Cache failures are logged and never fail the call.
type CachedProductRepository struct {
	next  ProductRepository
	cache ListingCache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedProductRepository decorates next with a listing cache.
func NewCachedProductRepository(next ProductRepository, cache ListingCache, ttl time.Duration, log *zap.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		next:  next,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func (r *CachedProductRepository) FindAllDescendingByID(ctx context.Context) ([]models.Product, error) {
	// The generation is read before the store so that a listing loaded
	// before a concurrent write is filed under the generation that write retires.
	gen, err := r.cache.Generation(ctx)
	if err != nil {
		r.log.Warn("Product listing cache generation read failed", zap.Error(err))
		return r.next.FindAllDescendingByID(ctx)
	}
	key := fmt.Sprintf("%s:%d", listingKeyPrefix, gen)

	if b, err := r.cache.Get(ctx, key); err == nil {
		var products []models.Product
		if err := json.Unmarshal(b, &products); err == nil {
			for i := range products {
				products[i].Price = products[i].Price.Round(models.PriceScale)
			}
			return products, nil
		}
		r.log.Warn("Discarding undecodable product listing from cache")
	} else if !errors.Is(err, ErrCacheMiss) {
		r.log.Warn("Product listing cache read failed", zap.Error(err))
	}

	products, err := r.next.FindAllDescendingByID(ctx)
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(products)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product listing: %w", err)
	}
	if err := r.cache.Set(ctx, key, b, r.ttl); err != nil {
		r.log.Warn("Product listing cache write failed", zap.Error(err))
	}
	return products, nil
}

func (r *CachedProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	return r.next.FindByID(ctx, id)
}

func (r *CachedProductRepository) Insert(ctx context.Context, product *models.Product) error {
	defer r.invalidate(ctx)
	return r.next.Insert(ctx, product)
}

func (r *CachedProductRepository) Save(ctx context.Context, product *models.Product) error {
	defer r.invalidate(ctx)
	return r.next.Save(ctx, product)
}

func (r *CachedProductRepository) Remove(ctx context.Context, product *models.Product) error {
	defer r.invalidate(ctx)
	return r.next.Remove(ctx, product)
}

func (r *CachedProductRepository) invalidate(ctx context.Context) {
	// The write may have been cancelled after committing; retire the listing regardless.
	if err := r.cache.Bump(context.WithoutCancel(ctx)); err != nil {
		r.log.Warn("Product listing cache invalidation failed", zap.Error(err))
	}
}
