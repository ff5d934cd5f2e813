package redis

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"trivia-quiz-service/internal/domain"
)

// CategoryLoader fetches categories from the provider.
type CategoryLoader interface {
	LoadCategories(ctx context.Context) ([]domain.Category, error)
}

const categoriesKey = "trivia:categories"

// CategoryRepository caches provider categories in Redis and falls back to a loader on cache miss.
// Categories are stored as: HSET trivia:categories {id} {name}
type CategoryRepository struct {
	client *redis.Client
	loader CategoryLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCategoryRepository(client *redis.Client, loader CategoryLoader, ttl time.Duration) *CategoryRepository {
	return &CategoryRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CategoryRepository) Categories(ctx context.Context) ([]domain.Category, error) {
	cached, err := r.client.HGetAll(ctx, categoriesKey).Result()
	if err == nil && len(cached) > 0 {
		return buildCategoriesFromCache(cached), nil
	}

	result, err, _ := r.sf.Do(categoriesKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		cached, err := r.client.HGetAll(ctx, categoriesKey).Result()
		if err == nil && len(cached) > 0 {
			return buildCategoriesFromCache(cached), nil
		}

		cats, err := r.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}
		if len(cats) == 0 {
			return cats, nil
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.Pipeline()
		for _, c := range cats {
			pipe.HSet(ctx, categoriesKey, strconv.Itoa(c.ID), c.Name)
		}
		if ttl > 0 {
			pipe.Expire(ctx, categoriesKey, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Category), nil
}

func buildCategoriesFromCache(cached map[string]string) []domain.Category {
	cats := make([]domain.Category, 0, len(cached))
	for idStr, name := range cached {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		cats = append(cats, domain.Category{ID: id, Name: name})
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })
	return cats
}

func (r *CategoryRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
