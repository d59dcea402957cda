package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/FACorreiaa/sales-insights/pkg/cache"
	"github.com/FACorreiaa/sales-insights/pkg/observability"
)

var _ Analyzer = (*CachedService)(nil)

// CachedService memoizes an Analyzer by input content and parameters.
type CachedService struct {
	next    Analyzer
	cache   *cache.LRU
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedService wraps next with the given LRU.
func NewCachedService(next Analyzer, lru *cache.LRU, metrics *observability.Metrics, logger *slog.Logger) *CachedService {
	return &CachedService{next: next, cache: lru, metrics: metrics, logger: logger}
}

// Load is not cached; it returns a fresh dataset every time.
func (c *CachedService) Load(ctx context.Context, in Input) (*Loaded, error) {
	return c.next.Load(ctx, in)
}

func (c *CachedService) Dashboard(ctx context.Context, in Input) (*Dashboard, error) {
	return cached(c, in, "dashboard", nil, func() (*Dashboard, error) {
		return c.next.Dashboard(ctx, in)
	})
}

func (c *CachedService) PCA(ctx context.Context, in Input, cols []string, components int) (*PCAOutput, error) {
	params := []string{strings.Join(cols, "\x1f"), strconv.Itoa(components)}
	return cached(c, in, "pca", params, func() (*PCAOutput, error) {
		return c.next.PCA(ctx, in, cols, components)
	})
}

func (c *CachedService) KMeans(ctx context.Context, in Input, cols []string, k int) (*KMeansOutput, error) {
	params := []string{strings.Join(cols, "\x1f"), strconv.Itoa(k)}
	return cached(c, in, "kmeans", params, func() (*KMeansOutput, error) {
		return c.next.KMeans(ctx, in, cols, k)
	})
}

func cached[T any](c *CachedService, in Input, op string, params []string, compute func() (*T, error)) (*T, error) {
	key, err := inputKey(in, op, params)
	if err != nil {
		// Unreadable paths surface through the uncached pipeline.
		return compute()
	}

	if v, ok := c.cache.Get(key); ok {
		if res, ok := v.(*T); ok {
			c.metrics.CacheHit()
			c.logger.Debug("cache hit", slog.String("op", op))
			return res, nil
		}
	}

	c.metrics.CacheMiss()
	res, err := compute()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, res)
	return res, nil
}

// inputKey hashes the content with every option that can change the result.
func inputKey(in Input, op string, params []string) (string, error) {
	data := in.Data
	if len(data) == 0 && in.Path != "" {
		var err error
		if data, err = os.ReadFile(in.Path); err != nil {
			return "", fmt.Errorf("read %s: %w", in.Path, err)
		}
	}

	parts := [][]byte{
		data,
		[]byte(in.Path),
		[]byte(in.FileName),
		[]byte(string(in.Delimiter)),
		[]byte(in.Sheet),
		[]byte(strconv.Itoa(in.SheetIndex)),
		[]byte(strconv.FormatBool(in.FallbackToSample)),
		[]byte(op),
	}
	for _, p := range params {
		parts = append(parts, []byte(p))
	}
	return cache.Key(parts...), nil
}
