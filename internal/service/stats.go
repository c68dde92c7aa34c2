package service

import (
	"context"
	"sort"
	"sync"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/cache"
	"github.com/kewsys/registry/internal/domain/record"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

const statsMaxGoroutines = 4

// Stats aggregates the live rows of the entity: total, a count map per GroupBy
// field, the named counters, the declared sum and the grouped sums. The summary
// is cached until the next write to the entity.
func (s *recordService) Stats(ctx context.Context) (map[string]any, error) {
	key := s.statsKey("summary")
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if summary, ok := cached.(map[string]any); ok {
			return summary, nil
		}
	}

	gen := s.statsGeneration(ctx)
	def := s.entity.Stats
	live := &record.Filter{}

	var mu sync.Mutex
	summary := make(map[string]any, 2+len(def.GroupBy)+len(def.Counters)+len(def.Groups))
	set := func(k string, v any) {
		mu.Lock()
		defer mu.Unlock()
		summary[k] = v
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithMaxGoroutines(statsMaxGoroutines)
	p.Go(func(ctx context.Context) error {
		total, err := s.repo.Count(ctx, live)
		set("total", total)
		return err
	})
	for _, field := range def.GroupBy {
		p.Go(func(ctx context.Context) error {
			counts, err := s.repo.CountBy(ctx, field, live)
			set("by"+lo.PascalCase(field), counts)
			return err
		})
	}
	for _, counter := range def.Counters {
		p.Go(func(ctx context.Context) error {
			n, err := s.repo.Count(ctx, &record.Filter{Predicate: counter.Predicate})
			set(counter.Name, n)
			return err
		})
	}
	if def.SumField != "" {
		p.Go(func(ctx context.Context) error {
			total, err := s.repo.Sum(ctx, def.SumField, live)
			set(def.SumAs, total)
			return err
		})
	}
	for _, group := range def.Groups {
		p.Go(func(ctx context.Context) error {
			sums, err := s.repo.SumBy(ctx, group.Field, group.SumField, live)
			set(group.Name, sums)
			return err
		})
	}

	if err := p.Wait(); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to compute %s statistics", s.entity.Module).
			Mark(ierr.ErrDatabase)
	}

	s.cacheStats(ctx, key, gen, summary)
	return summary, nil
}

// Breakdown counts live rows and totals sumField per distinct groupField value,
// largest total first
func (s *recordService) Breakdown(ctx context.Context, groupField, sumField string) ([]dto.GroupBreakdown, error) {
	if _, ok := s.entity.Field(groupField); !ok {
		return nil, ierr.NewErrorf("%s has no field %s", s.entity.Name, groupField).
			WithHint("Unknown group field").
			Mark(ierr.ErrValidation)
	}

	var (
		counts map[string]int
		sums   map[string]decimal.Decimal
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		counts, err = s.repo.CountBy(ctx, groupField, &record.Filter{})
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		sums, err = s.repo.SumBy(ctx, groupField, sumField, &record.Filter{})
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to compute %s breakdown", s.entity.Module).
			Mark(ierr.ErrDatabase)
	}

	out := make([]dto.GroupBreakdown, 0, len(counts))
	for group, n := range counts {
		out = append(out, dto.GroupBreakdown{Group: group, Count: n, Total: sums[group].String()})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := sums[out[i].Group], sums[out[j].Group]
		if !ti.Equal(tj) {
			return ti.GreaterThan(tj)
		}
		return out[i].Group < out[j].Group
	})
	return out, nil
}

func (s *recordService) statsKey(parts ...any) string {
	return cache.GenerateKey(cache.PrefixStats, append([]any{s.entity.Name}, parts...)...)
}

// statsGeneration changes on every invalidation of the entity's stats
func (s *recordService) statsGeneration(ctx context.Context) any {
	gen, _ := s.Cache.Get(ctx, cache.GenerateKey(cache.PrefixStatsGen, s.entity.Name))
	return gen
}

// cacheStats stores value unless a write invalidated the stats after gen was read
func (s *recordService) cacheStats(ctx context.Context, key string, gen any, value any) {
	if s.statsGeneration(ctx) != gen {
		s.Logger.Debugw("skipping stale stats", "entity", s.entity.Name, "key", key)
		return
	}
	s.Cache.Set(ctx, key, value, s.Config.Cache.StatsTTL)
}

func (s *recordService) invalidateStats(ctx context.Context) {
	s.Cache.Set(ctx, cache.GenerateKey(cache.PrefixStatsGen, s.entity.Name), types.GenerateUUID(), cache.NoExpiration)
	s.Cache.DeleteByPrefix(ctx, s.statsKey()+":")
}
