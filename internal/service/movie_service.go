// Package service orchestrates validation, storage, rating aggregation and
// cache invalidation behind the transport layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"

	"movie-catalog/internal/cache"
	"movie-catalog/internal/domain"
	"movie-catalog/internal/metrics"
	"movie-catalog/internal/store"
	"movie-catalog/internal/validation"
)

// movieCacheTag is the single shared tag under which every cached list and
// detail view lives. Any successful mutation evicts the whole tag.
const movieCacheTag = "movies"

// MovieService is the query/mutation façade for catalog items.
type MovieService struct {
	movies    store.MovieStore
	validator *validation.MovieValidator
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// NewMovieService creates a MovieService.
func NewMovieService(movies store.MovieStore, movieValidator *validation.MovieValidator,
	cacheStore cache.Store, cacheTTL time.Duration, logger *slog.Logger) *MovieService {
	return &MovieService{
		movies:    movies,
		validator: movieValidator,
		cache:     cacheStore,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Create validates the movie, writes it and evicts the cache tag.
func (s *MovieService) Create(ctx context.Context, movie *domain.Movie) error {
	if err := s.validator.ValidateMovie(ctx, movie); err != nil {
		return err
	}
	if err := s.movies.Create(ctx, movie); err != nil {
		return err
	}
	s.evict(ctx)
	return nil
}

// GetByID returns the movie, served from cache when possible.
func (s *MovieService) GetByID(ctx context.Context, id string, userID string) (*domain.Movie, error) {
	return s.getCached(ctx, "id:"+id+":u="+userID, func() (*domain.Movie, error) {
		return s.movies.GetByID(ctx, id, userID)
	})
}

// GetBySlug returns the movie by slug, served from cache when possible.
func (s *MovieService) GetBySlug(ctx context.Context, slug string, userID string) (*domain.Movie, error) {
	return s.getCached(ctx, "slug:"+slug+":u="+userID, func() (*domain.Movie, error) {
		return s.movies.GetBySlug(ctx, slug, userID)
	})
}

// cachedList is the serialized form of a list page plus its total count.
type cachedList struct {
	Movies []*domain.Movie `json:"movies"`
	Total  int             `json:"total"`
}

// GetAll validates the options and returns one page of movies with the
// total count of matches, served from cache when possible.
func (s *MovieService) GetAll(ctx context.Context, opts store.MovieListOptions) ([]*domain.Movie, int, error) {
	if err := validation.ValidateListOptions(opts); err != nil {
		return nil, 0, err
	}

	key := listCacheKey(opts)
	if value, ok := s.cache.Get(ctx, movieCacheTag, key); ok {
		var cached cachedList
		if err := json.Unmarshal(value, &cached); err == nil {
			metrics.CacheHits.Inc()
			return cached.Movies, cached.Total, nil
		}
	}
	metrics.CacheMisses.Inc()

	movies, err := s.movies.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.movies.Count(ctx, opts.Title, opts.YearOfRelease)
	if err != nil {
		return nil, 0, err
	}

	if value, err := json.Marshal(cachedList{Movies: movies, Total: total}); err == nil {
		if err := s.cache.Set(ctx, movieCacheTag, key, value, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "Failed to cache movie list", slog.String("error", err.Error()))
		}
	}
	return movies, total, nil
}

// Update validates the movie, guards on existence, replaces it and evicts
// the cache tag. The returned movie carries fresh rating data for userID.
func (s *MovieService) Update(ctx context.Context, movie *domain.Movie, userID string) (*domain.Movie, error) {
	if err := s.validator.ValidateMovie(ctx, movie); err != nil {
		return nil, err
	}
	exists, err := s.movies.ExistsByID(ctx, movie.ID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrMovieNotFound
	}
	if err := s.movies.Update(ctx, movie); err != nil {
		return nil, err
	}
	s.evict(ctx)
	return s.movies.GetByID(ctx, movie.ID, userID)
}

// Delete removes the movie with its genres and ratings and evicts the
// cache tag.
func (s *MovieService) Delete(ctx context.Context, id string) error {
	if err := s.movies.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx)
	return nil
}

// getCached serves a detail view from the cache, falling back to fetch and
// populating the cache on a miss.
func (s *MovieService) getCached(ctx context.Context, key string, fetch func() (*domain.Movie, error)) (*domain.Movie, error) {
	if value, ok := s.cache.Get(ctx, movieCacheTag, key); ok {
		var movie domain.Movie
		if err := json.Unmarshal(value, &movie); err == nil {
			metrics.CacheHits.Inc()
			return &movie, nil
		}
	}
	metrics.CacheMisses.Inc()

	movie, err := fetch()
	if err != nil {
		return nil, err
	}
	if value, err := json.Marshal(movie); err == nil {
		if err := s.cache.Set(ctx, movieCacheTag, key, value, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "Failed to cache movie", slog.String("error", err.Error()))
		}
	}
	return movie, nil
}

// evict drops every cached entry under the shared movie tag. The mutation
// has already committed at this point, so eviction failures are logged
// rather than surfaced to the caller.
func (s *MovieService) evict(ctx context.Context) {
	metrics.CacheEvictions.Inc()
	if err := s.cache.EvictTag(ctx, movieCacheTag); err != nil {
		s.logger.ErrorContext(ctx, "Failed to evict movie cache tag", slog.String("error", err.Error()))
	}
}

// listCacheKey derives the cache key from the full set of query
// parameters, so any difference in filters, sort, page or viewer addresses
// a distinct entry.
func listCacheKey(opts store.MovieListOptions) string {
	return fmt.Sprintf("list:title=%s&year=%d&sort=%s;%s&page=%d&size=%d&viewer=%s",
		opts.Title, opts.YearOfRelease, opts.SortField, opts.SortDirection,
		opts.Page, opts.PageSize, opts.UserID)
}
