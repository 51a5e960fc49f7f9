package service

import (
	"context"
	"log/slog"

	"movie-catalog/internal/cache"
	"movie-catalog/internal/domain"
	"movie-catalog/internal/metrics"
	"movie-catalog/internal/store"
	"movie-catalog/internal/validation"
)

// RatingService handles per-user rating upserts and deletions. Rating
// mutations change cached aggregates, so they evict the shared movie tag
// like item mutations do.
type RatingService struct {
	ratings store.RatingStore
	movies  store.MovieStore
	cache   cache.Store
	logger  *slog.Logger
}

// NewRatingService creates a RatingService.
func NewRatingService(ratings store.RatingStore, movies store.MovieStore,
	cacheStore cache.Store, logger *slog.Logger) *RatingService {
	return &RatingService{
		ratings: ratings,
		movies:  movies,
		cache:   cacheStore,
		logger:  logger,
	}
}

// Rate upserts the user's score for the movie. The score must be in [1,5]
// and the movie must exist.
func (s *RatingService) Rate(ctx context.Context, movieID string, rating int, userID string) error {
	if rating < 1 || rating > 5 {
		return validation.Error{{Field: "rating", Message: "rating must be between 1 and 5"}}
	}

	exists, err := s.movies.ExistsByID(ctx, movieID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrMovieNotFound
	}

	if err := s.ratings.Rate(ctx, movieID, rating, userID); err != nil {
		return err
	}
	s.evict(ctx)
	return nil
}

// DeleteRating removes the user's rating, reporting ErrRatingNotFound when
// there was nothing to remove.
func (s *RatingService) DeleteRating(ctx context.Context, movieID string, userID string) error {
	deleted, err := s.ratings.DeleteRating(ctx, movieID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrRatingNotFound
	}
	s.evict(ctx)
	return nil
}

// GetRatingsForUser returns every rating the user has authored.
func (s *RatingService) GetRatingsForUser(ctx context.Context, userID string) ([]domain.MovieRating, error) {
	return s.ratings.GetRatingsForUser(ctx, userID)
}

func (s *RatingService) evict(ctx context.Context) {
	metrics.CacheEvictions.Inc()
	if err := s.cache.EvictTag(ctx, movieCacheTag); err != nil {
		s.logger.ErrorContext(ctx, "Failed to evict movie cache tag", slog.String("error", err.Error()))
	}
}
