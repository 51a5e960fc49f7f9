package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"movie-catalog/internal/domain"
)

// PostgresRatingStore implements RatingStore on PostgreSQL.
type PostgresRatingStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresRatingStore creates a new PostgresRatingStore.
func NewPostgresRatingStore(db *sqlx.DB, logger *slog.Logger) (*PostgresRatingStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	return &PostgresRatingStore{db: db, logger: logger}, nil
}

// Rate upserts the user's rating. Conflict resolution happens at the store
// level, so concurrent raters on the same (movie, user) pair converge to
// last write wins without a read-then-write race window.
func (s *PostgresRatingStore) Rate(ctx context.Context, movieID string, rating int, userID string) error {
	query := `INSERT INTO ratings (userid, movieid, rating)
              VALUES ($1, $2, $3)
              ON CONFLICT (userid, movieid) DO UPDATE SET rating = $3`

	s.logger.DebugContext(ctx, "Executing Rate movie query",
		slog.String("movieID", movieID), slog.String("userID", userID), slog.Int("rating", rating))
	if _, err := s.db.ExecContext(ctx, query, userID, movieID, rating); err != nil {
		s.logger.ErrorContext(ctx, "Failed to upsert rating in DB",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to rate movie: %w", err)
	}
	return nil
}

// DeleteRating removes the user's rating and reports whether a row was
// removed.
func (s *PostgresRatingStore) DeleteRating(ctx context.Context, movieID string, userID string) (bool, error) {
	query := `DELETE FROM ratings WHERE movieid = $1 AND userid = $2`

	s.logger.DebugContext(ctx, "Executing Delete rating query",
		slog.String("movieID", movieID), slog.String("userID", userID))
	result, err := s.db.ExecContext(ctx, query, movieID, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete rating from DB",
			slog.String("movieID", movieID), slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to delete rating: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// GetRatingsForUser returns every rating the user has authored, joined to
// the rated movie's slug.
func (s *PostgresRatingStore) GetRatingsForUser(ctx context.Context, userID string) ([]domain.MovieRating, error) {
	query := `SELECT r.rating, r.movieid, m.slug
              FROM ratings r
              INNER JOIN movies m ON r.movieid = m.id
              WHERE r.userid = $1`

	var ratings []domain.MovieRating
	if err := s.db.SelectContext(ctx, &ratings, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get ratings for user from DB",
			slog.String("userID", userID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get ratings for user: %w", err)
	}
	if ratings == nil {
		ratings = []domain.MovieRating{}
	}
	return ratings, nil
}
