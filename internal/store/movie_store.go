package store

import (
	"context"

	"movie-catalog/internal/domain"
)

// Sort directions accepted by MovieListOptions.
const (
	SortAscending  = "asc"
	SortDescending = "desc"
)

// MovieListOptions carries the filter, sort and pagination inputs of a
// list query. SortField must already have passed validation against the
// allowlist before it reaches a store; stores resolve it through a fixed
// column table and never interpolate it as free text.
type MovieListOptions struct {
	Title         string // case-insensitive "contains" filter, empty = no filter
	YearOfRelease int    // exact-match filter, 0 = no filter
	SortField     string // "title" or "yearofrelease", empty = store default order
	SortDirection string // SortAscending (default) or SortDescending
	Page          int
	PageSize      int
	UserID        string // viewer id for personal ratings, empty = anonymous
}

// MovieStore is the persistence contract for catalog items.
type MovieStore interface {
	// Create inserts the movie row and its genre rows as one atomic unit.
	Create(ctx context.Context, movie *domain.Movie) error
	// GetByID returns the movie enriched with genres, aggregate rating and,
	// when userID is non-empty, that user's own rating.
	GetByID(ctx context.Context, id string, userID string) (*domain.Movie, error)
	// GetBySlug is GetByID keyed by the derived slug.
	GetBySlug(ctx context.Context, slug string, userID string) (*domain.Movie, error)
	// List returns one page of movies matching the options.
	List(ctx context.Context, opts MovieListOptions) ([]*domain.Movie, error)
	// Count returns the number of movies matching the same predicate List
	// uses, independent of pagination.
	Count(ctx context.Context, title string, yearOfRelease int) (int, error)
	// Update replaces the movie's scalar fields and its whole genre set in
	// one transaction.
	Update(ctx context.Context, movie *domain.Movie) error
	// Delete removes the movie together with its genre and rating rows.
	Delete(ctx context.Context, id string) error
	// ExistsByID reports whether a movie row exists.
	ExistsByID(ctx context.Context, id string) (bool, error)
}

// RatingStore is the persistence contract for per-user ratings.
type RatingStore interface {
	// Rate upserts the (movieID, userID) rating: a second rating from the
	// same user overwrites the first.
	Rate(ctx context.Context, movieID string, rating int, userID string) error
	// DeleteRating removes the user's rating and reports whether a row was
	// actually removed.
	DeleteRating(ctx context.Context, movieID string, userID string) (bool, error)
	// GetRatingsForUser returns every rating authored by the user.
	GetRatingsForUser(ctx context.Context, userID string) ([]domain.MovieRating, error)
}

// UserStore is the persistence contract for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}
