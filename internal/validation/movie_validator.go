package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/store"
)

// allowedSortFields is the fixed allowlist of list sort fields. Anything
// outside it fails validation, which is also the injection defense: the
// sort field is never taken as free text into a query.
var allowedSortFields = map[string]struct{}{
	"title":         {},
	"yearofrelease": {},
}

// SlugReader is the read dependency of the slug-uniqueness rule.
type SlugReader interface {
	GetBySlug(ctx context.Context, slug string, userID string) (*domain.Movie, error)
}

// MovieValidator validates movies before they are written. The slug rule
// queries the store, so validation has a read dependency on it.
type MovieValidator struct {
	movies SlugReader
}

// NewMovieValidator creates a MovieValidator backed by the given store.
func NewMovieValidator(movies SlugReader) *MovieValidator {
	return &MovieValidator{movies: movies}
}

// ValidateMovie checks every rule and returns an Error listing all failed
// fields, or nil when the movie is valid.
func (v *MovieValidator) ValidateMovie(ctx context.Context, movie *domain.Movie) error {
	var fieldErrors Error

	if movie.ID == "" {
		fieldErrors = append(fieldErrors, FieldError{Field: "id", Message: "must not be empty"})
	}
	if strings.TrimSpace(movie.Title) == "" {
		fieldErrors = append(fieldErrors, FieldError{Field: "title", Message: "must not be empty"})
	}
	if len(movie.Genres) == 0 {
		fieldErrors = append(fieldErrors, FieldError{Field: "genres", Message: "must not be empty"})
	}
	if movie.YearOfRelease > time.Now().UTC().Year() {
		fieldErrors = append(fieldErrors, FieldError{Field: "year_of_release", Message: "must not be in the future"})
	}

	if movie.Slug != "" {
		existing, err := v.movies.GetBySlug(ctx, movie.Slug, "")
		switch {
		case err == nil && existing.ID != movie.ID:
			// The slug may belong to the movie being updated; only a
			// different movie with the same slug is a collision.
			fieldErrors = append(fieldErrors, FieldError{Field: "slug", Message: "this movie already exists in the system"})
		case err != nil && !errors.Is(err, store.ErrMovieNotFound):
			return fmt.Errorf("failed to check slug uniqueness: %w", err)
		}
	}

	if len(fieldErrors) > 0 {
		return fieldErrors
	}
	return nil
}

// ValidateListOptions checks the filter, sort and pagination inputs of a
// list query.
func ValidateListOptions(opts store.MovieListOptions) error {
	var fieldErrors Error

	if opts.YearOfRelease > time.Now().UTC().Year() {
		fieldErrors = append(fieldErrors, FieldError{Field: "year", Message: "must not be in the future"})
	}
	if opts.SortField != "" {
		if _, ok := allowedSortFields[opts.SortField]; !ok {
			fieldErrors = append(fieldErrors, FieldError{Field: "sort_by", Message: "you can only sort by 'title' or 'yearofrelease'"})
		}
	}
	if opts.Page < 1 {
		fieldErrors = append(fieldErrors, FieldError{Field: "page", Message: "must be greater than 0"})
	}
	if opts.PageSize < 1 || opts.PageSize > MaxPageSize {
		fieldErrors = append(fieldErrors, FieldError{Field: "page_size", Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize)})
	}

	if len(fieldErrors) > 0 {
		return fieldErrors
	}
	return nil
}

// MaxPageSize bounds how many movies a single page may request.
const MaxPageSize = 25

// NormalizeSortField lowercases the caller-supplied sort field so the
// allowlist check and the store's column table are case-insensitive.
func NormalizeSortField(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}
