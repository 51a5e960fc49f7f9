package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/store"
)

func validMovie() *domain.Movie {
	return &domain.Movie{
		ID:            "6f9a2f2e-2f5d-4b76-b1a0-111111111111",
		Slug:          "nocturne-2019",
		Title:         "Nocturne",
		YearOfRelease: 2019,
		Genres:        []string{"Drama"},
	}
}

func TestValidateMovieAccepts(t *testing.T) {
	v := NewMovieValidator(store.NewMockMovieStore())
	assert.NoError(t, v.ValidateMovie(context.Background(), validMovie()))
}

func TestValidateMovieCollectsAllFieldErrors(t *testing.T) {
	v := NewMovieValidator(store.NewMockMovieStore())

	movie := &domain.Movie{
		Title:         "   ",
		YearOfRelease: time.Now().UTC().Year() + 1,
	}
	err := v.ValidateMovie(context.Background(), movie)
	require.Error(t, err)

	var fieldErrors Error
	require.ErrorAs(t, err, &fieldErrors)

	fields := make([]string, len(fieldErrors))
	for i, fieldError := range fieldErrors {
		fields[i] = fieldError.Field
	}
	assert.ElementsMatch(t, []string{"id", "title", "genres", "year_of_release"}, fields)
}

func TestValidateMovieCurrentYearAllowed(t *testing.T) {
	v := NewMovieValidator(store.NewMockMovieStore())

	movie := validMovie()
	movie.YearOfRelease = time.Now().UTC().Year()
	movie.Slug = domain.GenerateSlug(movie.Title, movie.YearOfRelease)
	assert.NoError(t, v.ValidateMovie(context.Background(), movie))
}

func TestValidateMovieRejectsDuplicateSlug(t *testing.T) {
	movies := store.NewMockMovieStore()
	require.NoError(t, movies.Create(context.Background(), validMovie()))
	v := NewMovieValidator(movies)

	other := validMovie()
	other.ID = "6f9a2f2e-2f5d-4b76-b1a0-222222222222"
	err := v.ValidateMovie(context.Background(), other)
	require.Error(t, err)

	var fieldErrors Error
	require.ErrorAs(t, err, &fieldErrors)
	require.Len(t, fieldErrors, 1)
	assert.Equal(t, "slug", fieldErrors[0].Field)
}

func TestValidateMovieAllowsOwnSlugOnUpdate(t *testing.T) {
	movies := store.NewMockMovieStore()
	require.NoError(t, movies.Create(context.Background(), validMovie()))
	v := NewMovieValidator(movies)

	// Same movie keeping its slug across an update is not a collision.
	updated := validMovie()
	updated.Genres = []string{"Drama", "Thriller"}
	assert.NoError(t, v.ValidateMovie(context.Background(), updated))
}

type failingSlugReader struct{}

func (failingSlugReader) GetBySlug(context.Context, string, string) (*domain.Movie, error) {
	return nil, errors.New("connection refused")
}

func TestValidateMovieSurfacesStoreFailure(t *testing.T) {
	v := NewMovieValidator(failingSlugReader{})

	err := v.ValidateMovie(context.Background(), validMovie())
	require.Error(t, err)

	var fieldErrors Error
	assert.False(t, errors.As(err, &fieldErrors), "store failures are not validation errors")
}

func TestValidateListOptions(t *testing.T) {
	valid := store.MovieListOptions{Page: 1, PageSize: 10}
	assert.NoError(t, ValidateListOptions(valid))

	tests := []struct {
		name  string
		opts  store.MovieListOptions
		field string
	}{
		{
			name:  "future year",
			opts:  store.MovieListOptions{YearOfRelease: time.Now().UTC().Year() + 1, Page: 1, PageSize: 10},
			field: "year",
		},
		{
			name:  "unknown sort field",
			opts:  store.MovieListOptions{SortField: "slug", Page: 1, PageSize: 10},
			field: "sort_by",
		},
		{
			name:  "zero page",
			opts:  store.MovieListOptions{Page: 0, PageSize: 10},
			field: "page",
		},
		{
			name:  "zero page size",
			opts:  store.MovieListOptions{Page: 1, PageSize: 0},
			field: "page_size",
		},
		{
			name:  "oversized page",
			opts:  store.MovieListOptions{Page: 1, PageSize: MaxPageSize + 1},
			field: "page_size",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateListOptions(tc.opts)
			require.Error(t, err)

			var fieldErrors Error
			require.ErrorAs(t, err, &fieldErrors)
			require.Len(t, fieldErrors, 1)
			assert.Equal(t, tc.field, fieldErrors[0].Field)
		})
	}
}

func TestValidateListOptionsAllowedSortFields(t *testing.T) {
	for _, field := range []string{"title", "yearofrelease"} {
		opts := store.MovieListOptions{SortField: field, Page: 1, PageSize: 10}
		assert.NoError(t, ValidateListOptions(opts), field)
	}
}

func TestNormalizeSortField(t *testing.T) {
	assert.Equal(t, "title", NormalizeSortField("  Title "))
	assert.Equal(t, "yearofrelease", NormalizeSortField("YearOfRelease"))
}

func TestErrorMessage(t *testing.T) {
	err := Error{
		{Field: "title", Message: "must not be empty"},
		{Field: "page", Message: "must be greater than 0"},
	}
	assert.Equal(t, "validation failed: title: must not be empty; page: must be greater than 0", err.Error())
}
