package domain

import (
	"github.com/lib/pq"
)

// Movie is the core catalog entity. Rating and UserRating are derived at
// query time from the ratings table and are nil when no data exists; they
// are never stored on the movie row.
type Movie struct {
	ID            string         `json:"id" db:"id"`
	Slug          string         `json:"slug" db:"slug"`
	Title         string         `json:"title" db:"title"`
	YearOfRelease int            `json:"year_of_release" db:"yearofrelease"`
	Genres        pq.StringArray `json:"genres" db:"genres"`
	Rating        *float64       `json:"rating,omitempty" db:"rating"`
	UserRating    *int           `json:"user_rating,omitempty" db:"userrating"`
}

// MovieRating is a single rater's score for one movie.
type MovieRating struct {
	MovieID string `json:"movie_id" db:"movieid"`
	Slug    string `json:"slug" db:"slug"`
	Rating  int    `json:"rating" db:"rating"`
}

// CreateMovieRequest defines the request body for creating a new movie.
type CreateMovieRequest struct {
	Title         string   `json:"title" validate:"required,min=1,max=255"`
	YearOfRelease int      `json:"year_of_release" validate:"required,gte=1888"`
	Genres        []string `json:"genres" validate:"required,min=1,dive,min=1,max=50"`
}

// UpdateMovieRequest defines the request body for updating a movie.
// Updates are a full replace of title, year and the genre set.
type UpdateMovieRequest struct {
	Title         string   `json:"title" validate:"required,min=1,max=255"`
	YearOfRelease int      `json:"year_of_release" validate:"required,gte=1888"`
	Genres        []string `json:"genres" validate:"required,min=1,dive,min=1,max=50"`
}

// RateMovieRequest defines the request body for rating a movie.
type RateMovieRequest struct {
	Rating int `json:"rating" validate:"required"`
}

// MoviesResponse is the paged envelope returned by the list endpoint.
type MoviesResponse struct {
	Items    []*Movie `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Total    int      `json:"total"`
	HasNext  bool     `json:"has_next_page"`
}
