package store

import "errors"

var (
	ErrMovieNotFound  = errors.New("movie not found")
	ErrRatingNotFound = errors.New("rating not found")
	ErrDuplicateSlug  = errors.New("movie with this slug already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("user with this email already exists")
)
