package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"movie-catalog/internal/domain"
)

// MockMovieStore is an in-memory implementation of MovieStore and
// RatingStore for tests and local development. It holds the rating rows
// itself so that aggregate and personal ratings behave like the joined
// queries of the real store.
type MockMovieStore struct {
	mu      sync.RWMutex
	movies  map[string]*domain.Movie
	ratings map[string]map[string]int // movieID -> userID -> rating
}

// NewMockMovieStore creates an empty MockMovieStore.
func NewMockMovieStore() *MockMovieStore {
	return &MockMovieStore{
		movies:  make(map[string]*domain.Movie),
		ratings: make(map[string]map[string]int),
	}
}

func (m *MockMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.movies {
		if existing.Slug == movie.Slug {
			return ErrDuplicateSlug
		}
	}
	movieCopy := *movie
	movieCopy.Genres = append([]string(nil), movie.Genres...)
	m.movies[movie.ID] = &movieCopy
	return nil
}

func (m *MockMovieStore) GetByID(ctx context.Context, id string, userID string) (*domain.Movie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	movie, ok := m.movies[id]
	if !ok {
		return nil, ErrMovieNotFound
	}
	return m.enrich(movie, userID), nil
}

func (m *MockMovieStore) GetBySlug(ctx context.Context, slug string, userID string) (*domain.Movie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, movie := range m.movies {
		if movie.Slug == slug {
			return m.enrich(movie, userID), nil
		}
	}
	return nil, ErrMovieNotFound
}

func (m *MockMovieStore) List(ctx context.Context, opts MovieListOptions) ([]*domain.Movie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []*domain.Movie
	for _, movie := range m.movies {
		if !matchesFilters(movie, opts.Title, opts.YearOfRelease) {
			continue
		}
		filtered = append(filtered, m.enrich(movie, opts.UserID))
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		var less, equal bool
		switch opts.SortField {
		case "title":
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			less, equal = at < bt, at == bt
		case "yearofrelease":
			less, equal = a.YearOfRelease < b.YearOfRelease, a.YearOfRelease == b.YearOfRelease
		default:
			return a.ID < b.ID
		}
		if equal {
			// Deterministic tie-break keeps pagination stable.
			return a.ID < b.ID
		}
		if opts.SortDirection == SortDescending {
			return !less
		}
		return less
	})

	start := (opts.Page - 1) * opts.PageSize
	if start < 0 || start >= len(filtered) {
		return []*domain.Movie{}, nil
	}
	end := start + opts.PageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

func (m *MockMovieStore) Count(ctx context.Context, title string, yearOfRelease int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, movie := range m.movies {
		if matchesFilters(movie, title, yearOfRelease) {
			count++
		}
	}
	return count, nil
}

func (m *MockMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.movies[movie.ID]; !ok {
		return ErrMovieNotFound
	}
	for id, existing := range m.movies {
		if id != movie.ID && existing.Slug == movie.Slug {
			return ErrDuplicateSlug
		}
	}
	movieCopy := *movie
	movieCopy.Genres = append([]string(nil), movie.Genres...)
	m.movies[movie.ID] = &movieCopy
	return nil
}

func (m *MockMovieStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.movies[id]; !ok {
		return ErrMovieNotFound
	}
	delete(m.ratings, id)
	delete(m.movies, id)
	return nil
}

func (m *MockMovieStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.movies[id]
	return ok, nil
}

func (m *MockMovieStore) Rate(ctx context.Context, movieID string, rating int, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ratings[movieID] == nil {
		m.ratings[movieID] = make(map[string]int)
	}
	m.ratings[movieID][userID] = rating
	return nil
}

func (m *MockMovieStore) DeleteRating(ctx context.Context, movieID string, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userRatings, ok := m.ratings[movieID]
	if !ok {
		return false, nil
	}
	if _, ok := userRatings[userID]; !ok {
		return false, nil
	}
	delete(userRatings, userID)
	return true, nil
}

func (m *MockMovieStore) GetRatingsForUser(ctx context.Context, userID string) ([]domain.MovieRating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ratings := []domain.MovieRating{}
	for movieID, userRatings := range m.ratings {
		rating, ok := userRatings[userID]
		if !ok {
			continue
		}
		slug := ""
		if movie, ok := m.movies[movieID]; ok {
			slug = movie.Slug
		}
		ratings = append(ratings, domain.MovieRating{MovieID: movieID, Slug: slug, Rating: rating})
	}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].MovieID < ratings[j].MovieID })
	return ratings, nil
}

func matchesFilters(movie *domain.Movie, title string, yearOfRelease int) bool {
	if title != "" && !strings.Contains(strings.ToLower(movie.Title), strings.ToLower(title)) {
		return false
	}
	if yearOfRelease != 0 && movie.YearOfRelease != yearOfRelease {
		return false
	}
	return true
}

// enrich returns a copy of the movie with its derived rating fields filled
// in. Callers must hold at least the read lock.
func (m *MockMovieStore) enrich(movie *domain.Movie, userID string) *domain.Movie {
	movieCopy := *movie
	movieCopy.Genres = append([]string(nil), movie.Genres...)

	userRatings := m.ratings[movie.ID]
	if len(userRatings) > 0 {
		sum := 0
		for _, rating := range userRatings {
			sum += rating
		}
		avg := math.Round(float64(sum)/float64(len(userRatings))*10) / 10
		movieCopy.Rating = &avg
	}
	if userID != "" {
		if rating, ok := userRatings[userID]; ok {
			ratingCopy := rating
			movieCopy.UserRating = &ratingCopy
		}
	}
	return &movieCopy
}
