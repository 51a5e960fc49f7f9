package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"movie-catalog/internal/domain"
	"movie-catalog/internal/service"
	"movie-catalog/internal/store"
	"movie-catalog/internal/validation"
)

// MovieHandler exposes the catalog operations over HTTP.
type MovieHandler struct {
	movies          *service.MovieService
	ratings         *service.RatingService
	logger          *slog.Logger
	validator       *validator.Validate
	defaultPageSize int
}

// NewMovieHandler creates a MovieHandler.
func NewMovieHandler(movies *service.MovieService, ratings *service.RatingService,
	logger *slog.Logger, validate *validator.Validate, defaultPageSize int) *MovieHandler {
	return &MovieHandler{
		movies:          movies,
		ratings:         ratings,
		logger:          logger,
		validator:       validate,
		defaultPageSize: defaultPageSize,
	}
}

// handleServiceError translates the service error taxonomy into HTTP
// responses. Unexpected failures are logged and surfaced generically.
func (h *MovieHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fieldErrors validation.Error
	switch {
	case errors.As(err, &fieldErrors):
		respondValidationErrors(w, fieldErrors)
	case errors.Is(err, store.ErrMovieNotFound), errors.Is(err, store.ErrRatingNotFound):
		respondError(w, http.StatusNotFound, "Movie not found")
	case errors.Is(err, store.ErrDuplicateSlug):
		respondError(w, http.StatusConflict, "A movie with this title and year already exists")
	default:
		h.logger.ErrorContext(r.Context(), "Unexpected service failure",
			slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// CreateMovie handles POST /api/movies.
func (h *MovieHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.CreateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		respondValidationErrors(w, validation.FromValidatorErrors(err))
		return
	}

	movie := &domain.Movie{
		ID:            uuid.NewString(),
		Slug:          domain.GenerateSlug(req.Title, req.YearOfRelease),
		Title:         req.Title,
		YearOfRelease: req.YearOfRelease,
		Genres:        req.Genres,
	}
	if err := h.movies.Create(ctx, movie); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "Movie created", slog.String("movieID", movie.ID), slog.String("slug", movie.Slug))
	w.Header().Set("Location", "/api/movies/"+movie.ID)
	respondJSON(w, http.StatusCreated, movie)
}

// GetMovie handles GET /api/movies/{idOrSlug}. A value that parses as a
// uuid is treated as an id, anything else as a slug.
func (h *MovieHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	idOrSlug := mux.Vars(r)["idOrSlug"]
	userID := userIDFromContext(ctx)

	var movie *domain.Movie
	var err error
	if _, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		movie, err = h.movies.GetByID(ctx, idOrSlug, userID)
	} else {
		movie, err = h.movies.GetBySlug(ctx, idOrSlug, userID)
	}
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, movie)
}

// GetMovies handles GET /api/movies with filter, sort and pagination
// query parameters.
func (h *MovieHandler) GetMovies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts, err := h.parseListOptions(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.UserID = userIDFromContext(ctx)

	movies, total, err := h.movies.GetAll(ctx, opts)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, domain.MoviesResponse{
		Items:    movies,
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Total:    total,
		HasNext:  opts.Page*opts.PageSize < total,
	})
}

// parseListOptions reads the list query parameters. A leading '-' on
// sort_by selects descending order, mirroring the sort grammar of the
// public API.
func (h *MovieHandler) parseListOptions(r *http.Request) (store.MovieListOptions, error) {
	query := r.URL.Query()
	opts := store.MovieListOptions{
		Title:         query.Get("title"),
		Page:          1,
		PageSize:      h.defaultPageSize,
		SortDirection: store.SortAscending,
	}

	if rawYear := query.Get("year"); rawYear != "" {
		year, err := strconv.Atoi(rawYear)
		if err != nil {
			return opts, errors.New("year must be an integer")
		}
		opts.YearOfRelease = year
	}
	if rawPage := query.Get("page"); rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil {
			return opts, errors.New("page must be an integer")
		}
		opts.Page = page
	}
	if rawPageSize := query.Get("page_size"); rawPageSize != "" {
		pageSize, err := strconv.Atoi(rawPageSize)
		if err != nil {
			return opts, errors.New("page_size must be an integer")
		}
		opts.PageSize = pageSize
	}
	if sortBy := query.Get("sort_by"); sortBy != "" {
		if strings.HasPrefix(sortBy, "-") {
			opts.SortDirection = store.SortDescending
		}
		opts.SortField = validation.NormalizeSortField(strings.TrimLeft(sortBy, "+-"))
	}
	return opts, nil
}

// UpdateMovie handles PUT /api/movies/{id}. Updates fully replace title,
// year and the genre set.
func (h *MovieHandler) UpdateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	var req domain.UpdateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.validator.StructCtx(ctx, req); err != nil {
		respondValidationErrors(w, validation.FromValidatorErrors(err))
		return
	}

	movie := &domain.Movie{
		ID:            id,
		Slug:          domain.GenerateSlug(req.Title, req.YearOfRelease),
		Title:         req.Title,
		YearOfRelease: req.YearOfRelease,
		Genres:        req.Genres,
	}
	updated, err := h.movies.Update(ctx, movie, userIDFromContext(ctx))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "Movie updated", slog.String("movieID", id))
	respondJSON(w, http.StatusOK, updated)
}

// DeleteMovie handles DELETE /api/movies/{id}.
func (h *MovieHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid movie id")
		return
	}

	if err := h.movies.Delete(ctx, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(ctx, "Movie deleted", slog.String("movieID", id))
	respondJSON(w, http.StatusOK, nil)
}

// RateMovie handles PUT /api/movies/{id}/ratings.
func (h *MovieHandler) RateMovie(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req domain.RateMovieRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := h.ratings.Rate(ctx, id, req.Rating, userIDFromContext(ctx)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// DeleteRating handles DELETE /api/movies/{id}/ratings.
func (h *MovieHandler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if err := h.ratings.DeleteRating(ctx, id, userIDFromContext(ctx)); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}

// GetUserRatings handles GET /api/ratings/me.
func (h *MovieHandler) GetUserRatings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ratings, err := h.ratings.GetRatingsForUser(ctx, userIDFromContext(ctx))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ratings)
}
