package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-catalog/internal/cache"
	"movie-catalog/internal/domain"
	"movie-catalog/internal/service"
	"movie-catalog/internal/store"
	"movie-catalog/internal/validation"
	"movie-catalog/pkg/auth"
)

const testSecret = "fedcba9876543210fedcba9876543210"

type testServer struct {
	router *mux.Router
	tokens auth.TokenManager
	users  *store.MockUserStore
	movies *store.MockMovieStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cacheStore, err := cache.NewBadgerStore(logger)
	require.NoError(t, err)
	t.Cleanup(func() { cacheStore.Close() })

	tokens, err := auth.NewTokenManager(testSecret, "movie-catalog", "movie-catalog")
	require.NoError(t, err)

	movies := store.NewMockMovieStore()
	users := store.NewMockUserStore()
	movieValidator := validation.NewMovieValidator(movies)
	movieService := service.NewMovieService(movies, movieValidator, cacheStore, time.Hour, logger)
	ratingService := service.NewRatingService(movies, movies, cacheStore, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())
	movieHandler := NewMovieHandler(movieService, ratingService, logger, validate, 10)
	identityHandler := NewIdentityHandler(users, tokens, logger, validate)
	healthHandler := &HealthHandler{}
	mw := NewMiddleware(tokens, logger)

	return &testServer{
		router: NewRouter(movieHandler, identityHandler, healthHandler, mw),
		tokens: tokens,
		users:  users,
		movies: movies,
	}
}

func (s *testServer) tokenFor(t *testing.T, userID string, admin, trusted bool) string {
	t.Helper()
	token, err := s.tokens.Generate(userID, userID+"@test.com", map[string]any{
		auth.ClaimAdmin:         admin,
		auth.ClaimTrustedMember: trusted,
	})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &out))
	return out
}

func createMovieBody(title string, year int, genres ...string) map[string]any {
	return map[string]any{
		"title":           title,
		"year_of_release": year,
		"genres":          genres,
	}
}

func TestCreateMovieRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodPost, "/api/movies", "", createMovieBody("Nocturne", 2019, "Drama"))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestCreateMovieRequiresTrustedMember(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, false)

	recorder := s.do(t, http.MethodPost, "/api/movies", token, createMovieBody("Nocturne", 2019, "Drama"))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestCreateMovie(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	recorder := s.do(t, http.MethodPost, "/api/movies", token, createMovieBody("Nocturne", 2019, "Drama"))
	require.Equal(t, http.StatusCreated, recorder.Code)

	created := decodeBody[domain.Movie](t, recorder)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "nocturne-2019", created.Slug)
	assert.Equal(t, "/api/movies/"+created.ID, recorder.Header().Get("Location"))
}

func TestCreateMovieAdminAllowed(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "admin-1", true, false)

	recorder := s.do(t, http.MethodPost, "/api/movies", token, createMovieBody("Solaris", 1972, "Sci-Fi"))
	assert.Equal(t, http.StatusCreated, recorder.Code)
}

func TestCreateMovieValidationErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	recorder := s.do(t, http.MethodPost, "/api/movies", token, map[string]any{
		"title":  "",
		"genres": []string{},
	})
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	body := decodeBody[map[string][]validation.FieldError](t, recorder)
	fields := make([]string, 0, len(body["errors"]))
	for _, fieldError := range body["errors"] {
		fields = append(fields, fieldError.Field)
	}
	assert.ElementsMatch(t, []string{"title", "yearofrelease", "genres"}, fields)
}

func TestCreateMovieRejectsDuplicateSlug(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	recorder := s.do(t, http.MethodPost, "/api/movies", token, createMovieBody("Nocturne", 2019, "Drama"))
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = s.do(t, http.MethodPost, "/api/movies", token, createMovieBody("Nocturne", 2019, "Thriller"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "already exists")
}

func TestGetMovieByIDAndSlug(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	created := decodeBody[domain.Movie](t, s.do(t, http.MethodPost, "/api/movies", token, createMovieBody("Nocturne", 2019, "Drama")))

	recorder := s.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Nocturne", decodeBody[domain.Movie](t, recorder).Title)

	recorder = s.do(t, http.MethodGet, "/api/movies/nocturne-2019", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, created.ID, decodeBody[domain.Movie](t, recorder).ID)
}

func TestGetMovieNotFound(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodGet, "/api/movies/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = s.do(t, http.MethodGet, "/api/movies/unknown-slug-1999", "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestGetMoviesListSortingAndPaging(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	for _, m := range []struct {
		title string
		year  int
	}{
		{"Solaris", 1972},
		{"Alien", 1979},
		{"Nocturne", 2019},
	} {
		recorder := s.do(t, http.MethodPost, "/api/movies", token, createMovieBody(m.title, m.year, "Drama"))
		require.Equal(t, http.StatusCreated, recorder.Code)
	}

	recorder := s.do(t, http.MethodGet, "/api/movies?sort_by=-title", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	page := decodeBody[domain.MoviesResponse](t, recorder)
	require.Len(t, page.Items, 3)
	assert.Equal(t, "Solaris", page.Items[0].Title)
	assert.Equal(t, "Nocturne", page.Items[1].Title)
	assert.Equal(t, "Alien", page.Items[2].Title)
	assert.Equal(t, 3, page.Total)
	assert.False(t, page.HasNext)

	recorder = s.do(t, http.MethodGet, "/api/movies?sort_by=yearofrelease&page=1&page_size=2", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	page = decodeBody[domain.MoviesResponse](t, recorder)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Solaris", page.Items[0].Title)
	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasNext)

	recorder = s.do(t, http.MethodGet, "/api/movies?title=noct", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	page = decodeBody[domain.MoviesResponse](t, recorder)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Nocturne", page.Items[0].Title)

	recorder = s.do(t, http.MethodGet, "/api/movies?year=1979", "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	page = decodeBody[domain.MoviesResponse](t, recorder)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Alien", page.Items[0].Title)
}

func TestGetMoviesRejectsBadQueryParameters(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{
		"/api/movies?year=soon",
		"/api/movies?page=one",
		"/api/movies?page_size=all",
		"/api/movies?sort_by=slug",
		"/api/movies?page_size=100",
		"/api/movies?page=0",
	} {
		recorder := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusBadRequest, recorder.Code, path)
	}
}

func TestUpdateMovie(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	created := decodeBody[domain.Movie](t, s.do(t, http.MethodPost, "/api/movies", token, createMovieBody("Nocturne", 2019, "Drama")))

	recorder := s.do(t, http.MethodPut, "/api/movies/"+created.ID, token, createMovieBody("Nocturne", 2020, "Drama", "Thriller"))
	require.Equal(t, http.StatusOK, recorder.Code)

	updated := decodeBody[domain.Movie](t, recorder)
	assert.Equal(t, 2020, updated.YearOfRelease)
	assert.Equal(t, "nocturne-2020", updated.Slug)
	assert.Equal(t, []string{"Drama", "Thriller"}, []string(updated.Genres))
}

func TestUpdateMovieInvalidID(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	recorder := s.do(t, http.MethodPut, "/api/movies/not-a-uuid", token, createMovieBody("Nocturne", 2019, "Drama"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestUpdateMovieNotFound(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, true)

	recorder := s.do(t, http.MethodPut, "/api/movies/"+uuid.NewString(), token, createMovieBody("Nocturne", 2019, "Drama"))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestDeleteMovieRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	trusted := s.tokenFor(t, "user-1", false, true)
	admin := s.tokenFor(t, "admin-1", true, false)

	created := decodeBody[domain.Movie](t, s.do(t, http.MethodPost, "/api/movies", trusted, createMovieBody("Nocturne", 2019, "Drama")))

	recorder := s.do(t, http.MethodDelete, "/api/movies/"+created.ID, trusted, nil)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder = s.do(t, http.MethodDelete, "/api/movies/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = s.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRatingFlow(t *testing.T) {
	s := newTestServer(t)
	trusted := s.tokenFor(t, "user-1", false, true)
	raterA := s.tokenFor(t, "rater-a", false, false)
	raterB := s.tokenFor(t, "rater-b", false, false)

	created := decodeBody[domain.Movie](t, s.do(t, http.MethodPost, "/api/movies", trusted, createMovieBody("Nocturne", 2019, "Drama")))

	recorder := s.do(t, http.MethodPut, "/api/movies/"+created.ID+"/ratings", raterA, map[string]any{"rating": 4})
	require.Equal(t, http.StatusOK, recorder.Code)
	recorder = s.do(t, http.MethodPut, "/api/movies/"+created.ID+"/ratings", raterB, map[string]any{"rating": 2})
	require.Equal(t, http.StatusOK, recorder.Code)

	// The rater sees both the aggregate and their own score.
	recorder = s.do(t, http.MethodGet, "/api/movies/"+created.ID, raterA, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	movie := decodeBody[domain.Movie](t, recorder)
	require.NotNil(t, movie.Rating)
	assert.Equal(t, 3.0, *movie.Rating)
	require.NotNil(t, movie.UserRating)
	assert.Equal(t, 4, *movie.UserRating)

	// Anonymous viewers see the aggregate only.
	recorder = s.do(t, http.MethodGet, "/api/movies/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	movie = decodeBody[domain.Movie](t, recorder)
	require.NotNil(t, movie.Rating)
	assert.Equal(t, 3.0, *movie.Rating)
	assert.Nil(t, movie.UserRating)

	recorder = s.do(t, http.MethodGet, "/api/ratings/me", raterA, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	ratings := decodeBody[[]domain.MovieRating](t, recorder)
	require.Len(t, ratings, 1)
	assert.Equal(t, domain.MovieRating{MovieID: created.ID, Slug: "nocturne-2019", Rating: 4}, ratings[0])

	recorder = s.do(t, http.MethodDelete, "/api/movies/"+created.ID+"/ratings", raterA, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = s.do(t, http.MethodDelete, "/api/movies/"+created.ID+"/ratings", raterA, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRateMovieOutOfBounds(t *testing.T) {
	s := newTestServer(t)
	trusted := s.tokenFor(t, "user-1", false, true)

	created := decodeBody[domain.Movie](t, s.do(t, http.MethodPost, "/api/movies", trusted, createMovieBody("Nocturne", 2019, "Drama")))

	recorder := s.do(t, http.MethodPut, "/api/movies/"+created.ID+"/ratings", trusted, map[string]any{"rating": 6})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRateMissingMovie(t *testing.T) {
	s := newTestServer(t)
	token := s.tokenFor(t, "user-1", false, false)

	recorder := s.do(t, http.MethodPut, "/api/movies/"+uuid.NewString()+"/ratings", token, map[string]any{"rating": 3})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestRatingsEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()

	recorder := s.do(t, http.MethodPut, "/api/movies/"+id+"/ratings", "", map[string]any{"rating": 3})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = s.do(t, http.MethodDelete, "/api/movies/"+id+"/ratings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = s.do(t, http.MethodGet, "/api/ratings/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestMalformedTokenRejected(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodGet, "/api/ratings/me", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestRegisterLoginAndUseToken(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodPost, "/api/identity/register", "", map[string]any{
		"email":    "nick@test.com",
		"password": "s3cret-password",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)
	registered := decodeBody[domain.User](t, recorder)
	assert.NotEmpty(t, registered.ID)
	assert.NotContains(t, recorder.Body.String(), "password")

	recorder = s.do(t, http.MethodPost, "/api/identity/login", "", map[string]any{
		"email":    "nick@test.com",
		"password": "s3cret-password",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	tokenResponse := decodeBody[domain.TokenResponse](t, recorder)
	require.NotEmpty(t, tokenResponse.Token)

	// The issued token authenticates but carries no elevated claims.
	recorder = s.do(t, http.MethodGet, "/api/ratings/me", tokenResponse.Token, nil)
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = s.do(t, http.MethodPost, "/api/movies", tokenResponse.Token, createMovieBody("Nocturne", 2019, "Drama"))
	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{"email": "nick@test.com", "password": "s3cret-password"}

	recorder := s.do(t, http.MethodPost, "/api/identity/register", "", body)
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = s.do(t, http.MethodPost, "/api/identity/register", "", body)
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodPost, "/api/identity/register", "", map[string]any{
		"email":    "nick@test.com",
		"password": "s3cret-password",
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder = s.do(t, http.MethodPost, "/api/identity/login", "", map[string]any{
		"email":    "nick@test.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = s.do(t, http.MethodPost, "/api/identity/login", "", map[string]any{
		"email":    "ghost@test.com",
		"password": "s3cret-password",
	})
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestGenerateTokenEndpoint(t *testing.T) {
	s := newTestServer(t)
	userID := uuid.NewString()

	recorder := s.do(t, http.MethodPost, "/api/identity/token", "", map[string]any{
		"user_id": userID,
		"email":   "nick@test.com",
		"custom_claims": map[string]any{
			auth.ClaimAdmin: true,
			"department":    "qa",
		},
	})
	require.Equal(t, http.StatusOK, recorder.Code)

	tokenResponse := decodeBody[domain.TokenResponse](t, recorder)
	claims, err := s.tokens.Validate(tokenResponse.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "nick@test.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.False(t, claims.IsTrustedMember)
}

func TestGenerateTokenValidatesRequest(t *testing.T) {
	s := newTestServer(t)

	recorder := s.do(t, http.MethodPost, "/api/identity/token", "", map[string]any{
		"user_id": "not-a-uuid",
		"email":   "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestOptionalAuthIgnoresInvalidToken(t *testing.T) {
	s := newTestServer(t)
	trusted := s.tokenFor(t, "user-1", false, true)

	created := decodeBody[domain.Movie](t, s.do(t, http.MethodPost, "/api/movies", trusted, createMovieBody("Nocturne", 2019, "Drama")))

	// Reads stay public even with a garbage token.
	recorder := s.do(t, http.MethodGet, "/api/movies/"+created.ID, "garbage", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
}
