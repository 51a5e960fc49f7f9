package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"movie-catalog/internal/domain"
)

// sortColumns maps validated sort fields to the columns they resolve to.
// Sort input never reaches the query as free text: anything not in this
// table is rejected.
var sortColumns = map[string]string{
	"title":         "m.title",
	"yearofrelease": "m.yearofrelease",
}

// PostgresMovieStore implements MovieStore on PostgreSQL.
type PostgresMovieStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresMovieStore creates a new PostgresMovieStore.
func NewPostgresMovieStore(db *sqlx.DB, logger *slog.Logger) (*PostgresMovieStore, error) {
	if db == nil {
		return nil, errors.New("database connection (db) cannot be nil")
	}
	return &PostgresMovieStore{db: db, logger: logger}, nil
}

// movieFilters builds the WHERE clause shared by List and Count. Keeping a
// single builder guarantees the count predicate stays structurally identical
// to the list predicate, so total counts and page contents cannot diverge.
func movieFilters(title string, yearOfRelease int, argID int) (string, []interface{}, int) {
	var conditions []string
	var args []interface{}

	if title != "" {
		conditions = append(conditions, fmt.Sprintf("m.title ILIKE $%d", argID))
		args = append(args, "%"+title+"%")
		argID++
	}
	if yearOfRelease != 0 {
		conditions = append(conditions, fmt.Sprintf("m.yearofrelease = $%d", argID))
		args = append(args, yearOfRelease)
		argID++
	}

	if len(conditions) == 0 {
		return "", nil, argID
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, argID
}

// Create inserts the movie row and its genre rows in one transaction.
func (s *PostgresMovieStore) Create(ctx context.Context, movie *domain.Movie) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin create transaction: %w", err)
	}
	defer tx.Rollback()

	s.logger.DebugContext(ctx, "Executing Create movie query", slog.String("movieID", movie.ID), slog.String("slug", movie.Slug))
	_, err = tx.ExecContext(ctx,
		`INSERT INTO movies (id, slug, title, yearofrelease) VALUES ($1, $2, $3, $4)`,
		movie.ID, movie.Slug, movie.Title, movie.YearOfRelease)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			s.logger.WarnContext(ctx, "Movie slug already exists (unique constraint violation)",
				slog.String("slug", movie.Slug), slog.String("constraint", pqErr.Constraint))
			return ErrDuplicateSlug
		}
		s.logger.ErrorContext(ctx, "Failed to create movie in DB", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create movie: %w", err)
	}

	for _, genre := range movie.Genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO genres (movieid, name) VALUES ($1, $2)`, movie.ID, genre); err != nil {
			s.logger.ErrorContext(ctx, "Failed to insert movie genre", slog.String("movieID", movie.ID), slog.String("error", err.Error()))
			return fmt.Errorf("failed to insert genre: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit create transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Movie created successfully in DB", slog.String("movieID", movie.ID))
	return nil
}

// GetByID finds a movie by its ID, joined with its aggregate rating and the
// viewer's own rating when userID is supplied.
func (s *PostgresMovieStore) GetByID(ctx context.Context, id string, userID string) (*domain.Movie, error) {
	return s.getBy(ctx, "id", id, userID)
}

// GetBySlug finds a movie by its slug.
func (s *PostgresMovieStore) GetBySlug(ctx context.Context, slug string, userID string) (*domain.Movie, error) {
	return s.getBy(ctx, "slug", slug, userID)
}

// getBy fetches a single movie by a fixed column chosen by the callers,
// never by caller input.
func (s *PostgresMovieStore) getBy(ctx context.Context, column, value, userID string) (*domain.Movie, error) {
	var query string
	var args []interface{}

	if userID != "" {
		query = fmt.Sprintf(`SELECT m.id, m.slug, m.title, m.yearofrelease,
                   ROUND(AVG(r.rating), 1)::float8 AS rating,
                   myr.rating AS userrating
            FROM movies m
            LEFT JOIN ratings r ON m.id = r.movieid
            LEFT JOIN ratings myr ON m.id = myr.movieid AND myr.userid = $2
            WHERE m.%s = $1
            GROUP BY m.id, myr.rating`, column)
		args = []interface{}{value, userID}
	} else {
		query = fmt.Sprintf(`SELECT m.id, m.slug, m.title, m.yearofrelease,
                   ROUND(AVG(r.rating), 1)::float8 AS rating,
                   NULL::int AS userrating
            FROM movies m
            LEFT JOIN ratings r ON m.id = r.movieid
            WHERE m.%s = $1
            GROUP BY m.id`, column)
		args = []interface{}{value}
	}

	var movie domain.Movie
	s.logger.DebugContext(ctx, "Executing get movie query", slog.String(column, value))
	if err := s.db.GetContext(ctx, &movie, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to get movie from DB", slog.String(column, value), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get movie by %s: %w", column, err)
	}

	var genres []string
	if err := s.db.SelectContext(ctx, &genres,
		`SELECT name FROM genres WHERE movieid = $1`, movie.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to get movie genres from DB", slog.String("movieID", movie.ID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get genres: %w", err)
	}
	movie.Genres = genres
	return &movie, nil
}

// List returns one page of movies matching the options, each enriched with
// its genre list, aggregate rating and the viewer's own rating.
func (s *PostgresMovieStore) List(ctx context.Context, opts MovieListOptions) ([]*domain.Movie, error) {
	var args []interface{}
	argID := 1

	userRating := "NULL::int AS userrating"
	viewerJoin := ""
	groupBy := " GROUP BY m.id"
	if opts.UserID != "" {
		userRating = "myr.rating AS userrating"
		viewerJoin = fmt.Sprintf(" LEFT JOIN ratings myr ON m.id = myr.movieid AND myr.userid = $%d", argID)
		groupBy = " GROUP BY m.id, myr.rating"
		args = append(args, opts.UserID)
		argID++
	}

	where, filterArgs, argID := movieFilters(opts.Title, opts.YearOfRelease, argID)
	args = append(args, filterArgs...)

	// Tie-break by id keeps the order deterministic when sort values are
	// equal, so pagination stays stable across pages.
	orderBy := " ORDER BY m.id ASC"
	if opts.SortField != "" {
		column, ok := sortColumns[opts.SortField]
		if !ok {
			return nil, fmt.Errorf("unsupported sort field %q", opts.SortField)
		}
		direction := "ASC"
		if opts.SortDirection == SortDescending {
			direction = "DESC"
		}
		orderBy = fmt.Sprintf(" ORDER BY %s %s, m.id ASC", column, direction)
	}

	query := `SELECT m.id, m.slug, m.title, m.yearofrelease,
               array_remove(array_agg(DISTINCT g.name), NULL) AS genres,
               ROUND(AVG(r.rating), 1)::float8 AS rating, ` + userRating + `
        FROM movies m
        LEFT JOIN genres g ON m.id = g.movieid
        LEFT JOIN ratings r ON m.id = r.movieid` + viewerJoin + where + groupBy + orderBy +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1)
	args = append(args, opts.PageSize, (opts.Page-1)*opts.PageSize)

	s.logger.DebugContext(ctx, "Executing List movies query", slog.String("query", query), slog.Any("args", args))
	var movies []*domain.Movie
	if err := s.db.SelectContext(ctx, &movies, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to list movies from DB", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	if movies == nil {
		movies = []*domain.Movie{}
	}
	return movies, nil
}

// Count returns the number of movies matching the same predicate List uses.
func (s *PostgresMovieStore) Count(ctx context.Context, title string, yearOfRelease int) (int, error) {
	where, args, _ := movieFilters(title, yearOfRelease, 1)
	query := `SELECT COUNT(m.id) FROM movies m` + where

	var count int
	s.logger.DebugContext(ctx, "Executing Count movies query", slog.String("query", query))
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Failed to count movies in DB", slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to count movies: %w", err)
	}
	return count, nil
}

// Update replaces the movie's scalar fields and wholesale-replaces its genre
// set inside one transaction.
func (s *PostgresMovieStore) Update(ctx context.Context, movie *domain.Movie) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin update transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM genres WHERE movieid = $1`, movie.ID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movie genres for update", slog.String("movieID", movie.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete genres: %w", err)
	}
	for _, genre := range movie.Genres {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO genres (movieid, name) VALUES ($1, $2)`, movie.ID, genre); err != nil {
			s.logger.ErrorContext(ctx, "Failed to insert movie genre for update", slog.String("movieID", movie.ID), slog.String("error", err.Error()))
			return fmt.Errorf("failed to insert genre: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE movies SET slug = $1, title = $2, yearofrelease = $3 WHERE id = $4`,
		movie.Slug, movie.Title, movie.YearOfRelease, movie.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			s.logger.WarnContext(ctx, "Movie slug already exists (unique constraint violation)",
				slog.String("slug", movie.Slug), slog.String("constraint", pqErr.Constraint))
			return ErrDuplicateSlug
		}
		s.logger.ErrorContext(ctx, "Failed to update movie in DB", slog.String("movieID", movie.ID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to update movie: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return ErrMovieNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Movie updated successfully in DB", slog.String("movieID", movie.ID))
	return nil
}

// Delete removes rating rows, genre rows, then the movie row, as one
// transaction.
func (s *PostgresMovieStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE movieid = $1`, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movie ratings", slog.String("movieID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete ratings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM genres WHERE movieid = $1`, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movie genres", slog.String("movieID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete genres: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete movie from DB", slog.String("movieID", id), slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete movie: %w", err)
	}
	if rowsAffected, _ := result.RowsAffected(); rowsAffected == 0 {
		return ErrMovieNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Movie deleted successfully from DB", slog.String("movieID", id))
	return nil
}

// ExistsByID reports whether a movie row exists.
func (s *PostgresMovieStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM movies WHERE id = $1)`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to check movie existence in DB", slog.String("movieID", id), slog.String("error", err.Error()))
		return false, fmt.Errorf("failed to check movie existence: %w", err)
	}
	return exists, nil
}
