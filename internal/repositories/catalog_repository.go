package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"watch-party-service/internal/models"
)

// CatalogRepository is the narrow contract to the content catalog: resolve a
// playable episode for a movie and fetch display metadata.
type CatalogRepository interface {
	ResolveDefaultEpisode(ctx context.Context, movieID int) (int, error)
	GetMovie(ctx context.Context, movieID int) (models.Movie, error)
	GetEpisode(ctx context.Context, episodeID int) (models.Episode, error)
}

// CatalogRepo is a sqlx implementation of CatalogRepository.
type CatalogRepo struct {
	db *sqlx.DB
}

// NewCatalogRepo constructs a CatalogRepo.
func NewCatalogRepo(db *sqlx.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

// ResolveDefaultEpisode returns the movie's first season's first episode.
func (r *CatalogRepo) ResolveDefaultEpisode(ctx context.Context, movieID int) (int, error) {
	var episodeID int
	err := r.db.GetContext(ctx, &episodeID,
		`SELECT e.id FROM episodes e
         INNER JOIN seasons s ON s.id = e.season_id
         WHERE s.movie_id=$1
         ORDER BY s.season_number ASC, e.episode_number ASC
         LIMIT 1`, movieID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMovieSourceNotFound
	}
	return episodeID, err
}

// GetMovie fetches a catalog movie.
func (r *CatalogRepo) GetMovie(ctx context.Context, movieID int) (models.Movie, error) {
	var movie models.Movie
	err := r.db.GetContext(ctx, &movie,
		`SELECT id, title, media_type, poster_url, backdrop_url FROM movies WHERE id=$1`, movieID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Movie{}, ErrMovieSourceNotFound
	}
	return movie, err
}

// GetEpisode fetches an episode with its season number.
func (r *CatalogRepo) GetEpisode(ctx context.Context, episodeID int) (models.Episode, error) {
	var episode models.Episode
	err := r.db.GetContext(ctx, &episode,
		`SELECT e.id, e.season_id, e.episode_number, e.title, e.video_url, s.season_number
         FROM episodes e
         INNER JOIN seasons s ON s.id = e.season_id
         WHERE e.id=$1`, episodeID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Episode{}, ErrMovieSourceNotFound
	}
	return episode, err
}
