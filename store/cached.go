package store

import (
	"context"

	"go.uber.org/zap"

	"cinebook-cli/booking"
	"cinebook-cli/model"
)

// CachedCatalog wraps a backend client with the on-disk catalog cache.
// Only the slow-moving lists (cinemas, films) are served cache-first;
// every other call passes straight through.
type CachedCatalog struct {
	booking.API
	log *zap.Logger
}

func NewCachedCatalog(api booking.API, log *zap.Logger) *CachedCatalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedCatalog{API: api, log: log}
}

func (c *CachedCatalog) ListCinemas(ctx context.Context) ([]model.Cinema, error) {
	cached, fresh, err := LoadCinemaCache()
	if err != nil {
		c.log.Warn("cinema cache read failed", zap.Error(err))
	}
	if fresh && len(cached) > 0 {
		return cached, nil
	}

	cinemas, err := c.API.ListCinemas(ctx)
	if err != nil {
		// stale beats nothing when the backend is down
		if len(cached) > 0 {
			c.log.Warn("serving stale cinema cache", zap.Error(err))
			return cached, nil
		}
		return nil, err
	}

	if err := SaveCinemaCache(cinemas); err != nil {
		c.log.Warn("cinema cache write failed", zap.Error(err))
	}
	return cinemas, nil
}

func (c *CachedCatalog) ListFilms(ctx context.Context, cinemaID string) ([]model.Film, error) {
	cached, fresh, err := LoadFilmCache(cinemaID)
	if err != nil {
		c.log.Warn("film cache read failed", zap.String("cinema", cinemaID), zap.Error(err))
	}
	if fresh && len(cached) > 0 {
		return cached, nil
	}

	films, err := c.API.ListFilms(ctx, cinemaID)
	if err != nil {
		if len(cached) > 0 {
			c.log.Warn("serving stale film cache", zap.String("cinema", cinemaID), zap.Error(err))
			return cached, nil
		}
		return nil, err
	}

	if err := SaveFilmCache(cinemaID, films); err != nil {
		c.log.Warn("film cache write failed", zap.String("cinema", cinemaID), zap.Error(err))
	}
	return films, nil
}
