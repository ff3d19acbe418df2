package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cinebook-cli/model"
)

const (
	cinemaCacheTTL   = 7 * 24 * time.Hour
	filmCacheTTL     = 12 * time.Hour
	maxRecentCinemas = 8
)

// Static catalog data (cinemas, films) is cached on disk; anything whose
// freshness matters (seat maps, orders, vouchers, quotes) is always
// fetched live and never lands here.
type cacheEnvelope[T any] struct {
	UpdatedAt time.Time `json:"updated_at"`
	Data      T         `json:"data"`
}

type RecentCinema struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

type cinemaHistory struct {
	Cinemas []RecentCinema `json:"cinemas"`
}

func LoadCinemaCache() ([]model.Cinema, bool, error) {
	path, err := cachePath("cinemas.json")
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Cinema](path)
	if err != nil {
		return nil, false, err
	}
	return cache.Data, time.Since(cache.UpdatedAt) <= cinemaCacheTTL, nil
}

func SaveCinemaCache(cinemas []model.Cinema) error {
	path, err := cachePath("cinemas.json")
	if err != nil {
		return err
	}
	return saveCache(path, cinemas)
}

func LoadFilmCache(cinemaID string) ([]model.Film, bool, error) {
	path, err := cachePath(fmt.Sprintf("films_%s.json", cinemaID))
	if err != nil {
		return nil, false, err
	}
	cache, err := loadCache[[]model.Film](path)
	if err != nil {
		return nil, false, err
	}
	return cache.Data, time.Since(cache.UpdatedAt) <= filmCacheTTL, nil
}

func SaveFilmCache(cinemaID string, films []model.Film) error {
	path, err := cachePath(fmt.Sprintf("films_%s.json", cinemaID))
	if err != nil {
		return err
	}
	return saveCache(path, films)
}

func LoadRecentCinemas() ([]RecentCinema, error) {
	path, err := configPath("history.json")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var history cinemaHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, errors.New("invalid cinema history format")
	}
	return history.Cinemas, nil
}

// RememberCinema moves the cinema to the front of the history, dropping
// duplicates and anything past the cap.
func RememberCinema(cinema model.Cinema) error {
	history, _ := LoadRecentCinemas()
	next := []RecentCinema{{ID: cinema.Id, Name: cinema.Name, City: cinema.City}}

	for _, existing := range history {
		if existing.ID == cinema.Id && existing.ID != "" {
			continue
		}
		next = append(next, existing)
		if len(next) >= maxRecentCinemas {
			break
		}
	}

	return saveRecentCinemas(next)
}

func loadCache[T any](path string) (cacheEnvelope[T], error) {
	var cache cacheEnvelope[T]
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cache, nil
		}
		return cache, err
	}
	if err := json.Unmarshal(data, &cache); err != nil {
		return cache, err
	}
	return cache, nil
}

func saveCache[T any](path string, data T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	cache := cacheEnvelope[T]{
		UpdatedAt: time.Now(),
		Data:      data,
	}
	payload, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func saveRecentCinemas(cinemas []RecentCinema) error {
	path, err := configPath("history.json")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	history := cinemaHistory{Cinemas: cinemas}
	payload, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func configPath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cinebook-cli", name), nil
}

func cachePath(name string) (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cinebook-cli", name), nil
}
