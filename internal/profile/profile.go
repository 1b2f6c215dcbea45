package profile

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"camp-companion/internal/cache"
	"camp-companion/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Manager owns the device-local profile identity. The user id is generated
// once on first run and persisted; it identifies this device's user for vote
// attribution without any account system.
type Manager struct {
	cache *cache.Cache

	mu      sync.Mutex
	profile models.Profile
}

// NewManager creates a profile manager
func NewManager(c *cache.Cache) *Manager {
	return &Manager{cache: c}
}

// Ensure loads the persisted profile or creates one with a fresh user id.
// The display name from config wins over the persisted one so a config edit
// takes effect on restart.
func (m *Manager) Ensure(name string) (models.Profile, error) {
	var p models.Profile
	err := m.cache.Get(cache.StoreProfile, &p)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		return models.Profile{}, fmt.Errorf("failed to load profile: %w", err)
	}

	if errors.Is(err, cache.ErrMiss) || p.UserID == "" {
		p = models.Profile{
			UserID:    uuid.New().String(),
			Name:      name,
			CreatedAt: time.Now(),
		}
		log.Info().Str("user_id", p.UserID).Msg("created device profile")
	} else if name != "" && name != p.Name {
		p.Name = name
	}

	if err := m.cache.Put(cache.StoreProfile, p); err != nil {
		return models.Profile{}, fmt.Errorf("failed to persist profile: %w", err)
	}

	m.mu.Lock()
	m.profile = p
	m.mu.Unlock()
	return p, nil
}

// Current returns the active profile
func (m *Manager) Current() models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// Rename updates the display name and persists it
func (m *Manager) Rename(name string) (models.Profile, error) {
	m.mu.Lock()
	m.profile.Name = name
	p := m.profile
	m.mu.Unlock()

	if err := m.cache.Put(cache.StoreProfile, p); err != nil {
		return models.Profile{}, fmt.Errorf("failed to persist profile: %w", err)
	}
	return p, nil
}
