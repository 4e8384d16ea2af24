package repository

import (
	"planta-mantenimiento/client/internal/auth/domain"
)

// Repository defines durable persistence for the single authoritative
// session. Save(nil) records absence by deleting the stored record.
type Repository interface {
	// Load reads the persisted session. Returns (nil, nil) when no session
	// is stored. A structurally invalid record is treated as corrupted:
	// it is deleted and (nil, nil) is returned. Load performs no
	// expiration check.
	Load() (*domain.Session, error)
	// Save atomically replaces the persisted session, or deletes it when
	// session is nil. Deleting an absent record is not an error.
	Save(session *domain.Session) error
}
