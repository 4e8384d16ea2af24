package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"planta-mantenimiento/client/internal/auth/domain"
)

// sessionRecord is the on-disk encoding of a session. ExpiresAt is
// milliseconds since epoch to match the wire format of the backend.
type sessionRecord struct {
	Token        string     `json:"token"`
	RefreshToken *string    `json:"refreshToken"`
	ExpiresAt    *int64     `json:"expiresAt"`
	User         userRecord `json:"user"`
}

type userRecord struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Areas    []int  `json:"areas,omitempty"`
	Equipos  []int  `json:"equipos,omitempty"`
}

// FileRepository persists the session as one JSON file. It exclusively owns
// the file: no other component reads or writes it.
type FileRepository struct {
	path   string
	logger zerolog.Logger
}

// NewFileRepository returns a FileRepository storing the session at path.
func NewFileRepository(path string, logger zerolog.Logger) *FileRepository {
	return &FileRepository{path: path, logger: logger}
}

// Load reads and validates the persisted session. A missing file means no
// session. A file that cannot be parsed or fails structural validation is
// corrupted: Load deletes it and reports no session rather than surfacing a
// parse error.
func (r *FileRepository) Load() (*domain.Session, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return r.heal("undecodable session record"), nil
	}
	s := rec.toSession()
	if err := s.Validate(); err != nil {
		return r.heal(err.Error()), nil
	}
	return s, nil
}

// Save writes the full serialized session in a single atomic replace, or
// deletes the record when session is nil.
func (r *FileRepository) Save(session *domain.Session) error {
	if session == nil {
		if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete session file: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(toRecord(session))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (r *FileRepository) heal(reason string) *domain.Session {
	r.logger.Warn().Str("reason", reason).Msg("discarding corrupted session record")
	_ = os.Remove(r.path)
	return nil
}

func toRecord(s *domain.Session) sessionRecord {
	rec := sessionRecord{
		Token: s.Token,
		User: userRecord{
			Username: s.User.Username,
			Role:     string(s.User.Role),
			Areas:    s.User.Areas,
			Equipos:  s.User.Equipos,
		},
	}
	if s.RefreshToken != "" {
		rt := s.RefreshToken
		rec.RefreshToken = &rt
	}
	if s.ExpiresAt != nil {
		ms := s.ExpiresAt.UnixMilli()
		rec.ExpiresAt = &ms
	}
	return rec
}

func (rec *sessionRecord) toSession() *domain.Session {
	s := &domain.Session{
		Token: rec.Token,
		User: domain.User{
			Username: rec.User.Username,
			Role:     domain.Role(rec.User.Role),
			Areas:    rec.User.Areas,
			Equipos:  rec.User.Equipos,
		},
	}
	if rec.RefreshToken != nil {
		s.RefreshToken = *rec.RefreshToken
	}
	if rec.ExpiresAt != nil {
		exp := time.UnixMilli(*rec.ExpiresAt)
		s.ExpiresAt = &exp
	}
	return s
}
