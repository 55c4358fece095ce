package services

import (
	_ "embed"
	"fmt"
	"os"
	"stroll-lab/domain"
	"stroll-lab/errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
)

//go:embed seed/users.toml
var embeddedSeed []byte

var validate = validator.New()

type seedFile struct {
	Users []seedUser `toml:"users" validate:"dive"`
}

type seedUser struct {
	ID           string `toml:"id" validate:"omitempty,uuid"`
	Name         string `toml:"name" validate:"required"`
	Age          int    `toml:"age" validate:"gte=18"`
	ProfileImage string `toml:"profile_image"`
	Bio          string `toml:"bio"`
	Online       bool   `toml:"online"`
	LastSeenAgo  string `toml:"last_seen_ago"`
}

// LoadSeed reads the roster from path, or from the embedded roster when path is empty.
func LoadSeed(path string, now time.Time) ([]domain.User, error) {
	data := embeddedSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read seed %s: %w", path, err)
		}
	}
	return ParseSeed(data, now)
}

// ParseSeed decodes a TOML roster. Users without an id get a random one.
func ParseSeed(data []byte, now time.Time) ([]domain.User, error) {
	var file seedFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDecoding, err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrDecoding, err)
	}

	users := make([]domain.User, 0, len(file.Users))
	for _, s := range file.Users {
		user, err := s.toUser(now)
		if err != nil {
			return nil, fmt.Errorf("%w: user %s: %v", errors.ErrDecoding, s.Name, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s seedUser) toUser(now time.Time) (domain.User, error) {
	id := uuid.New()
	if s.ID != "" {
		parsed, err := uuid.Parse(s.ID)
		if err != nil {
			return domain.User{}, err
		}
		id = parsed
	}
	var ago time.Duration
	if s.LastSeenAgo != "" {
		parsed, err := time.ParseDuration(s.LastSeenAgo)
		if err != nil {
			return domain.User{}, err
		}
		ago = parsed
	}
	return domain.User{
		ID:           id,
		Name:         s.Name,
		Age:          s.Age,
		ProfileImage: s.ProfileImage,
		Bio:          s.Bio,
		Online:       s.Online,
		LastSeen:     now.Add(-ago),
	}, nil
}
