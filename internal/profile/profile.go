// Package profile reads and edits user profiles and resolves chat
// participants.
package profile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/chat"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrNameRequired   = errors.New("name is required")
	ErrAvatarType     = errors.New("avatar must be jpg, jpeg, png or webp")
	ErrAvatarTooLarge = errors.New("avatar is too large")
)

const (
	profilesTable = "profiles"
	avatarBucket  = "avatars"
)

var avatarExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type Service struct {
	client        backend.Client
	maxAvatarSize int64
	log           *zap.Logger
}

func NewService(client backend.Client, maxAvatarSize int64, logger *zap.Logger) *Service {
	return &Service{client: client, maxAvatarSize: maxAvatarSize, log: logger}
}

func (s *Service) Get(ctx context.Context, userID string) (models.Profile, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return models.Profile{}, ErrNotFound
	}
	var rows []models.Profile
	if err := s.client.QueryRows(ctx, profilesTable, backend.Query{Filters: backend.Filters{"id": id}, Limit: 1}, &rows); err != nil {
		return models.Profile{}, err
	}
	if len(rows) == 0 {
		return models.Profile{}, ErrNotFound
	}
	return rows[0], nil
}

// Update carries the editable fields. Nil fields are left alone.
type Update struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
	Craft    *string `json:"craft"`
}

func (s *Service) Update(ctx context.Context, userID string, u Update) (models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}

	changes := map[string]any{}
	set := func(col string, v *string, dst *string) {
		if v == nil {
			return
		}
		*dst = strings.TrimSpace(*v)
		changes[col] = *dst
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return models.Profile{}, ErrNameRequired
	}
	set("name", u.Name, &p.Name)
	set("phone", u.Phone, &p.Phone)
	set("bio", u.Bio, &p.Bio)
	set("location", u.Location, &p.Location)
	set("craft", u.Craft, &p.Craft)
	if len(changes) == 0 {
		return p, nil
	}

	p.UpdatedAt = time.Now()
	changes["updated_at"] = p.UpdatedAt
	if _, err := s.client.UpdateRow(ctx, profilesTable, backend.Filters{"id": p.ID}, changes); err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// UploadAvatar stores the image in the avatars bucket and points the
// profile at it.
func (s *Service) UploadAvatar(ctx context.Context, userID, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !avatarExts[ext] {
		return "", ErrAvatarType
	}
	if int64(len(data)) > s.maxAvatarSize {
		return "", ErrAvatarTooLarge
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("%s/avatar_%d%s", p.ID, time.Now().UnixNano(), ext)
	url, err := s.client.UploadObject(ctx, avatarBucket, path, data)
	if err != nil {
		return "", err
	}
	if _, err := s.client.UpdateRow(ctx, profilesTable, backend.Filters{"id": p.ID}, map[string]any{
		"avatar_url": url,
		"updated_at": time.Now(),
	}); err != nil {
		return "", err
	}
	s.log.Info("avatar updated", zap.String("user", userID))
	return url, nil
}

func participantOf(p models.Profile) chat.Participant {
	return chat.Participant{ID: p.ID.String(), Name: p.DisplayName(), Role: string(p.Role), AvatarURL: p.AvatarURL}
}

// Participant resolves a chat counterpart. Unknown or inactive users map to
// chat.ErrUnknownUser.
func (s *Service) Participant(ctx context.Context, id string) (chat.Participant, error) {
	p, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) || (err == nil && !p.IsActive) {
		return chat.Participant{}, chat.ErrUnknownUser
	}
	if err != nil {
		return chat.Participant{}, err
	}
	return participantOf(p), nil
}

// ByRole lists active users of a role, by name.
func (s *Service) ByRole(ctx context.Context, role string) ([]chat.Participant, error) {
	var rows []models.Profile
	q := backend.Query{Filters: backend.Filters{"role": role, "is_active": true}, Order: "name asc"}
	if err := s.client.QueryRows(ctx, profilesTable, q, &rows); err != nil {
		return nil, err
	}
	out := make([]chat.Participant, 0, len(rows))
	for _, p := range rows {
		out = append(out, participantOf(p))
	}
	return out, nil
}
