// Package auth registers and signs in marketplace users.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/backend"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/models"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/utils"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrPhoneTaken         = errors.New("phone is already registered")
	ErrInvalidCredentials = errors.New("wrong email or password")
	ErrInactive           = errors.New("account is not active")
	ErrInvalidInput       = errors.New("registration data is invalid")
)

const profilesTable = "profiles"

type Service struct {
	client backend.Client
	log    *zap.Logger
}

func NewService(client backend.Client, logger *zap.Logger) *Service {
	return &Service{client: client, log: logger}
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"` // customer / weaver; admin never from the public form
}

func (in RegisterInput) normalized() RegisterInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Password = strings.TrimSpace(in.Password)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = string(models.RoleCustomer)
	}
	return in
}

// Problems lists field validation failures, keyed by json field name.
func (in RegisterInput) Problems() map[string][]string {
	in = in.normalized()
	out := map[string][]string{}
	add := func(f, msg string) { out[f] = append(out[f], msg) }

	if in.Name == "" {
		add("name", "Name is required")
	}
	if in.Email == "" {
		add("email", "Email is required")
	} else if !strings.Contains(in.Email, "@") {
		add("email", "Email format is invalid")
	}
	if in.Password == "" {
		add("password", "Password is required")
	} else if len(in.Password) < 6 {
		add("password", "Password must be at least 6 characters")
	}
	if in.Phone != "" && len(in.Phone) < 8 {
		add("phone", "Phone number is invalid")
	}
	if in.Role != string(models.RoleCustomer) && in.Role != string(models.RoleWeaver) {
		add("role", "Role must be customer or weaver")
	}
	return out
}

func (s *Service) findBy(ctx context.Context, col, val string) (models.Profile, bool, error) {
	var rows []models.Profile
	if err := s.client.QueryRows(ctx, profilesTable, backend.Query{Filters: backend.Filters{col: val}, Limit: 1}, &rows); err != nil {
		return models.Profile{}, false, err
	}
	if len(rows) == 0 {
		return models.Profile{}, false, nil
	}
	return rows[0], true, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (models.Profile, error) {
	if len(in.Problems()) > 0 {
		return models.Profile{}, ErrInvalidInput
	}
	in = in.normalized()

	if _, found, err := s.findBy(ctx, "email", in.Email); err != nil {
		return models.Profile{}, err
	} else if found {
		return models.Profile{}, ErrEmailTaken
	}
	if in.Phone != "" {
		if _, found, err := s.findBy(ctx, "phone", in.Phone); err != nil {
			return models.Profile{}, err
		} else if found {
			return models.Profile{}, ErrPhoneTaken
		}
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return models.Profile{}, err
	}
	p := models.Profile{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Password: hash,
		Role:     models.Role(in.Role),
		IsActive: true,
	}
	if err := s.client.InsertRow(ctx, profilesTable, &p); err != nil {
		return models.Profile{}, err
	}
	s.log.Info("user registered", zap.String("user", p.ID.String()), zap.String("role", in.Role))
	return p, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	p, found, err := s.findBy(ctx, "email", email)
	if err != nil {
		return models.Profile{}, err
	}
	if !found || !utils.CheckPassword(p.Password, strings.TrimSpace(password)) {
		return models.Profile{}, ErrInvalidCredentials
	}
	if !p.IsActive {
		return models.Profile{}, ErrInactive
	}
	return p, nil
}

// GoogleUser finds the profile for a Google account, creating a customer
// on first sign in.
func (s *Service) GoogleUser(ctx context.Context, email, name, picture string) (models.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" {
		return models.Profile{}, ErrInvalidInput
	}

	p, found, err := s.findBy(ctx, "email", email)
	if err != nil {
		return models.Profile{}, err
	}
	if found {
		if !p.IsActive {
			return models.Profile{}, ErrInactive
		}
		changes := map[string]any{}
		if name != "" && p.Name != name {
			p.Name = name
			changes["name"] = name
		}
		if p.AvatarURL == "" && picture != "" {
			p.AvatarURL = picture
			changes["avatar_url"] = picture
		}
		if len(changes) > 0 {
			changes["updated_at"] = time.Now()
			if _, err := s.client.UpdateRow(ctx, profilesTable, backend.Filters{"id": p.ID}, changes); err != nil {
				s.log.Warn("refresh google profile", zap.String("user", p.ID.String()), zap.Error(err))
			}
		}
		return p, nil
	}

	// password login stays impossible until the user sets one
	hash, err := utils.HashPassword(randomSecret(24))
	if err != nil {
		return models.Profile{}, err
	}
	p = models.Profile{
		Name:      name,
		Email:     email,
		Password:  hash,
		Role:      models.RoleCustomer,
		IsActive:  true,
		AvatarURL: picture,
	}
	if err := s.client.InsertRow(ctx, profilesTable, &p); err != nil {
		return models.Profile{}, err
	}
	s.log.Info("user registered via google", zap.String("user", p.ID.String()))
	return p, nil
}

func randomSecret(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
