package user

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/wichananm65/fullstack-starter/internal/mail"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Service struct {
	repo     Repository
	mailer   mail.Mailer
	log      logrus.FieldLogger
	appName  string
	loginURL string
	cost     int
	now      func() time.Time
}

type Option func(*Service)

// WithLoginURL adds a sign-in link to welcome emails.
func WithLoginURL(url string) Option {
	return func(s *Service) { s.loginURL = url }
}

// NewService builds the user service. A nil mailer disables welcome emails.
func NewService(repo Repository, mailer mail.Mailer, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		mailer:  mailer,
		log:     log,
		appName: "Fullstack Starter",
		cost:    bcrypt.DefaultCost,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ProfileUpdate carries the fields a user may change on their own account.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Password  *string
}

// AdminUpdate carries the fields an admin may change on any account.
type AdminUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Role      *Role
	Active    *bool
}

type Page struct {
	Users []User
	Total int
	Page  int
	Limit int
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrEmailExists
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hashed,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      RoleUser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return User{}, err
	}

	s.sendWelcome(ctx, created)
	return created, nil
}

// sendWelcome never fails the registration; delivery problems are logged.
func (s *Service) sendWelcome(ctx context.Context, u User) {
	if s.mailer == nil {
		return
	}
	msg, err := mail.Welcome(mail.WelcomeData{
		AppName:  s.appName,
		Name:     u.FullName(),
		Email:    u.Email,
		LoginURL: s.loginURL,
	})
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("welcome email not delivered")
	}
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	if !user.Active {
		return User{}, ErrInactive
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List returns one page of users. page is 1-based; limit is clamped to
// [1, MaxPageSize] with DefaultPageSize for non-positive values.
func (s *Service) List(ctx context.Context, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return Page{}, err
	}
	// pages past what an int offset can address are necessarily empty
	if page-1 > math.MaxInt/limit {
		return Page{Users: []User{}, Total: total, Page: page, Limit: limit}, nil
	}
	users, err := s.repo.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return Page{}, err
	}
	return Page{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	setName(&user.FirstName, in.FirstName)
	setName(&user.LastName, in.LastName)
	if in.Password != nil && *in.Password != "" {
		hashed, err := s.hash(*in.Password)
		if err != nil {
			return User{}, err
		}
		user.Password = hashed
	}

	user.UpdatedAt = s.now()
	return s.repo.Update(ctx, user)
}

func (s *Service) AdminUpdate(ctx context.Context, id string, in AdminUpdate) (User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != "" && email != user.Email {
			if _, err := s.repo.GetByEmail(ctx, email); err == nil {
				return User{}, ErrEmailExists
			} else if !errors.Is(err, ErrNotFound) {
				return User{}, err
			}
			user.Email = email
		}
	}
	setName(&user.FirstName, in.FirstName)
	setName(&user.LastName, in.LastName)
	if in.Role != nil && in.Role.Valid() {
		user.Role = *in.Role
	}
	if in.Active != nil {
		user.Active = *in.Active
	}

	user.UpdatedAt = s.now()
	return s.repo.Update(ctx, user)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

// EnsureAdmin creates the admin account when missing, or promotes an
// existing account with that email. It does not touch an existing password.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == RoleAdmin && existing.Active {
			return existing, nil
		}
		existing.Role = RoleAdmin
		existing.Active = true
		existing.UpdatedAt = s.now()
		return s.repo.Update(ctx, existing)
	case !errors.Is(err, ErrNotFound):
		return User{}, err
	}

	hashed, err := s.hash(password)
	if err != nil {
		return User{}, err
	}
	now := s.now()
	return s.repo.Create(ctx, User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hashed,
		FirstName: "Admin",
		Role:      RoleAdmin,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// setName applies a non-blank replacement.
func setName(dst *string, v *string) {
	if v == nil {
		return
	}
	if trimmed := strings.TrimSpace(*v); trimmed != "" {
		*dst = trimmed
	}
}

func (s *Service) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
