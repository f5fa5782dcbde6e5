// Package services – IdentityService
//
// This file implements account registration, credential verification and
// profile maintenance. Passwords are hashed through a PasswordHasher; the
// role chosen at registration is never changed afterwards.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/service-connect/internal/domain"
	"github.com/tbourn/service-connect/internal/repo"
)

var (
	emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRE = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72 // bytes; bcrypt rejects longer input
	maxNameRunes   = 255
	maxBioRunes    = 2000
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
	Phone    string
	Bio      string
}

// ProfileInput carries the mutable profile fields. Empty Phone/Bio clear them.
type ProfileInput struct {
	Name  string
	Phone string
	Bio   string
}

// IdentityService owns user accounts.
type IdentityService struct {
	DB     *gorm.DB
	Hasher PasswordHasher
	Now    func() time.Time
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(db *gorm.DB, h PasswordHasher) *IdentityService {
	return &IdentityService{DB: db, Hasher: h, Now: time.Now}
}

func (s *IdentityService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Register validates in and creates a client or technician account. A
// second registration with an existing email fails with a validation error
// wrapping ErrEmailTaken and leaves the first account untouched.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := repo.NormalizeEmail(in.Email)
	if !emailRE.MatchString(email) {
		return nil, validationErr("invalid email address", nil)
	}
	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return nil, validationErr("password must be at least 6 characters", nil)
	}
	if len(in.Password) > maxPasswordLen {
		return nil, validationErr("password must be at most 72 bytes", nil)
	}
	name := normalizeName(in.Name)
	if name == "" {
		return nil, validationErr("name is required", nil)
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return nil, validationErr("name is too long", nil)
	}
	if in.Role != domain.RoleClient && in.Role != domain.RoleTechnician {
		return nil, validationErr("role must be client or technician", nil)
	}
	phone, err := optionalPhone(in.Phone)
	if err != nil {
		return nil, err
	}
	bio, err := optionalBio(in.Bio)
	if err != nil {
		return nil, err
	}

	exists, err := repo.EmailExists(ctx, s.DB, email)
	if err != nil {
		return nil, storageErr("identity.register.exists", err)
	}
	if exists {
		return nil, validationErr("email already registered", ErrEmailTaken)
	}

	hash, err := s.hash("identity.register.hash", in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         in.Role,
		Active:       true,
		Phone:        phone,
		Bio:          bio,
	}
	if err := repo.CreateUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			return nil, validationErr("email already registered", ErrEmailTaken)
		}
		return nil, storageErr("identity.register.create", err)
	}
	return u, nil
}

// VerifyCredentials returns the active user owning email/password and
// refreshes its last-login timestamp. Unknown email, wrong password and
// inactive accounts all yield the same authorization error.
func (s *IdentityService) VerifyCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	fail := &Error{Kind: KindAuthorization, Detail: "invalid credentials", Err: ErrInvalidCredentials}

	u, err := repo.GetUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fail
	}
	if err != nil {
		return nil, storageErr("identity.verify.get", err)
	}
	if !u.Active {
		return nil, fail
	}
	if err := s.Hasher.Compare(u.PasswordHash, password); err != nil {
		return nil, fail
	}

	at := s.now().UTC()
	if err := repo.TouchLastLogin(ctx, s.DB, u.ID, at); err != nil {
		return nil, storageErr("identity.verify.touch", err)
	}
	u.LastLogin = &at
	return u, nil
}

// Profile returns the user with id userID.
func (s *IdentityService) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	u, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, notFoundErr("user not found")
	}
	if err != nil {
		return nil, storageErr("identity.profile", err)
	}
	return u, nil
}

// UpdateProfile changes name, phone and bio. Email and role are immutable.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*domain.User, error) {
	name := normalizeName(in.Name)
	if name == "" {
		return nil, validationErr("name is required", nil)
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		return nil, validationErr("name is too long", nil)
	}
	phone, err := optionalPhone(in.Phone)
	if err != nil {
		return nil, err
	}
	bio, err := optionalBio(in.Bio)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateProfile(ctx, s.DB, userID, name, phone, bio); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, notFoundErr("user not found")
		}
		return nil, storageErr("identity.update_profile", err)
	}
	return s.Profile(ctx, userID)
}

// SeedAccount is a bootstrap account created on an empty database.
type SeedAccount struct {
	Email    string
	Password string
	Name     string
	Role     domain.Role
	Bio      string
	Phone    string
}

// DemoAccounts returns the demo client and technicians.
func DemoAccounts() []SeedAccount {
	return []SeedAccount{
		{Email: "user@example.com", Password: "user123", Name: "Demo User", Role: domain.RoleClient, Bio: "Regular user account for testing"},
		{Email: "tech@example.com", Password: "tech123", Name: "Demo Tech", Role: domain.RoleTechnician, Bio: "Professional service provider"},
		{Email: "ahmed@example.com", Password: "tech123", Name: "Ahmed Hassan", Role: domain.RoleTechnician, Bio: "Professional plumber with 10 years experience", Phone: "+201234567890"},
		{Email: "mohamed@example.com", Password: "tech123", Name: "Mohamed Ali", Role: domain.RoleTechnician, Bio: "Electrical engineer specialist", Phone: "+201234567891"},
		{Email: "sara@example.com", Password: "tech123", Name: "Sara Mahmoud", Role: domain.RoleTechnician, Bio: "Cleaning service expert", Phone: "+201234567892"},
	}
}

// SeedAccounts hashes and inserts every account whose email is free. Admin
// accounts can only come into existence this way.
func (s *IdentityService) SeedAccounts(ctx context.Context, accounts []SeedAccount) (int, error) {
	users := make([]domain.User, 0, len(accounts))
	for _, a := range accounts {
		if !a.Role.Valid() {
			return 0, validationErr("seed account has unknown role", nil)
		}
		if len(a.Password) > maxPasswordLen {
			return 0, validationErr("seed account password must be at most 72 bytes", nil)
		}
		hash, err := s.hash("identity.seed.hash", a.Password)
		if err != nil {
			return 0, err
		}
		phone, _ := optionalPhone(a.Phone)
		bio, _ := optionalBio(a.Bio)
		users = append(users, domain.User{
			Email:        a.Email,
			PasswordHash: hash,
			Name:         normalizeName(a.Name),
			Role:         a.Role,
			Active:       true,
			Phone:        phone,
			Bio:          bio,
		})
	}
	n, err := repo.SeedUsers(ctx, s.DB, users)
	if err != nil {
		return n, storageErr("identity.seed", err)
	}
	return n, nil
}

// hash runs the configured hasher; a failure is reported as a storage error
// so it surfaces as a typed 500.
func (s *IdentityService) hash(op, password string) (string, error) {
	h, err := s.Hasher.Hash(password)
	if err != nil {
		return "", storageErr(op, err)
	}
	return h, nil
}

// normalizeName applies NFC, trims, and collapses internal whitespace.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

func optionalPhone(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	s = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(s)
	if !phoneRE.MatchString(s) {
		return nil, validationErr("invalid phone number", nil)
	}
	return &s, nil
}

func optionalBio(s string) (*string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(s) > maxBioRunes {
		return nil, validationErr("bio is too long", nil)
	}
	return &s, nil
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
