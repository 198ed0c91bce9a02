package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sagar-1m/Event-Engage/internal/models"
	"github.com/sagar-1m/Event-Engage/internal/repository"
	"github.com/sagar-1m/Event-Engage/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService owns account rules: registration, credentials, guest sessions
// and account deletion.
type UserService struct {
	userRepo repository.UserRepository
	guestTTL time.Duration
}

// NewUserService creates a new user service. guestTTL bounds the lifetime of
// guest accounts.
func NewUserService(userRepo repository.UserRepository, guestTTL time.Duration) *UserService {
	if guestTTL <= 0 {
		guestTTL = 24 * time.Hour
	}
	return &UserService{
		userRepo: userRepo,
		guestTTL: guestTTL,
	}
}

// Register creates a new member account.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, models.NewValidationError("Name, email and password are required")
	}
	if err := validation.ValidateName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if existing != nil {
		return nil, models.NewValidationError("User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashed),
		Role:     models.UserRoleMember,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, models.NewInternalError(err)
	}
	return user, nil
}

// Authenticate verifies credentials. Expired guest accounts are deleted on
// the spot and rejected.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if expired, expErr := s.reapIfExpired(ctx, user); expErr != nil {
		return nil, expErr
	} else if expired {
		return nil, models.NewUnauthorizedError("Guest session expired")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

// CreateGuest creates an ephemeral guest account with a random identity and
// an expiry stamp guestTTL from now.
func (s *UserService) CreateGuest(ctx context.Context) (*models.User, error) {
	suffix := uuid.New().String()[:8]
	secret, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	expiresAt := time.Now().Add(s.guestTTL)
	guest := &models.User{
		Name:           "Guest " + suffix,
		Email:          fmt.Sprintf("guest-%s@guest.local", suffix),
		Password:       string(secret),
		Role:           models.UserRoleMember,
		IsGuest:        true,
		GuestExpiresAt: &expiresAt,
	}
	if err := s.userRepo.Create(ctx, guest); err != nil {
		return nil, models.NewInternalError(err)
	}
	return guest, nil
}

// GetProfile returns the user's account, lazily deleting expired guests.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", userID)
	}
	if expired, expErr := s.reapIfExpired(ctx, user); expErr != nil {
		return nil, expErr
	} else if expired {
		return nil, models.NewUnauthorizedError("Guest session expired")
	}
	return user, nil
}

// CheckGuestSession reports whether the user's guest session is still valid
// and when it lapses. Non-guest accounts are always valid with no expiry.
func (s *UserService) CheckGuestSession(ctx context.Context, userID uint) (bool, *time.Time, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, nil, models.NewInternalError(err)
	}
	if user == nil {
		return false, nil, models.NewNotFoundError("User", userID)
	}
	if !user.IsGuest {
		return true, nil, nil
	}
	if expired, expErr := s.reapIfExpired(ctx, user); expErr != nil {
		return false, nil, expErr
	} else if expired {
		return false, user.GuestExpiresAt, nil
	}
	return true, user.GuestExpiresAt, nil
}

// UpdateProfile changes the user's name and/or email.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, name, email *string) (*models.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if name != nil {
		if err := validation.ValidateName(*name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["name"] = *name
	}
	if email != nil && *email != user.Email {
		if err := validation.ValidateEmail(*email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		existing, err := s.userRepo.GetByEmail(ctx, *email)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if existing != nil {
			return nil, models.NewValidationError("Email already in use")
		}
		fields["email"] = *email
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateProfile(ctx, userID, fields); err != nil {
			return nil, models.NewInternalError(err)
		}
	}
	return s.GetProfile(ctx, userID)
}

// UpdatePassword verifies the current password and stores the new hash.
func (s *UserService) UpdatePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsGuest {
		return models.NewForbiddenError("Guest accounts cannot change their password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return models.NewUnauthorizedError("Current password is incorrect")
	}
	if err := validation.ValidatePassword(next); err != nil {
		return models.NewValidationError(err.Error())
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteAccount removes the user. Events they organized stay up; their
// attendee seats are released by the repository.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.NewInternalError(err)
	}
	if user == nil {
		return models.NewNotFoundError("User", userID)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// reapIfExpired deletes a guest account whose session lapsed. Returns true
// when the account was expired (and removed).
func (s *UserService) reapIfExpired(ctx context.Context, user *models.User) (bool, error) {
	if !user.GuestExpired(time.Now()) {
		return false, nil
	}
	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return false, models.NewInternalError(err)
	}
	return true, nil
}
