package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/collabnotes/collabnotes-server/internal/auth"
	"github.com/collabnotes/collabnotes-server/internal/domain"
	domainerrors "github.com/collabnotes/collabnotes-server/internal/errors"
	"github.com/collabnotes/collabnotes-server/internal/store"
)

var errEmailRegistered = domainerrors.Conflict("Email already registered")

// SettingsService manages a user's own profile, password, preferences and account.
type SettingsService struct {
	store      store.Store
	credential auth.Credential
	search     *SearchService
	logger     *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(store store.Store, credential auth.Credential, search *SearchService, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = discardLogger()
	}
	return &SettingsService{
		store:      store,
		credential: credential,
		search:     search,
		logger:     logger,
	}
}

// ProfileUpdate contains optional profile changes. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	ProfilePicture *string `json:"profile_picture,omitempty" validate:"omitempty,max=2048"`
}

// PasswordUpdate contains a password change.
type PasswordUpdate struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=1,max=1024"`
}

// PreferencesUpdate contains optional preference changes. Nil fields are left unchanged.
type PreferencesUpdate struct {
	Theme                *domain.Theme    `json:"theme,omitempty" validate:"omitempty,theme"`
	Language             *domain.Language `json:"language,omitempty" validate:"omitempty,language"`
	EmailNotifications   *bool            `json:"email_notifications,omitempty"`
	BrowserNotifications *bool            `json:"browser_notifications,omitempty"`
}

// GetProfile returns the user's account.
func (s *SettingsService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, userID)
}

// UpdateProfile changes name, email or profile picture.
func (s *SettingsService) UpdateProfile(ctx context.Context, userID string, req ProfileUpdate) (*domain.User, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	var patch domain.UserPatch
	if req.Email != nil {
		existing, err := s.store.GetUserByEmail(ctx, *req.Email)
		switch {
		case err == nil && existing.ID != userID:
			return nil, errEmailRegistered
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("check email: %w", err)
		}
		patch.Email = domain.Set(*req.Email)
	}
	if req.Name != nil {
		patch.Name = optionalField(normalizeName(req.Name))
	}
	if req.ProfilePicture != nil {
		picture := req.ProfilePicture
		if *picture == "" {
			picture = nil
		}
		patch.ProfilePicture = optionalField(picture)
	}

	user, err := s.updateUser(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "profile updated", "user_id", user.ID)

	return user, nil
}

// UpdatePassword replaces the password after checking the current one.
// Only the hash column is written.
func (s *SettingsService) UpdatePassword(ctx context.Context, userID string, req PasswordUpdate) error {
	if err := validate.Validate(req); err != nil {
		return err
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.checkPassword(user, req.CurrentPassword, "current_password", "Current password is incorrect"); err != nil {
		return err
	}

	hash, err := s.credential.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.updateUser(ctx, user.ID, domain.UserPatch{PasswordHash: domain.Set(hash)}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password updated", "user_id", user.ID)

	return nil
}

// UpdatePreferences changes display and notification settings.
func (s *SettingsService) UpdatePreferences(ctx context.Context, userID string, req PreferencesUpdate) (*domain.User, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	var patch domain.UserPatch
	if req.Theme != nil {
		patch.Theme = domain.Set(*req.Theme)
	}
	if req.Language != nil {
		patch.Language = domain.Set(*req.Language)
	}
	if req.EmailNotifications != nil {
		patch.EmailNotifications = domain.Set(*req.EmailNotifications)
	}
	if req.BrowserNotifications != nil {
		patch.BrowserNotifications = domain.Set(*req.BrowserNotifications)
	}

	user, err := s.updateUser(ctx, userID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "preferences updated", "user_id", user.ID)

	return user, nil
}

// DeleteAccount removes the user, the notes they own and their shares
// after checking the password.
func (s *SettingsService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.checkPassword(user, password, "password", "Password is incorrect"); err != nil {
		return err
	}

	noteIDs, err := s.store.DeleteUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("User not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.search.RemoveNotes(noteIDs...)

	s.logger.InfoContext(ctx, "account deleted", "user_id", user.ID, "notes_deleted", len(noteIDs))

	return nil
}

func (s *SettingsService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *SettingsService) updateUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	user, err := s.store.UpdateUser(ctx, userID, patch, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmailExists):
			return nil, errEmailRegistered
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// optionalField maps a nil pointer to an explicit null.
func optionalField(v *string) domain.Field[string] {
	if v == nil {
		return domain.Null[string]()
	}
	return domain.Set(*v)
}

// checkPassword verifies password against the stored hash and reports a
// mismatch as invalid input on field.
func (s *SettingsService) checkPassword(user *domain.User, password, field, msg string) error {
	valid, err := s.credential.Verify(user.PasswordHash, password)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return domainerrors.ValidationWithDetails(msg, map[string]string{field: "is incorrect"})
	}
	return nil
}
