package service

import (
	"context"
	"log/slog"
	"strings"

	"inmomarket/internal/models"
	"inmomarket/internal/repository"
	"inmomarket/internal/storage"
	"inmomarket/internal/validation"
)

// ProfilePatch is a partial profile update. Absent fields are left untouched;
// an explicit null or empty phone number clears it.
type ProfilePatch struct {
	Name                 models.Optional[string] `json:"name"`
	Email                models.Optional[string] `json:"email"`
	PhoneNumber          models.Optional[string] `json:"phone_number"`
	RemoveProfilePicture bool                    `json:"remove_profile_picture"`
}

// profileFields is the merged profile as it will be stored.
type profileFields struct {
	Name        string `json:"name" validate:"notblank,max=120"`
	Email       string `json:"email" validate:"required,email,max=255"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164"`
}

type UserService struct {
	store  repository.Store
	images storage.ImageStore
}

func NewUserService(store repository.Store, images storage.ImageStore) *UserService {
	return &UserService{store: store, images: images}
}

// GetProfile returns the caller's account.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User", userID)
	}
	return user, nil
}

// UpdateProfile applies patch to the caller's account. A new picture replaces the
// current one; RemoveProfilePicture drops the current picture and ignores any upload.
// Replaced pictures are deleted only after the row is saved.
func (s *UserService) UpdateProfile(
	ctx context.Context,
	userID uint,
	patch ProfilePatch,
	picture *storage.ImageUpload,
) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "User", userID)
	}

	merged, err := mergeProfile(user, patch)
	if err != nil {
		return nil, err
	}
	if err := s.requireFreeEmail(ctx, merged.Email, userID); err != nil {
		return nil, err
	}

	var uploaded []storage.ImageRef
	if picture != nil && !patch.RemoveProfilePicture {
		upload := *picture
		upload.Folder = storage.FolderProfiles
		upload.Field = "profile_picture"
		if uploaded, err = uploadImages(ctx, s.images, userID, []storage.ImageUpload{upload}); err != nil {
			return nil, err
		}
	}

	previous := pictureRef(user)
	user.DisplayName = merged.Name
	user.Email = merged.Email
	user.PhoneNumber = nil
	if merged.PhoneNumber != "" {
		user.PhoneNumber = &merged.PhoneNumber
	}
	switch {
	case len(uploaded) == 1:
		user.ProfilePictureURL = &uploaded[0].URL
		user.ProfilePictureKey = &uploaded[0].Key
	case patch.RemoveProfilePicture:
		user.ProfilePictureURL = nil
		user.ProfilePictureKey = nil
	default:
		previous = nil
	}

	if err := s.store.Users().UpdateProfile(ctx, user); err != nil {
		discardImages(ctx, s.images, uploaded)
		if repository.IsUniqueViolation(err) {
			return nil, models.NewFieldValidationError(map[string]string{"email": "is already in use"})
		}
		return nil, notFoundOr(err, "User", userID)
	}
	if previous != nil && s.images != nil {
		discardImages(ctx, s.images, []storage.ImageRef{*previous})
	}

	slog.InfoContext(ctx, "Profile updated", "user_id", userID, "picture_replaced", previous != nil)
	return user, nil
}

func mergeProfile(user *models.User, patch ProfilePatch) (profileFields, error) {
	out := profileFields{Name: user.DisplayName, Email: user.Email}
	if user.PhoneNumber != nil {
		out.PhoneNumber = *user.PhoneNumber
	}

	fields := fieldErrors{}
	if patch.Name.Set {
		if patch.Name.Null {
			fields.add("name", "is required")
		}
		out.Name = strings.TrimSpace(patch.Name.Value)
	}
	if patch.Email.Set {
		if patch.Email.Null {
			fields.add("email", "is required")
		}
		out.Email = strings.ToLower(strings.TrimSpace(patch.Email.Value))
	}
	if patch.PhoneNumber.Set {
		out.PhoneNumber = strings.TrimSpace(patch.PhoneNumber.Value)
	}

	if err := fields.merge(validation.Struct(out)); err != nil {
		return out, err
	}
	return out, fields.err()
}

func (s *UserService) requireFreeEmail(ctx context.Context, email string, userID uint) error {
	owner, err := s.store.Users().GetByEmail(ctx, email)
	switch {
	case repository.IsNotFound(err):
		return nil
	case err != nil:
		return storageError(err)
	case owner.ID != userID:
		return models.NewFieldValidationError(map[string]string{"email": "is already in use"})
	}
	return nil
}

func pictureRef(user *models.User) *storage.ImageRef {
	if user.ProfilePictureKey == nil || *user.ProfilePictureKey == "" {
		return nil
	}
	ref := storage.ImageRef{Key: *user.ProfilePictureKey}
	if user.ProfilePictureURL != nil {
		ref.URL = *user.ProfilePictureURL
	}
	return &ref
}
