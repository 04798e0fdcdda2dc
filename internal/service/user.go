package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/RomanK74/api-yamdb/internal/access"
	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/mail"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

// ReservedUsername addresses the caller's own profile and cannot be registered.
const ReservedUsername = "me"

// UserInput carries the writable profile fields. A nil field is left unchanged.
type UserInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *string
}

type UserService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewUserService(users repository.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

func (s *UserService) List(ctx context.Context, actor *model.User, search string, opts repository.ListOptions) (repository.Page[model.User], error) {
	if err := access.Check(actor, access.ActionRead, access.ResourceUser, access.NoOwner); err != nil {
		return repository.Page[model.User]{}, err
	}
	if err := checkListOptions(repository.UserOrderings, opts); err != nil {
		return repository.Page[model.User]{}, err
	}
	return s.users.List(ctx, strings.TrimSpace(search), opts)
}

func (s *UserService) Get(ctx context.Context, actor *model.User, username string) (*model.User, error) {
	if err := access.Check(actor, access.ActionRead, access.ResourceUser, access.NoOwner); err != nil {
		return nil, err
	}
	return s.users.GetByUsername(ctx, username)
}

// Create registers a user on behalf of an admin. Username and email are required.
func (s *UserService) Create(ctx context.Context, actor *model.User, in UserInput) (*model.User, error) {
	if err := access.Check(actor, access.ActionCreate, access.ResourceUser, access.NoOwner); err != nil {
		return nil, err
	}

	errs := apperror.FieldErrors{}
	if in.Username == nil {
		errs.Add("username", msgRequired)
	}
	if in.Email == nil {
		errs.Add("email", msgRequired)
	}
	checkUserInput(errs, in)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	user := &model.User{Role: model.RoleUser}
	applyUserInput(user, in)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user %q: %w", user.Username, conflictAsValidation(err))
	}

	s.logger.Info("user created", slog.String("username", user.Username), slog.String("by", actor.Username))
	return user, nil
}

func (s *UserService) Update(ctx context.Context, actor *model.User, username string, in UserInput) (*model.User, error) {
	if err := access.Check(actor, access.ActionUpdate, access.ResourceUser, access.NoOwner); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, user, in)
}

func (s *UserService) Delete(ctx context.Context, actor *model.User, username string) error {
	if err := access.Check(actor, access.ActionDelete, access.ResourceUser, access.NoOwner); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, username); err != nil {
		return fmt.Errorf("deleting user %q: %w", username, err)
	}
	s.logger.Info("user deleted", slog.String("username", username), slog.String("by", actor.Username))
	return nil
}

// Me returns the caller's own profile as currently stored.
func (s *UserService) Me(ctx context.Context, actor *model.User) (*model.User, error) {
	if err := access.Check(actor, access.ActionRead, access.ResourceProfile, access.NoOwner); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, actor.ID)
}

// UpdateMe edits the caller's own profile. A role in the input is ignored:
// users cannot change their own privileges.
func (s *UserService) UpdateMe(ctx context.Context, actor *model.User, in UserInput) (*model.User, error) {
	if err := access.Check(actor, access.ActionUpdate, access.ResourceProfile, access.NoOwner); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	in.Role = nil
	return s.update(ctx, user, in)
}

// CreateSuperuser creates a user with full privileges, or promotes the
// existing user with that username. It bypasses access checks and is only
// reachable from the command line.
func (s *UserService) CreateSuperuser(ctx context.Context, username, email string) (*model.User, bool, error) {
	in := UserInput{Username: &username, Email: &email}
	errs := apperror.FieldErrors{}
	checkUserInput(errs, in)
	if err := errs.Err(); err != nil {
		return nil, false, err
	}

	user, err := s.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		user.Role = model.RoleAdmin
		user.IsSuperuser = true
		if err := s.users.Update(ctx, user); err != nil {
			return nil, false, fmt.Errorf("promoting user %q: %w", username, err)
		}
		s.logger.Info("user promoted to superuser", slog.String("username", username))
		return user, false, nil

	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{Role: model.RoleAdmin, IsSuperuser: true}
		applyUserInput(user, in)
		if err := s.users.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("creating superuser %q: %w", username, conflictAsValidation(err))
		}
		s.logger.Info("superuser created", slog.String("username", username))
		return user, true, nil

	default:
		return nil, false, err
	}
}

func (s *UserService) update(ctx context.Context, user *model.User, in UserInput) (*model.User, error) {
	errs := apperror.FieldErrors{}
	checkUserInput(errs, in)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	applyUserInput(user, in)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user %q: %w", user.Username, conflictAsValidation(err))
	}
	return user, nil
}

// checkUserInput validates every non-nil field of in.
func checkUserInput(errs apperror.FieldErrors, in UserInput) {
	if in.Username != nil {
		v := *in.Username
		switch {
		case v == "":
			errs.Add("username", msgBlank)
		case utf8.RuneCountInString(v) > MaxUsernameLength:
			errs.Add("username", msgMaxLength(MaxUsernameLength))
		case !usernamePattern.MatchString(v):
			errs.Add("username", msgUsername)
		case strings.EqualFold(v, ReservedUsername):
			errs.Add("username", msgMe)
		}
	}
	if in.Email != nil {
		v := strings.TrimSpace(*in.Email)
		switch {
		case v == "":
			errs.Add("email", msgBlank)
		case utf8.RuneCountInString(v) > MaxEmailLength:
			errs.Add("email", msgMaxLength(MaxEmailLength))
		case !mail.ValidAddress(v):
			errs.Add("email", msgEmail)
		}
	}
	for field, v := range map[string]*string{"first_name": in.FirstName, "last_name": in.LastName} {
		if v != nil && utf8.RuneCountInString(*v) > MaxPersonNameLength {
			errs.Add(field, msgMaxLength(MaxPersonNameLength))
		}
	}
	if in.Role != nil && !model.Role(*in.Role).Valid() {
		errs.Add("role", fmt.Sprintf("%q is not a valid choice.", *in.Role))
	}
}

func applyUserInput(user *model.User, in UserInput) {
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Email != nil {
		user.Email = normalizeEmail(*in.Email)
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Role != nil {
		user.Role = model.Role(*in.Role)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
