package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/RomanK74/api-yamdb/internal/apperror"
	"github.com/RomanK74/api-yamdb/internal/auth"
	"github.com/RomanK74/api-yamdb/internal/mail"
	"github.com/RomanK74/api-yamdb/internal/model"
	"github.com/RomanK74/api-yamdb/internal/repository"
)

const (
	// placeholderPrefix starts the username given to accounts created by a
	// first sign-in. The user can rename themselves through /users/me.
	placeholderPrefix = "user_"

	codeSubject = "Confirmation code"
)

// AuthConfig holds the settings of the sign-in exchange.
type AuthConfig struct {
	From    string        // sender address of confirmation mail
	CodeTTL time.Duration // how long a mailed code stays redeemable
}

// AuthService implements passwordless sign-in: a code is mailed to an
// address, and redeeming it yields a token pair.
type AuthService struct {
	users  repository.UserRepository
	codes  *auth.CodeService
	tokens *auth.TokenService
	mailer mail.Sender
	cfg    AuthConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	codes *auth.CodeService,
	tokens *auth.TokenService,
	mailer mail.Sender,
	cfg AuthConfig,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		codes:  codes,
		tokens: tokens,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// RequestCode mails a fresh confirmation code to email, creating the account
// on first use, and returns the normalized address. A new request replaces
// any outstanding code.
func (s *AuthService) RequestCode(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return "", err
	}

	candidate := &model.User{
		Username: placeholderPrefix + xid.New().String(),
		Email:    email,
		Role:     model.RoleUser,
	}
	user, created, err := s.users.GetOrCreateByEmail(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("resolving user for %q: %w", email, err)
	}
	if created {
		s.logger.Info("user signed up", slog.String("username", user.Username))
	}

	code, hash, err := s.codes.Generate()
	if err != nil {
		return "", err
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, hash, s.now().Add(s.cfg.CodeTTL)); err != nil {
		return "", fmt.Errorf("storing confirmation code: %w", err)
	}

	msg := mail.Message{
		Subject: codeSubject,
		Body:    fmt.Sprintf("Use this code to gain access: %q", code),
		From:    s.cfg.From,
		To:      []string{email},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("sending confirmation code",
			slog.String("username", user.Username),
			slog.String("error", err.Error()),
		)
		return "", apperror.Unavailable("confirmation code could not be sent, try again later", err)
	}

	return email, nil
}

// RedeemCode exchanges a mailed code for a token pair. A code is redeemable
// once. Wrong and expired codes both yield apperror.ErrInvalidCode.
func (s *AuthService) RedeemCode(ctx context.Context, email, code string) (auth.Pair, error) {
	email = normalizeEmail(email)
	errs := apperror.FieldErrors{}
	if email == "" {
		errs.Add("email", msgRequired)
	}
	if code == "" {
		errs.Add("confirmation_code", msgRequired)
	}
	if err := errs.Err(); err != nil {
		return auth.Pair{}, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return auth.Pair{}, err
	}

	if user.ConfirmationExpiresAt == nil || !s.now().Before(*user.ConfirmationExpiresAt) {
		return auth.Pair{}, apperror.InvalidCode()
	}
	if err := s.codes.Verify(user.ConfirmationCodeHash, code); err != nil {
		if errors.Is(err, auth.ErrCodeMismatch) {
			return auth.Pair{}, apperror.InvalidCode()
		}
		return auth.Pair{}, err
	}

	consumed, err := s.users.ConsumeConfirmationCode(ctx, user.ID, user.ConfirmationCodeHash)
	if err != nil {
		return auth.Pair{}, fmt.Errorf("consuming confirmation code: %w", err)
	}
	if !consumed {
		return auth.Pair{}, apperror.InvalidCode()
	}

	pair, err := s.tokens.Issue(user.ID)
	if err != nil {
		return auth.Pair{}, fmt.Errorf("issuing tokens: %w", err)
	}
	s.logger.Info("user signed in", slog.String("username", user.Username))
	return pair, nil
}

// RefreshToken trades a refresh token for a new access token. The account
// must still exist.
func (s *AuthService) RefreshToken(ctx context.Context, refresh string) (string, error) {
	if refresh == "" {
		return "", apperror.ValidationFailed("refresh", msgRequired)
	}

	userID, err := s.tokens.Validate(refresh, auth.KindRefresh)
	if err != nil {
		return "", apperror.Unauthorized("Token is invalid or expired")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", apperror.Unauthorized("Token is invalid or expired")
		}
		return "", err
	}

	access, err := s.tokens.Generate(auth.KindAccess, userID)
	if err != nil {
		return "", fmt.Errorf("issuing access token: %w", err)
	}
	return access, nil
}

func checkEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", msgRequired)
	}
	errs := apperror.FieldErrors{}
	checkUserInput(errs, UserInput{Email: &email})
	return errs.Err()
}
