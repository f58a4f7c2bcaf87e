package auth

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-viaticos-session/apiclient"
	"github.com/jrsteele09/go-viaticos-session/apimodel"
	viaticoserrors "github.com/jrsteele09/go-viaticos-session/internal/errors"
	"github.com/jrsteele09/go-viaticos-session/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Service runs the account flows against the backend and keeps the session store in step.
// Every call except Logout is unauthenticated.
type Service struct {
	client    *apiclient.Client
	store     *sessions.Store
	validator *Validator
}

// NewService creates the account service on top of client and its session store.
func NewService(client *apiclient.Client) (*Service, error) {
	if client == nil {
		return nil, errors.New("[NewService] client is required")
	}
	if client.Store() == nil {
		return nil, errors.New("[NewService] client has no session store")
	}
	return &Service{
		client:    client,
		store:     client.Store(),
		validator: NewValidator(),
	}, nil
}

// Login exchanges credentials for a token pair and persists the pair and the user profile.
// A fresh login carries no tenant claim.
func (s *Service) Login(ctx context.Context, email, password string) (*apimodel.LoginData, error) {
	if err := s.validator.ValidateUserCredentials(email, password); err != nil {
		return nil, errors.Wrap(err, "[Login] invalid credentials")
	}

	var resp apimodel.Response[*apimodel.LoginData]
	req := apimodel.LoginRequest{Email: sanitizeEmail(email), Password: password}
	if err := s.client.Post(ctx, apimodel.RouteAuthLogin, req, &resp, apiclient.SkipAuth()); err != nil {
		return nil, errors.Wrap(err, "[Login] request failed")
	}
	if resp.Data == nil {
		return nil, errors.Wrap(viaticoserrors.ErrEmptyResponse, "[Login]")
	}
	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		return nil, errors.Wrap(viaticoserrors.ErrInvalidToken, "[Login] response carries no token pair")
	}

	s.store.SetTokens(resp.Data.AccessToken, resp.Data.RefreshToken)
	s.store.SetUserProfile(resp.Data.User)
	log.Info().Str("user_id", resp.Data.User.ID).Msg("user logged in")
	return resp.Data, nil
}

// Register creates an account. The user must verify the email before logging in.
func (s *Service) Register(ctx context.Context, req apimodel.RegisterRequest) (*apimodel.RegisterData, error) {
	req.Email = sanitizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.validator.ValidateRegistration(req); err != nil {
		return nil, errors.Wrap(err, "[Register] invalid request")
	}

	var resp apimodel.Response[*apimodel.RegisterData]
	if err := s.client.Post(ctx, apimodel.RouteAuthRegister, req, &resp, apiclient.SkipAuth()); err != nil {
		return nil, errors.Wrap(err, "[Register] request failed")
	}
	if resp.Data == nil {
		return nil, errors.Wrap(viaticoserrors.ErrEmptyResponse, "[Register]")
	}
	return resp.Data, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if err := s.validator.ValidateToken(token); err != nil {
		return errors.Wrap(err, "[VerifyEmail]")
	}
	err := s.client.Post(ctx, apimodel.RouteAuthVerifyEmail, apimodel.VerifyEmailRequest{Token: token}, nil, apiclient.SkipAuth())
	return errors.Wrap(err, "[VerifyEmail] request failed")
}

// ForgotPassword asks the backend to email a reset link. The backend answers the same way
// whether or not the account exists.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := s.validator.ValidateEmail(email); err != nil {
		return errors.Wrap(err, "[ForgotPassword]")
	}
	req := apimodel.ForgotPasswordRequest{Email: sanitizeEmail(email)}
	return errors.Wrap(s.client.Post(ctx, apimodel.RouteAuthForgotPassword, req, nil, apiclient.SkipAuth()), "[ForgotPassword] request failed")
}

func (s *Service) ResendResetEmail(ctx context.Context, email string) error {
	if err := s.validator.ValidateEmail(email); err != nil {
		return errors.Wrap(err, "[ResendResetEmail]")
	}
	req := apimodel.ForgotPasswordRequest{Email: sanitizeEmail(email)}
	return errors.Wrap(s.client.Post(ctx, apimodel.RouteAuthResetPasswordSend, req, nil, apiclient.SkipAuth()), "[ResendResetEmail] request failed")
}

func (s *Service) ValidateResetToken(ctx context.Context, token string) (*apimodel.ResetTokenStatus, error) {
	if err := s.validator.ValidateToken(token); err != nil {
		return nil, errors.Wrap(err, "[ValidateResetToken]")
	}

	var resp apimodel.Response[*apimodel.ResetTokenStatus]
	req := apimodel.ValidateResetTokenRequest{Token: token}
	if err := s.client.Post(ctx, apimodel.RouteAuthResetPasswordCheck, req, &resp, apiclient.SkipAuth()); err != nil {
		return nil, errors.Wrap(err, "[ValidateResetToken] request failed")
	}
	if resp.Data == nil {
		return nil, errors.Wrap(viaticoserrors.ErrEmptyResponse, "[ValidateResetToken]")
	}
	return resp.Data, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := s.validator.ValidateToken(token); err != nil {
		return errors.Wrap(err, "[ResetPassword]")
	}
	if newPassword == "" {
		return errors.Wrap(PasswordRequiredErr, "[ResetPassword]")
	}
	req := apimodel.ResetPasswordRequest{Token: token, NewPassword: newPassword}
	return errors.Wrap(s.client.Post(ctx, apimodel.RouteAuthResetPassword, req, nil, apiclient.SkipAuth()), "[ResetPassword] request failed")
}

// Logout clears the session locally. Tokens stay valid on the backend until they expire.
func (s *Service) Logout() {
	s.store.Clear()
}

func (s *Service) IsAuthenticated() bool {
	return s.store.IsAuthenticated()
}

// CurrentUser returns the cached profile of the logged-in user.
func (s *Service) CurrentUser() (*sessions.UserProfile, bool) {
	return s.store.UserProfile()
}
