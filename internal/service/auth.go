package service

import (
	"context"
	"strings"
	"time"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/auth"
	"github.com/kewsys/registry/internal/cache"
	"github.com/kewsys/registry/internal/domain/user"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
)

type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error
	// Authenticate validates a bearer token and checks its user still exists and is active
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

type authService struct {
	ServiceParams
}

func NewAuthService(params ServiceParams) AuthService {
	return &authService{ServiceParams: params}
}

// Login authenticates a user and returns an auth token
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	identifier := strings.TrimSpace(req.Username)
	var (
		u   *user.User
		err error
	)
	if identifier != "" {
		u, err = s.UserRepo.GetByUsername(ctx, identifier)
	} else {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
		u, err = s.UserRepo.GetByEmail(ctx, identifier)
	}
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if u == nil || !auth.CheckPassword(u.Password, req.Password) {
		s.loginFailed(ctx, identifier, "invalid credentials")
		return nil, ierr.NewError("invalid credentials").
			WithHint("Invalid username or password").
			Mark(ierr.ErrUnauthorized)
	}
	if !u.IsActive {
		s.loginFailed(ctx, identifier, "account is inactive")
		return nil, ierr.NewErrorf("user %s is inactive", u.ID).
			WithHint("Account is inactive. Please contact an administrator").
			Mark(ierr.ErrUnauthorized)
	}

	token, err := s.Auth.GenerateToken(auth.Claims{UserID: u.ID, Username: u.Username, Role: u.Role})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u.LastLogin = &now
	u.UpdatedAt = now
	if err := s.UserRepo.Update(ctx, u); err != nil {
		// a stale lastLogin does not block the sign in
		s.Logger.Warnw("failed to record last login", "user_id", u.ID, "error", err)
	}

	ctx = types.SetActor(ctx, u.ID, u.Username, u.Role)
	s.AuditSink.Record(ctx, audit.Entry{
		Action:     types.AuditActionLogin,
		Module:     "Auth",
		RecordID:   u.ID,
		RecordType: "users",
		Message:    "login successful",
	})

	return &dto.LoginResponse{
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      u,
	}, nil
}

func (s *authService) Me(ctx context.Context) (*dto.UserResponse, error) {
	userID := types.GetUserID(ctx)
	if userID == "" {
		return nil, ierr.NewError("no user in context").
			WithHint("Authentication required").
			Mark(ierr.ErrUnauthorized)
	}

	u, err := s.UserRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.UserResponse{User: u}, nil
}

func (s *authService) ChangePassword(ctx context.Context, req *dto.ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	u, err := s.UserRepo.GetByID(ctx, types.GetUserID(ctx))
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.Password, req.CurrentPassword) {
		return ierr.NewError("current password mismatch").
			WithHint("Current password is incorrect").
			WithReportableDetails(map[string]any{
				"violations": []map[string]string{{"field": "currentPassword", "message": "currentPassword is incorrect"}},
			}).
			Mark(ierr.ErrValidation)
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	u.UpdatedAt = time.Now().UTC()

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.UserRepo.Update(ctx, u)
	})
	if err != nil {
		return err
	}

	s.AuditSink.Record(ctx, audit.Entry{
		Action:     types.AuditActionChangePassword,
		Module:     "Auth",
		RecordID:   u.ID,
		RecordType: "users",
		Message:    "password changed",
	})
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.Auth.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	u, err := s.activeUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	// the stored role wins over the one signed into the token
	return &auth.Claims{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// activeUser reads the token's user through a short lived cache entry
func (s *authService) activeUser(ctx context.Context, id string) (*user.User, error) {
	key := cache.GenerateKey(cache.PrefixAuthUser, id)
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if u, ok := cached.(*user.User); ok {
			return u, nil
		}
	}

	u, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewErrorf("user %s no longer exists", id).
				WithHint("User no longer exists").
				Mark(ierr.ErrUnauthorized)
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ierr.NewErrorf("user %s is inactive", id).
			WithHint("Account is inactive. Please contact an administrator").
			Mark(ierr.ErrUnauthorized)
	}

	s.Cache.Set(ctx, key, u, s.Config.Auth.UserCacheTTL)
	return u, nil
}

func (s *authService) loginFailed(ctx context.Context, identifier, reason string) {
	s.Logger.Infow("login failed", "identifier", identifier, "reason", reason, "ip", types.GetIPAddress(ctx))
	s.AuditSink.Record(ctx, audit.Entry{
		Action:     types.AuditActionLogin,
		Module:     "Auth",
		RecordType: "users",
		Status:     types.AuditStatusFailure,
		Message:    reason + " for " + identifier,
	})
}
