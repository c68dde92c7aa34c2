package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/audit"
	"github.com/kewsys/registry/internal/auth"
	"github.com/kewsys/registry/internal/cache"
	"github.com/kewsys/registry/internal/domain/user"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
)

const userModule = "User"

type UserService interface {
	ListUsers(ctx context.Context, params url.Values) (*dto.ListUsersResponse, error)
	GetUser(ctx context.Context, id string) (*dto.UserResponse, error)
	CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	// DeleteUser refuses to remove the acting user
	DeleteUser(ctx context.Context, id string) error
	// ToggleStatus flips isActive, the acting user cannot deactivate themselves
	ToggleStatus(ctx context.Context, id string) (*dto.UserResponse, error)
	ResetPassword(ctx context.Context, id string, req *dto.ResetPasswordRequest) error
}

type userService struct {
	ServiceParams
}

func NewUserService(params ServiceParams) UserService {
	return &userService{ServiceParams: params}
}

func (s *userService) ListUsers(ctx context.Context, params url.Values) (*dto.ListUsersResponse, error) {
	page := types.ParsePageRequest(params.Get("page"), params.Get("limit"), types.DefaultLimit, types.MaxLimit)
	filter := &types.UserFilter{
		Search: params.Get("search"),
		Offset: page.Offset(),
		Limit:  page.Limit,
	}
	if raw := params.Get("role"); raw != "" {
		role := types.Role(raw)
		if !role.IsValid() {
			return nil, ierr.NewErrorf("unknown role %s", raw).
				WithHint("Invalid role").
				WithReportableDetails(map[string]any{"allowed": types.AllRoles}).
				Mark(ierr.ErrValidation)
		}
		filter.Role = &role
	}
	if raw := params.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("isActive must be true or false").
				Mark(ierr.ErrValidation)
		}
		filter.IsActive = &active
	}

	total, err := s.UserRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	users, err := s.UserRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListUsersResponse{
		Users:      users,
		Pagination: types.NewPaginationResponse(page, total),
	}, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*dto.UserResponse, error) {
	u, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.UserResponse{User: u}, nil
}

func (s *userService) CreateUser(ctx context.Context, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkAvailable(ctx, "", req.Username, req.Email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &user.User{
		ID:          types.GenerateUUID(),
		Username:    strings.TrimSpace(req.Username),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Password:    hash,
		FullName:    req.FullName,
		Role:        lo.Ternary(req.Role == "", types.RoleStaff, req.Role),
		Department:  req.Department,
		Position:    req.Position,
		PhoneNumber: req.PhoneNumber,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.UserRepo.Create(ctx, u)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("user created", "user_id", u.ID, "username", u.Username, "role", u.Role)
	s.record(ctx, types.AuditActionCreate, nil, u, "")
	return &dto.UserResponse{User: u}, nil
}

func (s *userService) UpdateUser(ctx context.Context, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive && id == types.GetUserID(ctx) {
		return nil, selfTargetError("deactivate")
	}

	next := *current
	if req.Email != nil {
		next.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.checkAvailable(ctx, id, "", next.Email); err != nil {
			return nil, err
		}
	}
	next.FullName = lo.FromPtrOr(req.FullName, next.FullName)
	next.Role = lo.FromPtrOr(req.Role, next.Role)
	next.Department = lo.FromPtrOr(req.Department, next.Department)
	next.Position = lo.FromPtrOr(req.Position, next.Position)
	next.PhoneNumber = lo.FromPtrOr(req.PhoneNumber, next.PhoneNumber)
	next.IsActive = lo.FromPtrOr(req.IsActive, next.IsActive)
	next.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}

	s.record(ctx, types.AuditActionUpdate, current, &next, "")
	return &dto.UserResponse{User: &next}, nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	if id == types.GetUserID(ctx) {
		return selfTargetError("delete")
	}

	current, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.UserRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.forget(ctx, id)
	s.Logger.Infow("user deleted", "user_id", id, "by", types.GetUserID(ctx))
	s.record(ctx, types.AuditActionDelete, current, nil, "")
	return nil
}

func (s *userService) ToggleStatus(ctx context.Context, id string) (*dto.UserResponse, error) {
	if id == types.GetUserID(ctx) {
		return nil, selfTargetError("deactivate")
	}

	current, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	next.IsActive = !current.IsActive
	next.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, &next); err != nil {
		return nil, err
	}

	s.record(ctx, types.AuditActionToggleStatus, current, &next, lo.Ternary(next.IsActive, "activated", "deactivated"))
	return &dto.UserResponse{User: &next}, nil
}

func (s *userService) ResetPassword(ctx context.Context, id string, req *dto.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	current, err := s.UserRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	next := *current
	next.Password = hash
	next.UpdatedAt = time.Now().UTC()
	if err := s.save(ctx, &next); err != nil {
		return err
	}

	s.record(ctx, types.AuditActionResetPassword, nil, nil, "password reset for "+current.Username)
	return nil
}

func (s *userService) save(ctx context.Context, u *user.User) error {
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		return s.UserRepo.Update(ctx, u)
	})
	if err != nil {
		return err
	}
	s.forget(ctx, u.ID)
	return nil
}

// forget drops the cached auth state so the next request re-reads the user
func (s *userService) forget(ctx context.Context, id string) {
	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixAuthUser, id))
}

// checkAvailable fails when another user already holds username or email
func (s *userService) checkAvailable(ctx context.Context, selfID, username, email string) error {
	taken := func(u *user.User, err error) (bool, error) {
		if err != nil {
			if ierr.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return u.ID != selfID, nil
	}

	if username != "" {
		exists, err := taken(s.UserRepo.GetByUsername(ctx, strings.TrimSpace(username)))
		if err != nil {
			return err
		}
		if exists {
			return ierr.NewErrorf("username %s already exists", username).
				WithHint("Username already exists").
				WithReportableDetails(map[string]any{"field": "username"}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	if email != "" {
		exists, err := taken(s.UserRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email))))
		if err != nil {
			return err
		}
		if exists {
			return ierr.NewErrorf("email %s already exists", email).
				WithHint("Email already exists").
				WithReportableDetails(map[string]any{"field": "email"}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return nil
}

func (s *userService) record(ctx context.Context, action types.AuditAction, before, after *user.User, message string) {
	entry := audit.Entry{
		Action:     action,
		Module:     userModule,
		RecordType: "users",
		Message:    message,
	}
	if before != nil {
		entry.RecordID = before.ID
		entry.OldValue = userSnapshot(before)
	}
	if after != nil {
		entry.RecordID = after.ID
		entry.NewValue = userSnapshot(after)
	}
	s.AuditSink.Record(ctx, entry)
}

// userSnapshot is the audited view of a user, the password hash never leaves the store
func userSnapshot(u *user.User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"fullName":   u.FullName,
		"role":       u.Role,
		"department": u.Department,
		"isActive":   u.IsActive,
	}
}

func selfTargetError(verb string) error {
	return ierr.NewErrorf("user attempted to %s their own account", verb).
		WithHintf("Cannot %s your own account", verb).
		Mark(ierr.ErrInvalidOperation)
}
