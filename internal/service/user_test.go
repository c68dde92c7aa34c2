package service

import (
	"net/url"
	"testing"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/auth"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type UserServiceSuite struct {
	testutil.BaseServiceTestSuite
	service UserService
}

func TestUserService(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewUserService(testParams(&s.BaseServiceTestSuite))
	seedUser(&s.BaseServiceTestSuite, testutil.AdminID, "admin", types.RoleAdmin)
	seedUser(&s.BaseServiceTestSuite, testutil.StaffID, "staff", types.RoleStaff)
}

func (s *UserServiceSuite) TestCreateUser() {
	tests := []struct {
		name    string
		req     *dto.CreateUserRequest
		wantErr func(error) bool
	}{
		{
			name: "defaults to an active staff user",
			req:  &dto.CreateUserRequest{Username: "siti", Email: "Siti@KEW.gov.my", Password: "secret123", FullName: "Siti Aminah"},
		},
		{
			name:    "duplicate username",
			req:     &dto.CreateUserRequest{Username: "staff", Email: "other@kew.gov.my", Password: "secret123", FullName: "Other"},
			wantErr: ierr.IsAlreadyExists,
		},
		{
			name:    "duplicate email ignores case",
			req:     &dto.CreateUserRequest{Username: "other", Email: "STAFF@kew.gov.my", Password: "secret123", FullName: "Other"},
			wantErr: ierr.IsAlreadyExists,
		},
		{
			name:    "short password",
			req:     &dto.CreateUserRequest{Username: "short", Email: "short@kew.gov.my", Password: "123", FullName: "Short"},
			wantErr: ierr.IsValidation,
		},
		{
			name:    "unknown role",
			req:     &dto.CreateUserRequest{Username: "boss", Email: "boss@kew.gov.my", Password: "secret123", FullName: "Boss", Role: "root"},
			wantErr: ierr.IsValidation,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.service.CreateUser(s.GetContext(), tt.req)
			if tt.wantErr != nil {
				s.Require().Error(err)
				s.True(tt.wantErr(err))
				return
			}
			s.Require().NoError(err)
			s.Equal(types.RoleStaff, resp.User.Role)
			s.True(resp.User.IsActive)
			s.Equal("siti@kew.gov.my", resp.User.Email)
			s.NotEqual(tt.req.Password, resp.User.Password)
			s.True(auth.CheckPassword(resp.User.Password, tt.req.Password))

			logs := s.AuditLogs()
			last := logs[len(logs)-1]
			s.Equal(types.AuditActionCreate, last.Action)
			s.Equal("User", last.Module)
			s.NotContains(last.NewValue, "password")
		})
	}
}

func (s *UserServiceSuite) TestDeleteSelf() {
	err := s.service.DeleteUser(s.GetContext(), testutil.AdminID)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Equal(400, ierr.HTTPStatusFromErr(err))
	s.Equal("Cannot delete your own account", ierr.DisplayMessage(err))

	resp, err := s.service.GetUser(s.GetContext(), testutil.AdminID)
	s.Require().NoError(err)
	s.Equal("admin", resp.User.Username)
}

func (s *UserServiceSuite) TestDeleteUser() {
	s.Require().NoError(s.service.DeleteUser(s.GetContext(), testutil.StaffID))

	_, err := s.service.GetUser(s.GetContext(), testutil.StaffID)
	s.True(ierr.IsNotFound(err))

	err = s.service.DeleteUser(s.GetContext(), testutil.StaffID)
	s.True(ierr.IsNotFound(err))
}

func (s *UserServiceSuite) TestToggleStatus() {
	resp, err := s.service.ToggleStatus(s.GetContext(), testutil.StaffID)
	s.Require().NoError(err)
	s.False(resp.User.IsActive)

	resp, err = s.service.ToggleStatus(s.GetContext(), testutil.StaffID)
	s.Require().NoError(err)
	s.True(resp.User.IsActive)

	_, err = s.service.ToggleStatus(s.GetContext(), testutil.AdminID)
	s.True(ierr.IsInvalidOperation(err))

	actions := s.GetPubSub().AuditActions(s.GetConfig().PubSub.AuditTopic)
	s.Equal([]types.AuditAction{types.AuditActionToggleStatus, types.AuditActionToggleStatus}, actions)
}

func (s *UserServiceSuite) TestUpdateUser() {
	s.Run("partial update keeps other fields", func() {
		resp, err := s.service.UpdateUser(s.GetContext(), testutil.StaffID, &dto.UpdateUserRequest{
			Department: lo.ToPtr("Veterinary"),
			Role:       lo.ToPtr(types.RoleVeterinarian),
		})
		s.Require().NoError(err)
		s.Equal("Veterinary", resp.User.Department)
		s.Equal(types.RoleVeterinarian, resp.User.Role)
		s.Equal("staff", resp.User.Username)
		s.True(resp.User.IsActive)
	})

	s.Run("email taken by another user", func() {
		_, err := s.service.UpdateUser(s.GetContext(), testutil.StaffID, &dto.UpdateUserRequest{Email: lo.ToPtr("admin@kew.gov.my")})
		s.True(ierr.IsAlreadyExists(err))
	})

	s.Run("own email is not a conflict", func() {
		_, err := s.service.UpdateUser(s.GetContext(), testutil.StaffID, &dto.UpdateUserRequest{Email: lo.ToPtr("staff@kew.gov.my")})
		s.NoError(err)
	})

	s.Run("cannot deactivate self", func() {
		_, err := s.service.UpdateUser(s.GetContext(), testutil.AdminID, &dto.UpdateUserRequest{IsActive: lo.ToPtr(false)})
		s.True(ierr.IsInvalidOperation(err))
	})
}

func (s *UserServiceSuite) TestResetPassword() {
	err := s.service.ResetPassword(s.GetContext(), testutil.StaffID, &dto.ResetPasswordRequest{NewPassword: "brand-new"})
	s.Require().NoError(err)

	u, err := s.GetStores().UserRepo.GetByID(s.GetContext(), testutil.StaffID)
	s.Require().NoError(err)
	s.True(auth.CheckPassword(u.Password, "brand-new"))
	s.False(auth.CheckPassword(u.Password, "secret123"))
}

func (s *UserServiceSuite) TestListUsers() {
	seedUser(&s.BaseServiceTestSuite, types.GenerateUUID(), "vet", types.RoleVeterinarian)

	tests := []struct {
		name   string
		params url.Values
		want   int
	}{
		{name: "all", params: url.Values{}, want: 3},
		{name: "by role", params: url.Values{"role": {"veterinarian"}}, want: 1},
		{name: "by search", params: url.Values{"search": {"STA"}}, want: 1},
		{name: "paged", params: url.Values{"limit": {"2"}, "page": {"2"}}, want: 1},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, err := s.service.ListUsers(s.GetContext(), tt.params)
			s.Require().NoError(err)
			s.Len(resp.Users, tt.want)
		})
	}

	s.Run("unknown role", func() {
		_, err := s.service.ListUsers(s.GetContext(), url.Values{"role": {"root"}})
		s.True(ierr.IsValidation(err))
	})
}
