package service

import (
	"testing"

	"github.com/kewsys/registry/internal/api/dto"
	"github.com/kewsys/registry/internal/auth"
	ierr "github.com/kewsys/registry/internal/errors"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
	"github.com/stretchr/testify/suite"
)

type AuthServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AuthService
	users   UserService
}

func TestAuthService(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := testParams(&s.BaseServiceTestSuite)
	s.service = NewAuthService(params)
	s.users = NewUserService(params)
	seedUser(&s.BaseServiceTestSuite, testutil.AdminID, "admin", types.RoleAdmin)
	seedUser(&s.BaseServiceTestSuite, testutil.StaffID, "staff", types.RoleStaff)
}

func (s *AuthServiceSuite) TestLogin() {
	tests := []struct {
		name    string
		req     *dto.LoginRequest
		wantErr func(error) bool
	}{
		{name: "by username", req: &dto.LoginRequest{Username: "staff", Password: "secret123"}},
		{name: "by email", req: &dto.LoginRequest{Email: "STAFF@kew.gov.my", Password: "secret123"}},
		{name: "wrong password", req: &dto.LoginRequest{Username: "staff", Password: "nope"}, wantErr: ierr.IsUnauthorized},
		{name: "unknown user", req: &dto.LoginRequest{Username: "ghost", Password: "secret123"}, wantErr: ierr.IsUnauthorized},
		{name: "no identifier", req: &dto.LoginRequest{Password: "secret123"}, wantErr: ierr.IsValidation},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.GetPubSub().ClearMessages()
			resp, err := s.service.Login(testutil.ContextAs("", "", ""), tt.req)

			logs := s.AuditLogs()
			if tt.wantErr != nil {
				s.Require().Error(err)
				s.True(tt.wantErr(err))
				if ierr.IsUnauthorized(err) {
					s.Equal("Invalid username or password", ierr.DisplayMessage(err))
					s.Require().Len(logs, 1)
					s.Equal(types.AuditStatusFailure, logs[0].Status)
				}
				return
			}

			s.Require().NoError(err)
			s.NotEmpty(resp.Token)
			s.Equal(testutil.StaffID, resp.User.ID)
			s.NotNil(resp.User.LastLogin)

			s.Require().Len(logs, 1)
			s.Equal(types.AuditActionLogin, logs[0].Action)
			s.Equal(testutil.StaffID, logs[0].UserID)

			claims, err := s.service.Authenticate(s.GetContext(), resp.Token)
			s.Require().NoError(err)
			s.Equal(testutil.StaffID, claims.UserID)
			s.Equal(types.RoleStaff, claims.Role)
		})
	}
}

func (s *AuthServiceSuite) TestLoginInactive() {
	_, err := s.users.ToggleStatus(s.GetContext(), testutil.StaffID)
	s.Require().NoError(err)

	_, err = s.service.Login(s.GetContext(), &dto.LoginRequest{Username: "staff", Password: "secret123"})
	s.True(ierr.IsUnauthorized(err))
}

func (s *AuthServiceSuite) TestAuthenticate() {
	provider := auth.NewProvider(s.GetConfig())
	token, err := provider.GenerateToken(auth.Claims{UserID: testutil.StaffID, Username: "staff", Role: types.RoleAdmin})
	s.Require().NoError(err)

	s.Run("stored role wins", func() {
		claims, err := s.service.Authenticate(s.GetContext(), token.Value)
		s.Require().NoError(err)
		s.Equal(types.RoleStaff, claims.Role)
	})

	s.Run("garbage token", func() {
		_, err := s.service.Authenticate(s.GetContext(), "not-a-token")
		s.True(ierr.IsUnauthorized(err))
	})

	s.Run("deactivated user is refused at once", func() {
		_, err := s.users.ToggleStatus(s.GetContext(), testutil.StaffID)
		s.Require().NoError(err)

		_, err = s.service.Authenticate(s.GetContext(), token.Value)
		s.True(ierr.IsUnauthorized(err))
	})

	s.Run("deleted user", func() {
		s.Require().NoError(s.users.DeleteUser(s.GetContext(), testutil.StaffID))

		_, err := s.service.Authenticate(s.GetContext(), token.Value)
		s.True(ierr.IsUnauthorized(err))
		s.False(ierr.IsNotFound(err))
	})
}

func (s *AuthServiceSuite) TestChangePassword() {
	ctx := staffContext()

	err := s.service.ChangePassword(ctx, &dto.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "another1"})
	s.True(ierr.IsValidation(err))

	err = s.service.ChangePassword(ctx, &dto.ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "another1"})
	s.Require().NoError(err)

	_, err = s.service.Login(ctx, &dto.LoginRequest{Username: "staff", Password: "secret123"})
	s.True(ierr.IsUnauthorized(err))
	_, err = s.service.Login(ctx, &dto.LoginRequest{Username: "staff", Password: "another1"})
	s.NoError(err)
}

func (s *AuthServiceSuite) TestMe() {
	resp, err := s.service.Me(staffContext())
	s.Require().NoError(err)
	s.Equal("staff", resp.User.Username)

	_, err = s.service.Me(testutil.ContextAs("", "", ""))
	s.True(ierr.IsUnauthorized(err))
}
