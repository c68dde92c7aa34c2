package service

import (
	"context"
	"time"

	"github.com/kewsys/registry/internal/auth"
	"github.com/kewsys/registry/internal/domain/user"
	"github.com/kewsys/registry/internal/report"
	"github.com/kewsys/registry/internal/testutil"
	"github.com/kewsys/registry/internal/types"
)

// testParams wires every service dependency to the in-memory doubles of the suite
func testParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetRegistry(),
		s.GetCache(),
		stores.Records,
		stores.UserRepo,
		stores.AuditRepo,
		s.GetAuditSink(),
		s.GetNotifier(),
		auth.NewProvider(s.GetConfig()),
		report.NewGenerator(),
		nil,
	)
}

// seedUser stores an active user whose password is "secret123"
func seedUser(s *testutil.BaseServiceTestSuite, id, username string, role types.Role) *user.User {
	hash, err := auth.HashPassword("secret123")
	s.Require().NoError(err)

	now := time.Now().UTC()
	u := &user.User{
		ID:        id,
		Username:  username,
		Email:     username + "@kew.gov.my",
		Password:  hash,
		FullName:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.GetStores().UserRepo.Create(context.Background(), u))
	return u
}

func staffContext() context.Context {
	return testutil.ContextAs(testutil.StaffID, "staff", types.RoleStaff)
}

func managerContext() context.Context {
	return testutil.ContextAs(testutil.ManagerID, "manager", types.RoleManager)
}
