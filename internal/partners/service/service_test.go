package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"idbcrm/internal/partners/models"
	"idbcrm/internal/partners/store"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/testutil"
)

type branchSet map[domain.BranchID]bool

func (b branchSet) Exists(_ context.Context, id domain.BranchID) (bool, error) { return b[id], nil }

type PartnerServiceSuite struct {
	suite.Suite
	ctx      context.Context
	svc      *Service
	branchA  domain.BranchID
	branchB  domain.BranchID
	admin    scope.Actor
	managerA scope.Actor
}

func TestPartnerServiceSuite(t *testing.T) {
	suite.Run(t, new(PartnerServiceSuite))
}

func (s *PartnerServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.branchA = domain.New[domain.BranchID]()
	s.branchB = domain.New[domain.BranchID]()
	s.svc = New(store.NewInMemory(), branchSet{s.branchA: true, s.branchB: true})
	s.admin = testutil.Admin()
	s.managerA = testutil.BranchActor(scope.RoleBranchManager, s.branchA)
}

func (s *PartnerServiceSuite) create(mail string, role scope.Role, branch *domain.BranchID) *models.Partner {
	p, err := s.svc.Create(s.ctx, s.admin, models.CreatePartnerInput{
		Name: "Test", Email: mail, Password: "password1", Role: role.String(), BranchID: branch,
	})
	s.Require().NoError(err)
	return p
}

func (s *PartnerServiceSuite) TestCreate() {
	s.Run("hashes password and normalizes email", func() {
		p := s.create("  Asha@IDB.in ", scope.RoleStaff, &s.branchA)
		s.Equal("asha@idb.in", p.Email)
		s.NotEqual("password1", p.PasswordHash)
		s.True(p.Active)
	})

	s.Run("duplicate email is a conflict regardless of case", func() {
		_, err := s.svc.Create(s.ctx, s.admin, models.CreatePartnerInput{
			Name: "Dup", Email: "ASHA@idb.in", Password: "password1", Role: "agent",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown branch is not found", func() {
		missing := domain.New[domain.BranchID]()
		_, err := s.svc.Create(s.ctx, s.admin, models.CreatePartnerInput{
			Name: "X", Email: "x@idb.in", Password: "password1", Role: "staff", BranchID: &missing,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-admin is forbidden", func() {
		_, err := s.svc.Create(s.ctx, s.managerA, models.CreatePartnerInput{
			Name: "X", Email: "y@idb.in", Password: "password1", Role: "staff",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("accepts hyphenated role spelling", func() {
		p := s.create("mgr@idb.in", "branch-manager", &s.branchB)
		s.Equal(scope.RoleBranchManager, p.Role)
	})
}

func (s *PartnerServiceSuite) TestVisibility() {
	inA := s.create("a@idb.in", scope.RoleStaff, &s.branchA)
	inB := s.create("b@idb.in", scope.RoleStaff, &s.branchB)
	self := inA.Actor()

	s.Run("admin sees all", func() {
		all, err := s.svc.List(s.ctx, s.admin)
		s.Require().NoError(err)
		s.Len(all, 2)
	})

	s.Run("branch manager sees own branch only", func() {
		list, err := s.svc.List(s.ctx, s.managerA)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(inA.ID, list[0].ID)

		_, err = s.svc.Get(s.ctx, s.managerA, inB.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("staff sees only self", func() {
		list, err := s.svc.List(s.ctx, self)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(inA.ID, list[0].ID)

		_, err = s.svc.Get(s.ctx, self, inB.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PartnerServiceSuite) TestUpdate() {
	p := s.create("u@idb.in", scope.RoleStaff, &s.branchA)
	self := p.Actor()

	s.Run("self may change name and mobile", func() {
		name, mobile := "Renamed", "9876543210"
		out, err := s.svc.Update(s.ctx, self, p.ID, models.UpdatePartnerInput{Name: &name, Mobile: &mobile})
		s.Require().NoError(err)
		s.Equal("Renamed", out.Name)
		s.Equal("9876543210", out.Mobile)
	})

	s.Run("self may not change role", func() {
		role := "admin"
		_, err := s.svc.Update(s.ctx, self, p.ID, models.UpdatePartnerInput{Role: &role})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("branch manager may see but not edit a member", func() {
		name := "X"
		_, err := s.svc.Update(s.ctx, s.managerA, p.ID, models.UpdatePartnerInput{Name: &name})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin moves partner between branches", func() {
		out, err := s.svc.Update(s.ctx, s.admin, p.ID, models.UpdatePartnerInput{BranchID: &s.branchB})
		s.Require().NoError(err)
		s.True(out.InBranch(s.branchB))

		out, err = s.svc.Update(s.ctx, s.admin, p.ID, models.UpdatePartnerInput{ClearBranch: true})
		s.Require().NoError(err)
		s.Nil(out.BranchID)
	})
}

func (s *PartnerServiceSuite) TestAuthenticate() {
	p := s.create("login@idb.in", scope.RoleAgent, nil)

	s.Run("valid credentials", func() {
		got, err := s.svc.Authenticate(s.ctx, "LOGIN@idb.in", "password1")
		s.Require().NoError(err)
		s.Equal(p.ID, got.ID)
	})

	s.Run("wrong password and unknown email look the same", func() {
		_, errPw := s.svc.Authenticate(s.ctx, "login@idb.in", "wrong-password")
		_, errMail := s.svc.Authenticate(s.ctx, "nobody@idb.in", "password1")
		s.True(dErrors.HasCode(errPw, dErrors.CodeUnauthorized))
		s.True(dErrors.HasCode(errMail, dErrors.CodeUnauthorized))
		s.Equal(dErrors.MessageOf(errPw), dErrors.MessageOf(errMail))
	})

	s.Run("deactivated partner cannot log in", func() {
		inactive := false
		_, err := s.svc.Update(s.ctx, s.admin, p.ID, models.UpdatePartnerInput{Active: &inactive})
		s.Require().NoError(err)

		_, err = s.svc.Authenticate(s.ctx, "login@idb.in", "password1")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		active, err := s.svc.IsActive(s.ctx, p.ID)
		s.Require().NoError(err)
		s.False(active)
	})
}

func (s *PartnerServiceSuite) TestBootstrap() {
	p, err := s.svc.Bootstrap(s.ctx, models.CreatePartnerInput{Email: "first.admin@idb.in", Password: "password1"})
	s.Require().NoError(err)
	s.Equal(scope.RoleAdmin, p.Role)
	s.Equal("First Admin", p.Name)
}
