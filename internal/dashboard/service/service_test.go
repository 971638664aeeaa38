package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/suite"

	"idbcrm/internal/dashboard/cache"
	"idbcrm/internal/dashboard/models"
	leadModels "idbcrm/internal/leads/models"
	leadStore "idbcrm/internal/leads/store"
	"idbcrm/internal/scope"
	"idbcrm/pkg/domain"
	"idbcrm/pkg/requestcontext"
	"idbcrm/pkg/testutil"
)

type brokenCache struct{ sets int }

func (b *brokenCache) Get(context.Context, string) (*models.Stats, error) {
	return nil, errors.New("redis unavailable")
}

func (b *brokenCache) Set(context.Context, string, *models.Stats, time.Duration) error {
	b.sets++
	return errors.New("redis unavailable")
}

type DashboardServiceSuite struct {
	suite.Suite
	leads   *leadStore.InMemory
	staffA  scope.Actor
	agent   scope.Actor
	admin   scope.Actor
	branchA domain.BranchID
	now     time.Time
}

func TestDashboardServiceSuite(t *testing.T) {
	suite.Run(t, new(DashboardServiceSuite))
}

func (s *DashboardServiceSuite) SetupTest() {
	s.leads = leadStore.NewInMemory()
	s.branchA = domain.New[domain.BranchID]()
	s.staffA = testutil.BranchActor(scope.RoleStaff, s.branchA)
	s.agent = testutil.Agent()
	s.admin = testutil.Admin()
	s.now = time.Date(2026, 1, 8, 15, 30, 0, 0, time.UTC)
}

func (s *DashboardServiceSuite) ctx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

func (s *DashboardServiceSuite) seed(owner scope.Actor, typ leadModels.Type, status leadModels.Status, source string, daysAgo int) {
	created := s.now.AddDate(0, 0, -daysAgo)
	s.Require().NoError(s.leads.Create(context.Background(), &leadModels.Lead{
		ID: domain.New[domain.LeadID](), Name: "x", Type: typ, Status: status, UTMSource: source,
		BranchID: owner.BranchID, CreatedBy: owner.ID, CreatedAt: created, UpdatedAt: created,
	}))
}

func (s *DashboardServiceSuite) TestStatsAreScopedAndShaped() {
	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusNew, "", 0)
	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusConverted, "facebook", 1)
	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusRejected, "facebook", 6)
	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusNew, "google", 9)
	s.seed(s.staffA, leadModels.TypeStudent, leadModels.StatusConverted, "", 0)
	s.seed(s.agent, leadModels.TypeLead, leadModels.StatusNew, "", 0)

	st, err := New(s.leads).Stats(s.ctx(), s.staffA)
	s.Require().NoError(err)
	s.Equal(models.Metrics{Total: 4, TodaysLeads: 1, Converted: 1, Rejected: 1}, st.Metrics)
	s.Equal([]models.Bucket{{Name: "facebook", Count: 2}, {Name: "Direct", Count: 1}, {Name: "google", Count: 1}}, st.BySource)
	s.Equal(models.Bucket{Name: "new", Count: 2}, st.ByStatus[0])

	s.Require().Len(st.Last7Days, 7)
	s.Equal("Jan 02", st.Last7Days[0].Label)
	s.Equal("Jan 08", st.Last7Days[6].Label)
	counts := make([]int, 7)
	for i, d := range st.Last7Days {
		counts[i] = d.Count
	}
	s.Equal([]int{1, 0, 0, 0, 0, 1, 1}, counts)

	st, err = New(s.leads).Stats(s.ctx(), s.admin)
	s.Require().NoError(err)
	s.Equal(5, st.Metrics.Total)
}

func (s *DashboardServiceSuite) TestDayBoundariesFollowLocation() {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	s.Require().NoError(err)
	// 2026-01-08 20:00 UTC is already Jan 09 in Kolkata.
	s.now = time.Date(2026, 1, 8, 20, 0, 0, 0, time.UTC)
	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusNew, "", 0)

	st, err := New(s.leads, WithLocation(kolkata)).Stats(s.ctx(), s.staffA)
	s.Require().NoError(err)
	s.Equal("Jan 09", st.Last7Days[6].Label)
	s.Equal(1, st.Metrics.TodaysLeads)
	s.Equal(1, st.Last7Days[6].Count)
}

func (s *DashboardServiceSuite) TestCachedPerScope() {
	svc := New(s.leads, WithCache(cache.NewMemory(), time.Minute))
	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusNew, "", 0)

	first, err := svc.Stats(s.ctx(), s.staffA)
	s.Require().NoError(err)
	s.Equal(1, first.Metrics.Total)

	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusNew, "", 0)
	colleague := testutil.BranchActor(scope.RoleBranchManager, s.branchA)
	cached, err := svc.Stats(s.ctx(), colleague)
	s.Require().NoError(err)
	s.Equal(1, cached.Metrics.Total)

	fresh, err := svc.Stats(s.ctx(), s.admin)
	s.Require().NoError(err)
	s.Equal(2, fresh.Metrics.Total)
}

func (s *DashboardServiceSuite) TestCacheFailureFallsThrough() {
	broken := &brokenCache{}
	s.seed(s.staffA, leadModels.TypeLead, leadModels.StatusNew, "", 0)
	st, err := New(s.leads, WithCache(broken, 0)).Stats(s.ctx(), s.staffA)
	s.Require().NoError(err)
	s.Equal(1, st.Metrics.Total)
	s.Equal(1, broken.sets)
}
