package service

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"idbcrm/internal/leads/models"
	"idbcrm/internal/leads/store"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	timelineService "idbcrm/internal/timeline/service"
	timelineStore "idbcrm/internal/timeline/store"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
	"idbcrm/pkg/testutil"
)

type activePartners map[domain.PartnerID]bool

func (p activePartners) IsActive(_ context.Context, id domain.PartnerID) (bool, error) {
	return p[id], nil
}

type LeadServiceSuite struct {
	suite.Suite
	svc      *Service
	store    *store.InMemory
	timeline *timelineService.Service
	scopeM   *scope.Metrics
	logs     *bytes.Buffer

	branchA, branchB domain.BranchID
	admin            scope.Actor
	managerA         scope.Actor
	staffB           scope.Actor
	agent            scope.Actor
	partners         activePartners
}

func TestLeadServiceSuite(t *testing.T) {
	suite.Run(t, new(LeadServiceSuite))
}

func (s *LeadServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.logs = &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(s.logs, nil))
	s.scopeM = scope.NewMetricsWithRegisterer(prometheus.NewRegistry())

	guard := NewGuard(s.store, WithGuardLogger(logger), WithScopeMetrics(s.scopeM))
	s.timeline = timelineService.New(timelineStore.NewInMemory(), guard)

	s.branchA = domain.New[domain.BranchID]()
	s.branchB = domain.New[domain.BranchID]()
	s.admin = testutil.Admin()
	s.managerA = testutil.BranchActor(scope.RoleBranchManager, s.branchA)
	s.staffB = testutil.BranchActor(scope.RoleStaff, s.branchB)
	s.agent = testutil.Agent()
	s.partners = activePartners{s.managerA.ID: true, s.staffB.ID: true, s.agent.ID: true}

	s.svc = New(s.store, guard, s.timeline, WithLogger(logger), WithPartnerChecker(s.partners))
}

func (s *LeadServiceSuite) create(actor scope.Actor, name string) *models.Lead {
	lead, err := s.svc.Create(context.Background(), actor, models.CreateLeadInput{
		Contact: models.Contact{Name: name, Mobile: "9876543210"},
	})
	s.Require().NoError(err)
	return lead
}

func (s *LeadServiceSuite) events(id domain.LeadID) []*timelineModels.Event {
	page, err := s.timeline.ListForLead(context.Background(), s.admin, id, timelineModels.PageRequest{})
	s.Require().NoError(err)
	return page.Events
}

func (s *LeadServiceSuite) TestCreate() {
	s.Run("defaults branch, status and creator", func() {
		lead := s.create(s.managerA, "Asha Rao")
		s.Equal(models.StatusNew, lead.Status)
		s.Equal(models.TypeLead, lead.Type)
		s.Equal(s.managerA.ID, lead.CreatedBy)
		s.Require().NotNil(lead.BranchID)
		s.Equal(s.branchA, *lead.BranchID)
	})

	s.Run("records exactly one LEAD_CREATED event", func() {
		lead := s.create(s.agent, "Ravi")
		events := s.events(lead.ID)
		s.Require().Len(events, 1)
		s.Equal(timelineModels.EventLeadCreated, events[0].Type)
		s.Equal("Ravi", events[0].NewState)
	})

	s.Run("non-admin cannot choose another branch", func() {
		lead, err := s.svc.Create(context.Background(), s.managerA, models.CreateLeadInput{
			Contact:  models.Contact{Name: "Mira", Email: "mira@example.com"},
			BranchID: &s.branchB,
		})
		s.Require().NoError(err)
		s.Equal(s.branchA, *lead.BranchID)
	})

	s.Run("admin may place a lead in any branch", func() {
		lead, err := s.svc.Create(context.Background(), s.admin, models.CreateLeadInput{
			Contact:  models.Contact{Name: "Kabir", Email: "kabir@example.com"},
			BranchID: &s.branchB,
		})
		s.Require().NoError(err)
		s.Equal(s.branchB, *lead.BranchID)
	})

	s.Run("status is canonicalised like on update", func() {
		lead, err := s.svc.Create(context.Background(), s.admin, models.CreateLeadInput{
			Contact: models.Contact{Name: "Isha", Email: "isha@example.com"},
			Status:  "In-Progress",
		})
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, lead.Status)

		_, err = s.svc.Create(context.Background(), s.admin, models.CreateLeadInput{
			Contact: models.Contact{Name: "Dev", Email: "dev@example.com"},
			Status:  "lukewarm",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("requires a contact channel", func() {
		_, err := s.svc.Create(context.Background(), s.admin, models.CreateLeadInput{Contact: models.Contact{Name: "Nobody"}})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects inactive assignee", func() {
		stranger := domain.New[domain.PartnerID]()
		_, err := s.svc.Create(context.Background(), s.admin, models.CreateLeadInput{
			Contact:    models.Contact{Name: "Tara", Mobile: "9000000000"},
			AssignedTo: &stranger,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *LeadServiceSuite) TestScopeIsolation() {
	inA := s.create(s.managerA, "Branch A lead")
	inB := s.create(s.staffB, "Branch B lead")
	mine := s.create(s.agent, "Agent lead")
	ctx := context.Background()

	s.Run("branch manager sees only their branch", func() {
		res, err := s.svc.List(ctx, s.managerA, models.ListFilter{})
		s.Require().NoError(err)
		s.Require().Len(res.Items, 1)
		s.Equal(inA.ID, res.Items[0].ID)
		s.Equal(1, res.Total)
	})

	s.Run("agent sees only what they created", func() {
		res, err := s.svc.List(ctx, s.agent, models.ListFilter{})
		s.Require().NoError(err)
		s.Require().Len(res.Items, 1)
		s.Equal(mine.ID, res.Items[0].ID)
	})

	s.Run("admin sees everything", func() {
		res, err := s.svc.List(ctx, s.admin, models.ListFilter{})
		s.Require().NoError(err)
		s.Equal(3, res.Total)
	})

	s.Run("out of scope lead is not found and counted as a denial", func() {
		_, err := s.svc.Get(ctx, s.managerA, inB.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(1.0, promtest.ToFloat64(s.scopeM.Denials.WithLabelValues("lead")))
		s.Contains(s.logs.String(), `"msg":"scope_denied"`)
		s.Contains(s.logs.String(), `"actor_id":"`+s.managerA.ID.String()+`"`)
	})

	s.Run("missing lead is not found without a denial", func() {
		before := promtest.ToFloat64(s.scopeM.Denials.WithLabelValues("lead"))
		_, err := s.svc.Get(ctx, s.managerA, domain.New[domain.LeadID]())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.Equal(before, promtest.ToFloat64(s.scopeM.Denials.WithLabelValues("lead")))
	})

	s.Run("update outside scope is not found", func() {
		status := models.StatusHot
		_, err := s.svc.Update(ctx, s.agent, inA.ID, models.UpdateLeadInput{Status: &status})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("zero actor is rejected", func() {
		_, err := s.svc.List(ctx, scope.Actor{}, models.ListFilter{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *LeadServiceSuite) TestListFilterAndPaging() {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	for i, name := range []string{"Anil", "Bina", "Chetan", "Divya"} {
		_, err := s.svc.Create(requestcontext.WithTime(ctx, base.Add(time.Duration(i)*time.Hour)), s.admin,
			models.CreateLeadInput{Contact: models.Contact{Name: name, Mobile: "90000000" + string(rune('0'+i)) + "0"}})
		s.Require().NoError(err)
	}

	res, err := s.svc.List(ctx, s.admin, models.ListFilter{Limit: 2, Offset: 1})
	s.Require().NoError(err)
	s.Equal(4, res.Total)
	s.Require().Len(res.Items, 2)
	s.Equal("Chetan", res.Items[0].Name)
	s.Equal("Bina", res.Items[1].Name)

	res, err = s.svc.List(ctx, s.admin, models.ListFilter{Search: "div"})
	s.Require().NoError(err)
	s.Require().Len(res.Items, 1)
	s.Equal("Divya", res.Items[0].Name)

	res, err = s.svc.List(ctx, s.admin, models.ListFilter{Statuses: []models.Status{models.StatusHot}})
	s.Require().NoError(err)
	s.Empty(res.Items)
	s.NotNil(res.Items)
}

func (s *LeadServiceSuite) TestUpdate() {
	ctx := context.Background()

	s.Run("assignment promotes a new lead and records both events", func() {
		lead := s.create(s.managerA, "Asha")
		assignee := s.managerA.ID
		updated, err := s.svc.Update(ctx, s.managerA, lead.ID, models.UpdateLeadInput{AssignedTo: &assignee})
		s.Require().NoError(err)
		s.Equal(models.StatusAssigned, updated.Status)

		events := s.events(lead.ID)
		s.Require().Len(events, 3)
		types := []timelineModels.EventType{events[0].Type, events[1].Type, events[2].Type}
		s.ElementsMatch([]timelineModels.EventType{
			timelineModels.EventStatusChanged, timelineModels.EventAssigned, timelineModels.EventLeadCreated,
		}, types)
		s.Equal(timelineModels.EventLeadCreated, events[2].Type)
	})

	s.Run("explicit status wins over promotion", func() {
		lead := s.create(s.managerA, "Bina")
		assignee := s.managerA.ID
		status := models.StatusHot
		updated, err := s.svc.Update(ctx, s.managerA, lead.ID, models.UpdateLeadInput{AssignedTo: &assignee, Status: &status})
		s.Require().NoError(err)
		s.Equal(models.StatusHot, updated.Status)
	})

	s.Run("unchanged status records nothing", func() {
		lead := s.create(s.managerA, "Chetan")
		status := models.StatusNew
		city := "Pune"
		updated, err := s.svc.Update(ctx, s.managerA, lead.ID, models.UpdateLeadInput{Status: &status, City: &city})
		s.Require().NoError(err)
		s.Equal("Pune", updated.City)
		s.Len(s.events(lead.ID), 1)
	})

	s.Run("only admins move leads between branches", func() {
		lead := s.create(s.managerA, "Divya")
		_, err := s.svc.Update(ctx, s.managerA, lead.ID, models.UpdateLeadInput{BranchID: &s.branchB})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		updated, err := s.svc.Update(ctx, s.admin, lead.ID, models.UpdateLeadInput{BranchID: &s.branchB})
		s.Require().NoError(err)
		s.Equal(s.branchB, *updated.BranchID)
	})
}

func (s *LeadServiceSuite) TestBulkUpdateStatus() {
	ctx := context.Background()
	a1 := s.create(s.managerA, "A1")
	a2 := s.create(s.managerA, "A2")
	b1 := s.create(s.staffB, "B1")

	s.Run("an out of scope id aborts the whole batch", func() {
		_, err := s.svc.BulkUpdateStatus(ctx, s.managerA, models.BulkStatusInput{
			IDs: []domain.LeadID{a1.ID, a2.ID, b1.ID}, Status: models.StatusCold,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		for _, id := range []domain.LeadID{a1.ID, a2.ID} {
			lead, err := s.svc.Get(ctx, s.managerA, id)
			s.Require().NoError(err)
			s.Equal(models.StatusNew, lead.Status)
		}
	})

	s.Run("changes every lead and skips those already in the status", func() {
		status := models.StatusCold
		_, err := s.svc.Update(ctx, s.managerA, a2.ID, models.UpdateLeadInput{Status: &status})
		s.Require().NoError(err)

		n, err := s.svc.BulkUpdateStatus(ctx, s.managerA, models.BulkStatusInput{
			IDs: []domain.LeadID{a1.ID, a2.ID, a1.ID}, Status: "COLD",
		})
		s.Require().NoError(err)
		s.Equal(1, n)
		s.Len(s.events(a1.ID), 2)
		s.Len(s.events(a2.ID), 2)
	})

	s.Run("validates the request", func() {
		_, err := s.svc.BulkUpdateStatus(ctx, s.admin, models.BulkStatusInput{Status: models.StatusHot})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
