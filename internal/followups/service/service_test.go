package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idbcrm/internal/followups/models"
	"idbcrm/internal/followups/store"
	leadModels "idbcrm/internal/leads/models"
	leadService "idbcrm/internal/leads/service"
	leadStore "idbcrm/internal/leads/store"
	noteModels "idbcrm/internal/notes/models"
	noteService "idbcrm/internal/notes/service"
	noteStore "idbcrm/internal/notes/store"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	timelineService "idbcrm/internal/timeline/service"
	timelineStore "idbcrm/internal/timeline/store"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
	"idbcrm/pkg/testutil"
)

type FollowUpServiceSuite struct {
	suite.Suite
	svc      *Service
	leads    *leadService.Service
	notes    *noteService.Service
	timeline *timelineService.Service

	branchA        domain.BranchID
	staffA, staffB scope.Actor
	managerA       scope.Actor
	admin          scope.Actor
	day            time.Time
}

func TestFollowUpServiceSuite(t *testing.T) {
	suite.Run(t, new(FollowUpServiceSuite))
}

func (s *FollowUpServiceSuite) SetupTest() {
	ls := leadStore.NewInMemory()
	guard := leadService.NewGuard(ls)
	s.timeline = timelineService.New(timelineStore.NewInMemory(), guard)
	s.leads = leadService.New(ls, guard, s.timeline)
	s.notes = noteService.New(noteStore.NewInMemory(), guard, s.timeline)
	s.svc = New(store.NewInMemory(ls), guard, s.timeline)

	s.branchA = domain.New[domain.BranchID]()
	s.staffA = testutil.BranchActor(scope.RoleStaff, s.branchA)
	s.managerA = testutil.BranchActor(scope.RoleBranchManager, s.branchA)
	s.staffB = testutil.BranchActor(scope.RoleStaff, domain.New[domain.BranchID]())
	s.admin = testutil.Admin()
	s.day = time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
}

func (s *FollowUpServiceSuite) at(minutes int) context.Context {
	return requestcontext.WithTime(context.Background(), s.day.Add(9*time.Hour+time.Duration(minutes)*time.Minute))
}

func (s *FollowUpServiceSuite) newLead(ctx context.Context, actor scope.Actor, name string) *leadModels.Lead {
	lead, err := s.leads.Create(ctx, actor, leadModels.CreateLeadInput{Contact: leadModels.Contact{Name: name, Mobile: "9876543210"}})
	s.Require().NoError(err)
	return lead
}

func (s *FollowUpServiceSuite) schedule(ctx context.Context, actor scope.Actor, leadID domain.LeadID, title string, due time.Time) *models.FollowUp {
	f, err := s.svc.Create(ctx, actor, models.CreateFollowUpInput{LeadID: leadID, Title: title, DueDate: due})
	s.Require().NoError(err)
	return f
}

// A lead's full lifecycle produces exactly five events, newest first.
func (s *FollowUpServiceSuite) TestLeadLifecycleTimeline() {
	lead := s.newLead(s.at(0), s.staffA, "Asha")

	_, err := s.notes.Create(s.at(1), s.staffA, noteModels.CreateNoteInput{LeadID: lead.ID, Text: "Called"})
	s.Require().NoError(err)

	f := s.schedule(s.at(2), s.staffA, lead.ID, "Send brochure", s.day.Add(15*time.Hour))

	done := true
	_, err = s.svc.Update(s.at(3), s.staffA, f.ID, models.UpdateFollowUpInput{Completed: &done})
	s.Require().NoError(err)

	hot := leadModels.StatusHot
	_, err = s.leads.Update(s.at(4), s.staffA, lead.ID, leadModels.UpdateLeadInput{Status: &hot})
	s.Require().NoError(err)

	page, err := s.timeline.ListForLead(context.Background(), s.managerA, lead.ID, timelineModels.PageRequest{})
	s.Require().NoError(err)
	s.Require().Len(page.Events, 5)
	got := make([]timelineModels.EventType, len(page.Events))
	for i, e := range page.Events {
		got[i] = e.Type
	}
	s.Equal([]timelineModels.EventType{
		timelineModels.EventStatusChanged,
		timelineModels.EventFollowUpCompleted,
		timelineModels.EventFollowUpAdded,
		timelineModels.EventNoteAdded,
		timelineModels.EventLeadCreated,
	}, got)
	s.Equal("hot", page.Events[0].NewState)
	s.Equal("Send brochure", page.Events[1].NewState)
}

func (s *FollowUpServiceSuite) TestCompletionRecordsOnce() {
	lead := s.newLead(s.at(0), s.staffA, "Bina")
	f := s.schedule(s.at(1), s.staffA, lead.ID, "Call back", s.day.Add(12*time.Hour))

	done := true
	first, err := s.svc.Update(s.at(2), s.staffA, f.ID, models.UpdateFollowUpInput{Completed: &done})
	s.Require().NoError(err)
	s.Require().NotNil(first.CompletedAt)

	second, err := s.svc.Update(s.at(3), s.staffA, f.ID, models.UpdateFollowUpInput{Completed: &done})
	s.Require().NoError(err)
	s.Equal(*first.CompletedAt, *second.CompletedAt)

	undone := false
	reopened, err := s.svc.Update(s.at(4), s.staffA, f.ID, models.UpdateFollowUpInput{Completed: &undone})
	s.Require().NoError(err)
	s.Nil(reopened.CompletedAt)

	page, err := s.timeline.ListForLead(context.Background(), s.admin, lead.ID, timelineModels.PageRequest{})
	s.Require().NoError(err)
	completions := 0
	for _, e := range page.Events {
		if e.Type == timelineModels.EventFollowUpCompleted {
			completions++
		}
	}
	s.Equal(1, completions)
}

func (s *FollowUpServiceSuite) TestListDueIsScoped() {
	ctx := s.at(0)
	leadA := s.newLead(ctx, s.staffA, "A")
	leadB := s.newLead(ctx, s.staffB, "B")
	s.schedule(ctx, s.staffA, leadA.ID, "today A", s.day.Add(11*time.Hour))
	s.schedule(ctx, s.staffB, leadB.ID, "today B", s.day.Add(10*time.Hour))
	s.schedule(ctx, s.staffA, leadA.ID, "tomorrow A", s.day.Add(30*time.Hour))
	closed := s.schedule(ctx, s.staffA, leadA.ID, "done A", s.day.Add(8*time.Hour))
	done := true
	_, err := s.svc.Update(ctx, s.staffA, closed.ID, models.UpdateFollowUpInput{Completed: &done})
	s.Require().NoError(err)

	due, err := s.svc.ListDue(ctx, s.managerA, s.day.Add(13*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal("today A", due[0].Title)
	s.Equal("A", due[0].LeadName)

	due, err = s.svc.ListDue(ctx, s.admin, s.day)
	s.Require().NoError(err)
	s.Require().Len(due, 2)
	s.Equal("today B", due[0].Title)
}

func (s *FollowUpServiceSuite) TestDeleteRules() {
	ctx := s.at(0)
	lead := s.newLead(ctx, s.staffA, "C")
	f := s.schedule(ctx, s.staffA, lead.ID, "visit", s.day)

	err := s.svc.Delete(ctx, s.managerA, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.svc.Delete(ctx, s.staffB, f.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Require().NoError(s.svc.Delete(ctx, s.staffA, f.ID))
	list, err := s.svc.ListForLead(ctx, s.staffA, lead.ID)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *FollowUpServiceSuite) TestUpdateRules() {
	lead := s.newLead(s.at(0), s.staffA, "E")
	f := s.schedule(s.at(1), s.staffA, lead.ID, "visit", s.day)

	title := "reassigned visit"
	done := true
	_, err := s.svc.Update(s.at(2), s.managerA, f.ID, models.UpdateFollowUpInput{Title: &title, Completed: &done})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Update(s.at(2), s.staffB, f.ID, models.UpdateFollowUpInput{Title: &title})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	list, err := s.svc.ListForLead(s.at(3), s.staffA, lead.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("visit", list[0].Title)
	s.False(list[0].Completed)

	page, err := s.timeline.ListForLead(context.Background(), s.admin, lead.ID, timelineModels.PageRequest{})
	s.Require().NoError(err)
	for _, e := range page.Events {
		s.NotEqual(timelineModels.EventFollowUpCompleted, e.Type)
	}

	renamed := "home visit"
	updated, err := s.svc.Update(s.at(4), s.admin, f.ID, models.UpdateFollowUpInput{Title: &renamed})
	s.Require().NoError(err)
	s.Equal("home visit", updated.Title)
}

func (s *FollowUpServiceSuite) TestCreateOnHiddenLead() {
	lead := s.newLead(s.at(0), s.staffA, "D")
	_, err := s.svc.Create(s.at(1), s.staffB, models.CreateFollowUpInput{LeadID: lead.ID, Title: "x", DueDate: s.day})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
