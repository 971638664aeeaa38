package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idbcrm/internal/scope"
	"idbcrm/internal/timeline/models"
	"idbcrm/internal/timeline/store"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/requestcontext"
	"idbcrm/pkg/testutil"
)

type fakeGuard struct {
	visible map[domain.LeadID]bool
}

func (g *fakeGuard) Check(_ context.Context, _ scope.Actor, sc scope.Scope, id domain.LeadID) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if !g.visible[id] {
		return dErrors.New(dErrors.CodeNotFound, "lead not found")
	}
	return nil
}

type TimelineServiceSuite struct {
	suite.Suite
	svc    *Service
	store  *store.InMemory
	guard  *fakeGuard
	actor  scope.Actor
	leadID domain.LeadID
}

func TestTimelineServiceSuite(t *testing.T) {
	suite.Run(t, new(TimelineServiceSuite))
}

func (s *TimelineServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.leadID = domain.New[domain.LeadID]()
	s.guard = &fakeGuard{visible: map[domain.LeadID]bool{s.leadID: true}}
	s.svc = New(s.store, s.guard)
	s.actor = testutil.Admin()
}

func (s *TimelineServiceSuite) record(ctx context.Context, t models.EventType, state string) *models.Event {
	e, err := s.svc.Record(ctx, models.RecordInput{LeadID: s.leadID, Type: t, ActorID: s.actor.ID, NewState: state})
	s.Require().NoError(err)
	return e
}

func (s *TimelineServiceSuite) TestRecord() {
	s.Run("stamps id and request time", func() {
		at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
		e := s.record(requestcontext.WithTime(context.Background(), at), models.EventLeadCreated, "Asha")
		s.False(domain.IsNil(e.ID))
		s.Equal(at, e.CreatedAt)
		s.Positive(e.Seq)
	})

	s.Run("rejects unknown type and missing actor", func() {
		_, err := s.svc.Record(context.Background(), models.RecordInput{LeadID: s.leadID, Type: "LEAD_EXPLODED", ActorID: s.actor.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.svc.Record(context.Background(), models.RecordInput{LeadID: s.leadID, Type: models.EventNoteAdded})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *TimelineServiceSuite) TestListNewestFirstWithTiebreak() {
	same := requestcontext.WithTime(context.Background(), time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	later := requestcontext.WithTime(context.Background(), time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	s.record(same, models.EventLeadCreated, "Asha")
	s.record(same, models.EventStatusChanged, "hot")
	s.record(later, models.EventNoteAdded, "called back")

	page, err := s.svc.ListForLead(context.Background(), s.actor, s.leadID, models.PageRequest{})
	s.Require().NoError(err)
	s.Require().Len(page.Events, 3)
	s.Equal(models.EventNoteAdded, page.Events[0].Type)
	s.Equal(models.EventStatusChanged, page.Events[1].Type)
	s.Equal(models.EventLeadCreated, page.Events[2].Type)
	s.Empty(page.NextCursor)
}

func (s *TimelineServiceSuite) TestCursorPaging() {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := range 5 {
		ctx := requestcontext.WithTime(context.Background(), base.Add(time.Duration(i)*time.Minute))
		s.record(ctx, models.EventNoteAdded, string(rune('a'+i)))
	}

	first, err := s.svc.ListForLead(context.Background(), s.actor, s.leadID, models.PageRequest{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(first.Events, 2)
	s.Equal("e", first.Events[0].NewState)
	s.NotEmpty(first.NextCursor)

	second, err := s.svc.ListForLead(context.Background(), s.actor, s.leadID, models.PageRequest{Limit: 2, Cursor: first.NextCursor})
	s.Require().NoError(err)
	s.Equal([]string{"c", "b"}, []string{second.Events[0].NewState, second.Events[1].NewState})

	last, err := s.svc.ListForLead(context.Background(), s.actor, s.leadID, models.PageRequest{Limit: 2, Cursor: second.NextCursor})
	s.Require().NoError(err)
	s.Require().Len(last.Events, 1)
	s.Equal("a", last.Events[0].NewState)
	s.Empty(last.NextCursor)
}

func (s *TimelineServiceSuite) TestListScopeAndInput() {
	s.Run("lead outside scope is not found", func() {
		_, err := s.svc.ListForLead(context.Background(), s.actor, domain.New[domain.LeadID](), models.PageRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed cursor is a bad request", func() {
		_, err := s.svc.ListForLead(context.Background(), s.actor, s.leadID, models.PageRequest{Cursor: "%%%"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("empty timeline returns an empty slice", func() {
		page, err := s.svc.ListForLead(context.Background(), s.actor, s.leadID, models.PageRequest{})
		s.Require().NoError(err)
		s.NotNil(page.Events)
		s.Empty(page.Events)
	})
}
