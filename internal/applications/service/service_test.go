package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idbcrm/internal/applications/models"
	"idbcrm/internal/applications/store"
	leadModels "idbcrm/internal/leads/models"
	leadService "idbcrm/internal/leads/service"
	leadStore "idbcrm/internal/leads/store"
	"idbcrm/internal/platform/blob"
	"idbcrm/internal/scope"
	timelineModels "idbcrm/internal/timeline/models"
	timelineService "idbcrm/internal/timeline/service"
	timelineStore "idbcrm/internal/timeline/store"
	"idbcrm/pkg/domain"
	dErrors "idbcrm/pkg/domain-errors"
	"idbcrm/pkg/testutil"
)

type fakeUploader struct {
	mu      sync.Mutex
	objects []blob.Object
	fail    bool
}

func (f *fakeUploader) Upload(_ context.Context, obj blob.Object) (string, error) {
	if f.fail {
		return "", errors.New("storage unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects = append(f.objects, obj)
	return "https://files.test/" + obj.Bucket + "/" + obj.Prefix + "/" + obj.Filename, nil
}

type ApplicationServiceSuite struct {
	suite.Suite
	svc      *Service
	store    *store.InMemory
	uploader *fakeUploader
	timeline *timelineService.Service

	staffA, staffB, admin scope.Actor
	lead                  *leadModels.Lead
}

func TestApplicationServiceSuite(t *testing.T) {
	suite.Run(t, new(ApplicationServiceSuite))
}

func (s *ApplicationServiceSuite) SetupTest() {
	ls := leadStore.NewInMemory()
	guard := leadService.NewGuard(ls)
	s.timeline = timelineService.New(timelineStore.NewInMemory(), guard)
	s.store = store.NewInMemory()
	s.uploader = &fakeUploader{}
	s.svc = New(s.store, guard, s.timeline, WithUploader(s.uploader, ""))

	branchA := domain.New[domain.BranchID]()
	s.staffA = testutil.BranchActor(scope.RoleStaff, branchA)
	s.staffB = testutil.BranchActor(scope.RoleStaff, domain.New[domain.BranchID]())
	s.admin = testutil.Admin()

	var err error
	s.lead, err = leadService.New(ls, guard, s.timeline).Create(context.Background(), s.staffA, leadModels.CreateLeadInput{
		Contact: leadModels.Contact{Name: "Ravi", Email: "ravi@example.com"},
	})
	s.Require().NoError(err)
}

func (s *ApplicationServiceSuite) lastEvent() *timelineModels.Event {
	page, err := s.timeline.ListForLead(context.Background(), s.admin, s.lead.ID, timelineModels.PageRequest{})
	s.Require().NoError(err)
	s.Require().NotEmpty(page.Events)
	return page.Events[0]
}

func (s *ApplicationServiceSuite) TestGetBeforeAnyUpdateIsNotFound() {
	_, err := s.svc.Get(context.Background(), s.staffA, s.lead.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ApplicationServiceSuite) TestFirstUpdateCreatesApplication() {
	ctx := context.Background()
	dob, err := models.ParseDate("2001-04-09")
	s.Require().NoError(err)

	detail, err := s.svc.UpdatePersonal(ctx, s.staffA, s.lead.ID, models.PersonalInput{
		DateOfBirth:    dob,
		Nationality:    " Indian ",
		PassportNumber: "z1234567",
		FatherName:     "Mohan",
	})
	s.Require().NoError(err)
	s.Regexp(regexp.MustCompile(`^STU-\d{6}$`), detail.StudentID)
	s.Equal("Indian", detail.Nationality)
	s.Equal("Z1234567", detail.PassportNumber)
	s.Require().NotNil(detail.Family)
	s.Equal("Mohan", detail.Family.FatherName)
	s.Nil(detail.Visa)
	s.Empty(detail.Education)

	again, err := s.svc.UpdatePreferences(ctx, s.staffA, s.lead.ID, models.PreferencesInput{PreferredCountry: "Canada"})
	s.Require().NoError(err)
	s.Equal(detail.ID, again.ID, "second update reuses the application")
	s.Equal(detail.StudentID, again.StudentID)
	s.Equal("Canada", again.Preferences.PreferredCountry)

	ev := s.lastEvent()
	s.Equal(timelineModels.EventApplicationUpdated, ev.Type)
	s.Equal(string(models.SectionPreferences), ev.NewState)
}

func (s *ApplicationServiceSuite) TestOneToOneSectionsAreReplaced() {
	ctx := context.Background()
	_, err := s.svc.UpdateVisa(ctx, s.staffA, s.lead.ID, models.VisaInput{VisaCountry: "UK", VisaStatus: "applied"})
	s.Require().NoError(err)
	detail, err := s.svc.UpdateVisa(ctx, s.staffA, s.lead.ID, models.VisaInput{VisaCountry: "UK", VisaStatus: "granted"})
	s.Require().NoError(err)
	s.Equal("granted", detail.Visa.VisaStatus)
}

func (s *ApplicationServiceSuite) TestRecordsCreateThenUpdate() {
	ctx := context.Background()
	detail, err := s.svc.UpdateEducation(ctx, s.staffA, s.lead.ID, models.EducationInput{Records: []*models.Education{
		{Institution: "DPS", Qualification: "12th"},
		{Institution: "DU", Qualification: "BSc", StartYear: 2019, EndYear: 2022},
	}})
	s.Require().NoError(err)
	s.Require().Len(detail.Education, 2)
	s.Equal("DPS", detail.Education[0].Institution)
	s.Require().NotNil(detail.Education[1].ID)

	id := *detail.Education[1].ID
	detail, err = s.svc.UpdateEducation(ctx, s.staffA, s.lead.ID, models.EducationInput{Records: []*models.Education{
		{ID: &id, Institution: "DU", Qualification: "BSc (Hons)", StartYear: 2019, EndYear: 2022},
	}})
	s.Require().NoError(err)
	s.Require().Len(detail.Education, 2, "update with an id does not create")
	s.Equal("BSc (Hons)", detail.Education[1].Qualification)
	s.Equal(id, *detail.Education[1].ID)
}

func (s *ApplicationServiceSuite) TestNullRecordIsRejected() {
	ctx := context.Background()
	_, err := s.svc.UpdateEducation(ctx, s.staffA, s.lead.ID, models.EducationInput{Records: []*models.Education{nil}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.UpdateTests(ctx, s.staffA, s.lead.ID, models.TestsInput{Records: []*models.TestScore{
		{TestType: "ielts"}, nil,
	}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.UpdateWorkExperience(ctx, s.staffA, s.lead.ID, models.WorkExperienceInput{Records: []*models.WorkExperience{nil}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ApplicationServiceSuite) TestRecordIDFromAnotherListIsNotFound() {
	ctx := context.Background()
	detail, err := s.svc.UpdateTests(ctx, s.staffA, s.lead.ID, models.TestsInput{Records: []*models.TestScore{
		{TestType: "ielts", OverallScore: "7.5"},
	}})
	s.Require().NoError(err)
	s.Equal("IELTS", detail.Tests[0].TestType)

	testID := *detail.Tests[0].ID
	_, err = s.svc.UpdateWorkExperience(ctx, s.staffA, s.lead.ID, models.WorkExperienceInput{Records: []*models.WorkExperience{
		{ID: &testID, Company: "Infosys"},
	}})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.UpdateEducation(ctx, s.staffA, s.lead.ID, models.EducationInput{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ApplicationServiceSuite) TestHiddenLead() {
	ctx := context.Background()
	_, err := s.svc.UpdateVisa(ctx, s.staffB, s.lead.ID, models.VisaInput{VisaCountry: "UK"})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.svc.UpdateDocuments(ctx, s.staffB, s.lead.ID, []models.File{
		{Slot: models.SlotSOP, Filename: "sop.pdf", Body: []byte("%PDF")},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Empty(s.uploader.objects, "nothing is uploaded for a hidden lead")

	_, err = s.store.FindByLead(ctx, s.lead.ID)
	s.Error(err, "no application is created for a hidden lead")
}

func (s *ApplicationServiceSuite) TestDocumentsReplaceAndAppend() {
	ctx := context.Background()
	_, err := s.svc.UpdateDocuments(ctx, s.staffA, s.lead.ID, []models.File{
		{Slot: models.SlotPassportCopy, Filename: "passport-v1.pdf", Body: []byte("v1")},
		{Slot: models.SlotAcademicDocuments, Filename: "10th.pdf", Body: []byte("a")},
	})
	s.Require().NoError(err)

	detail, err := s.svc.UpdateDocuments(ctx, s.admin, s.lead.ID, []models.File{
		{Slot: models.SlotPassportCopy, Filename: "passport-v2.pdf", Body: []byte("v2")},
		{Slot: models.SlotAcademicDocuments, Filename: "12th.pdf", Body: []byte("b")},
	})
	s.Require().NoError(err)
	s.Contains(detail.Documents.PassportCopy, "passport-v2.pdf")
	s.Len(detail.Documents.AcademicDocuments, 2)

	s.Len(s.uploader.objects, 4)
	for _, obj := range s.uploader.objects {
		s.Equal(DefaultDocumentBucket, obj.Bucket)
		s.Equal("applications/"+s.lead.ID.String(), obj.Prefix)
	}
	s.Equal(string(models.SectionDocuments), s.lastEvent().NewState)
}

func (s *ApplicationServiceSuite) TestUploadFailureWritesNothing() {
	s.uploader.fail = true
	_, err := s.svc.UpdateDocuments(context.Background(), s.staffA, s.lead.ID, []models.File{
		{Slot: models.SlotCVResume, Filename: "cv.pdf", Body: []byte("cv")},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	_, err = s.store.FindByLead(context.Background(), s.lead.ID)
	s.Error(err)
}

func (s *ApplicationServiceSuite) TestDocumentValidation() {
	_, err := s.svc.UpdateDocuments(context.Background(), s.staffA, s.lead.ID, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.UpdateDocuments(context.Background(), s.staffA, s.lead.ID, []models.File{
		{Slot: "selfie", Filename: "me.jpg", Body: []byte("x")},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ApplicationServiceSuite) TestFutureBirthDateRejected() {
	_, err := s.svc.UpdatePersonal(context.Background(), s.staffA, s.lead.ID, models.PersonalInput{
		DateOfBirth: models.Date{Time: time.Now().AddDate(1, 0, 0)},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ApplicationServiceSuite) TestStudentIDFormat() {
	for range 50 {
		s.Regexp(`^STU-\d{6}$`, NewStudentID())
	}
}
