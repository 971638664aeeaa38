package models

import (
	"slices"

	dErrors "idbcrm/pkg/domain-errors"
)

// Slot names a document field on the upload form.
type Slot string

const (
	SlotProfilePhoto          Slot = "profile_photo"
	SlotPassportCopy          Slot = "passport_copy"
	SlotEnglishTestCert       Slot = "english_test_cert"
	SlotSOP                   Slot = "sop"
	SlotCVResume              Slot = "cv_resume"
	SlotFinancialDocuments    Slot = "financial_documents"
	SlotOtherDocuments        Slot = "other_documents"
	SlotAcademicDocuments     Slot = "academic_documents"
	SlotRecommendationLetters Slot = "recommendation_letters"
)

// Slots lists every accepted slot.
var Slots = []Slot{
	SlotProfilePhoto, SlotPassportCopy, SlotEnglishTestCert, SlotSOP, SlotCVResume,
	SlotFinancialDocuments, SlotOtherDocuments, SlotAcademicDocuments, SlotRecommendationLetters,
}

// IsList reports whether uploads to the slot append rather than replace.
func (s Slot) IsList() bool {
	return s == SlotAcademicDocuments || s == SlotRecommendationLetters
}

func (s Slot) IsValid() bool { return slices.Contains(Slots, s) }

const (
	// MaxFileBytes bounds a single uploaded document.
	MaxFileBytes = 10 << 20
	// MaxFilesPerRequest bounds one documents update.
	MaxFilesPerRequest = 20
)

// File is one uploaded document.
type File struct {
	Slot        Slot
	Filename    string
	ContentType string
	Body        []byte
}

// ValidateFiles rejects empty or oversized uploads and unknown slots.
func ValidateFiles(files []File) error {
	if len(files) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no documents uploaded")
	}
	if len(files) > MaxFilesPerRequest {
		return dErrors.Newf(dErrors.CodeValidation, "at most %d documents per request", MaxFilesPerRequest)
	}
	for _, f := range files {
		if !f.Slot.IsValid() {
			return dErrors.Newf(dErrors.CodeValidation, "unknown document field %q", f.Slot)
		}
		if len(f.Body) == 0 {
			return dErrors.Newf(dErrors.CodeValidation, "%s is empty", f.Slot)
		}
		if len(f.Body) > MaxFileBytes {
			return dErrors.Newf(dErrors.CodeValidation, "%s exceeds %d bytes", f.Slot, MaxFileBytes)
		}
	}
	return nil
}

// Apply writes an uploaded URL into its slot.
func (d *Documents) Apply(slot Slot, url string) {
	switch slot {
	case SlotProfilePhoto:
		d.ProfilePhoto = url
	case SlotPassportCopy:
		d.PassportCopy = url
	case SlotEnglishTestCert:
		d.EnglishTestCert = url
	case SlotSOP:
		d.SOP = url
	case SlotCVResume:
		d.CVResume = url
	case SlotFinancialDocuments:
		d.FinancialDocuments = url
	case SlotOtherDocuments:
		d.OtherDocuments = url
	case SlotAcademicDocuments:
		d.AcademicDocuments = append(d.AcademicDocuments, url)
	case SlotRecommendationLetters:
		d.RecommendationLetters = append(d.RecommendationLetters, url)
	}
}
