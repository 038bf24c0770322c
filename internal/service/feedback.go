package service

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
)

type FeedbackStorage interface {
	SaveFeedback(f domain.Feedback) error
	Feedbacks(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, error)
	CountFeedback(filter domain.FeedbackFilter) (int, error)
	AllFeedback(filter domain.FeedbackFilter) ([]domain.Feedback, error)
	RecentFeedback(limit int) ([]domain.Feedback, error)
	DeleteFeedback(id string) error
}

// FeedbackService is the surface the HTTP handlers consume.
type FeedbackService interface {
	Create(f domain.Feedback) (string, error)
	List(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, domain.Pagination, error)
	Export(filter domain.FeedbackFilter) ([]domain.Feedback, error)
	Stats() (FeedbackStats, error)
	Delete(id string) error
}

const (
	feedbackDefaultLimit = 20
	feedbackMaxLimit     = 200
	statsRecentLimit     = 10
)

type Feedback struct {
	storage   FeedbackStorage
	sanitizer *bluemonday.Policy
}

func NewFeedback(storage FeedbackStorage) *Feedback {
	return &Feedback{storage: storage, sanitizer: bluemonday.StrictPolicy()}
}

// Create validates the submission field by field, strips any markup from
// the free-text answers and persists the entry under a fresh id.
func (s *Feedback) Create(f domain.Feedback) (string, error) {
	required := []struct {
		name  string
		empty bool
	}{
		{"easeOfUse", f.EaseOfUse == ""},
		{"featureClarity", f.FeatureClarity == ""},
		{"designImpression", f.DesignImpression == ""},
		{"explanationHelpfulness", f.ExplanationHelpfulness == ""},
		{"usefulFeedbackTypes", len(f.UsefulFeedbackTypes) == 0},
		{"confidenceLevel", f.ConfidenceLevel == ""},
		{"likedMost", f.LikedMost == ""},
		{"improvements", f.Improvements == ""},
		{"useAgain", f.UseAgain == ""},
		{"languageBackground", f.LanguageBackground == ""},
		{"studyLevel", f.StudyLevel == ""},
	}
	for _, field := range required {
		if field.empty {
			return "", &internal_errors.ErrorWithStatusCode{
				Message:    "Field '" + field.name + "' is required",
				StatusCode: http.StatusBadRequest,
			}
		}
	}

	f.Id = uuid.NewString()
	f.LikedMost = s.clean(f.LikedMost)
	f.Improvements = s.clean(f.Improvements)
	f.LanguageBackground = s.clean(f.LanguageBackground)
	f.StudyLevel = s.clean(f.StudyLevel)
	for i, t := range f.UsefulFeedbackTypes {
		f.UsefulFeedbackTypes[i] = s.clean(t)
	}

	if err := s.storage.SaveFeedback(f); err != nil {
		return "", err
	}
	return f.Id, nil
}

// List returns one page of entries plus pagination metadata. Page and
// limit are clamped here so storage never sees a hostile offset.
func (s *Feedback) List(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, domain.Pagination, error) {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = feedbackDefaultLimit
	}
	if page.Limit > feedbackMaxLimit {
		page.Limit = feedbackMaxLimit
	}

	total, err := s.storage.CountFeedback(filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	entries, err := s.storage.Feedbacks(filter, page)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	totalPages := (total + page.Limit - 1) / page.Limit
	return entries, domain.Pagination{
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Export returns every matching entry, newest first, for CSV/XLSX dumps.
func (s *Feedback) Export(filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	return s.storage.AllFeedback(filter)
}

type FeedbackStats struct {
	Total    int               `json:"total"`
	UseAgain map[string]int    `json:"useAgain"`
	Recent   []domain.Feedback `json:"recent"`
}

// Stats aggregates the dashboard numbers: total count, the would-use-again
// breakdown and the latest submissions.
func (s *Feedback) Stats() (FeedbackStats, error) {
	total, err := s.storage.CountFeedback(domain.FeedbackFilter{})
	if err != nil {
		return FeedbackStats{}, err
	}

	useAgain := make(map[string]int, 3)
	for _, answer := range []string{"yes", "maybe", "no"} {
		count, err := s.storage.CountFeedback(domain.FeedbackFilter{UseAgain: answer})
		if err != nil {
			return FeedbackStats{}, err
		}
		useAgain[answer] = count
	}

	recent, err := s.storage.RecentFeedback(statsRecentLimit)
	if err != nil {
		return FeedbackStats{}, err
	}

	return FeedbackStats{Total: total, UseAgain: useAgain, Recent: recent}, nil
}

func (s *Feedback) Delete(id string) error {
	// a non-uuid id cannot match anything; postgres would reject the cast
	if _, err := uuid.Parse(id); err != nil {
		return &internal_errors.ErrorWithStatusCode{
			Message:    "Feedback not found",
			StatusCode: http.StatusNotFound,
		}
	}
	return s.storage.DeleteFeedback(id)
}

func (s *Feedback) clean(text string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(text))
}
