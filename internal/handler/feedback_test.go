package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
	"github.com/opinio-dev/opinio/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// --- Mocks ---

type MockFeedbackService struct {
	CreateFunc func(f domain.Feedback) (string, error)
	ListFunc   func(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, domain.Pagination, error)
	ExportFunc func(filter domain.FeedbackFilter) ([]domain.Feedback, error)
	StatsFunc  func() (service.FeedbackStats, error)
	DeleteFunc func(id string) error
}

func (m *MockFeedbackService) Create(f domain.Feedback) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(f)
	}
	return "11111111-1111-1111-1111-111111111111", nil
}

func (m *MockFeedbackService) List(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, domain.Pagination, error) {
	if m.ListFunc != nil {
		return m.ListFunc(filter, page)
	}
	return []domain.Feedback{}, domain.Pagination{Page: 1, Limit: 10}, nil
}

func (m *MockFeedbackService) Export(filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	if m.ExportFunc != nil {
		return m.ExportFunc(filter)
	}
	return []domain.Feedback{}, nil
}

func (m *MockFeedbackService) Stats() (service.FeedbackStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc()
	}
	return service.FeedbackStats{}, nil
}

func (m *MockFeedbackService) Delete(id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(id)
	}
	return nil
}

func sampleFeedback() domain.Feedback {
	return domain.Feedback{
		Id:                     "11111111-1111-1111-1111-111111111111",
		EaseOfUse:              "easy",
		FeatureClarity:         "clear",
		DesignImpression:       "good",
		ExplanationHelpfulness: "helpful",
		UsefulFeedbackTypes:    []string{"grammar", "vocabulary"},
		ConfidenceLevel:        "confident",
		LikedMost:              "the explanations",
		Improvements:           "more examples",
		UseAgain:               "yes",
		LanguageBackground:     "spanish",
		StudyLevel:             "intermediate",
		CreatedAt:              time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// --- Tests ---

func TestCreateFeedbackHandler(t *testing.T) {
	t.Run("captures ip and user agent", func(t *testing.T) {
		var got domain.Feedback
		svc := &MockFeedbackService{CreateFunc: func(f domain.Feedback) (string, error) {
			got = f
			return "id", nil
		}}
		h := New(&MockAuthService{}, svc)

		r := httptest.NewRequest("POST", "/api/public/feedback", strings.NewReader(`{"easeOfUse":"easy"}`))
		r.RemoteAddr = "203.0.113.9:1234"
		r.Header.Set("User-Agent", "test-agent")
		w := httptest.NewRecorder()
		h.CreateFeedback(w, r)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "203.0.113.9", got.IpAddress)
		assert.Equal(t, "test-agent", got.UserAgent)
	})

	t.Run("missing field error names the field", func(t *testing.T) {
		svc := &MockFeedbackService{CreateFunc: func(f domain.Feedback) (string, error) {
			return "", &internal_errors.ErrorWithStatusCode{Message: "Field 'useAgain' is required", StatusCode: http.StatusBadRequest}
		}}
		h := New(&MockAuthService{}, svc)

		r := httptest.NewRequest("POST", "/api/public/feedback", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		h.CreateFeedback(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "useAgain")
	})

	t.Run("malformed json", func(t *testing.T) {
		h := New(&MockAuthService{}, &MockFeedbackService{})

		r := httptest.NewRequest("POST", "/api/public/feedback", strings.NewReader(`{broken`))
		w := httptest.NewRecorder()
		h.CreateFeedback(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListFeedbackHandler(t *testing.T) {
	t.Run("parses filters and pagination", func(t *testing.T) {
		var gotFilter domain.FeedbackFilter
		var gotPage domain.FeedbackPage
		svc := &MockFeedbackService{ListFunc: func(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, domain.Pagination, error) {
			gotFilter = filter
			gotPage = page
			return []domain.Feedback{sampleFeedback()}, domain.Pagination{Page: 2, Limit: 5, Total: 11, TotalPages: 3}, nil
		}}
		h := New(&MockAuthService{}, svc)

		r := httptest.NewRequest("GET", "/api/admin/feedback?page=2&limit=5&sortBy=useAgain&sortOrder=asc&useAgain=yes&search=examples&startDate=2025-06-01&endDate=2025-06-30", nil)
		w := httptest.NewRecorder()
		h.ListFeedback(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, gotPage.Page)
		assert.Equal(t, 5, gotPage.Limit)
		assert.Equal(t, "useAgain", gotPage.SortField)
		assert.True(t, gotPage.SortAsc)
		assert.Equal(t, "yes", gotFilter.UseAgain)
		assert.Equal(t, "examples", gotFilter.Search)
		require.NotNil(t, gotFilter.StartDate)
		require.NotNil(t, gotFilter.EndDate)
		assert.True(t, gotFilter.EndDate.After(*gotFilter.StartDate))
	})

	t.Run("unknown sort field falls back to createdAt", func(t *testing.T) {
		var gotPage domain.FeedbackPage
		svc := &MockFeedbackService{ListFunc: func(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, domain.Pagination, error) {
			gotPage = page
			return nil, domain.Pagination{}, nil
		}}
		h := New(&MockAuthService{}, svc)

		r := httptest.NewRequest("GET", "/api/admin/feedback?sortBy=passwordHash", nil)
		w := httptest.NewRecorder()
		h.ListFeedback(w, r)

		assert.Equal(t, "createdAt", gotPage.SortField)
	})

	t.Run("bad date is a 400", func(t *testing.T) {
		h := New(&MockAuthService{}, &MockFeedbackService{})

		r := httptest.NewRequest("GET", "/api/admin/feedback?startDate=June", nil)
		w := httptest.NewRecorder()
		h.ListFeedback(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestExportFeedbackHandler(t *testing.T) {
	entries := []domain.Feedback{sampleFeedback()}

	t.Run("csv is the default format", func(t *testing.T) {
		svc := &MockFeedbackService{ExportFunc: func(filter domain.FeedbackFilter) ([]domain.Feedback, error) {
			return entries, nil
		}}
		h := New(&MockAuthService{}, svc)

		r := httptest.NewRequest("GET", "/api/admin/feedback/export", nil)
		w := httptest.NewRecorder()
		h.ExportFeedback(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "Submitted At")
		assert.Contains(t, lines[1], "grammar, vocabulary")
	})

	t.Run("xlsx produces a readable workbook", func(t *testing.T) {
		svc := &MockFeedbackService{ExportFunc: func(filter domain.FeedbackFilter) ([]domain.Feedback, error) {
			return entries, nil
		}}
		h := New(&MockAuthService{}, svc)

		r := httptest.NewRequest("GET", "/api/admin/feedback/export?format=xlsx", nil)
		w := httptest.NewRecorder()
		h.ExportFeedback(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")

		file, err := excelize.OpenReader(w.Body)
		require.NoError(t, err)
		defer file.Close()

		rows, err := file.GetRows("Feedback")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Submitted At", rows[0][0])
		assert.Equal(t, "easy", rows[1][1])
	})

	t.Run("unknown format is a 400", func(t *testing.T) {
		h := New(&MockAuthService{}, &MockFeedbackService{})

		r := httptest.NewRequest("GET", "/api/admin/feedback/export?format=pdf", nil)
		w := httptest.NewRecorder()
		h.ExportFeedback(w, r)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFeedbackStatsHandler(t *testing.T) {
	svc := &MockFeedbackService{StatsFunc: func() (service.FeedbackStats, error) {
		return service.FeedbackStats{Total: 4, UseAgain: map[string]int{"yes": 3, "maybe": 1, "no": 0}}, nil
	}}
	h := New(&MockAuthService{}, svc)

	r := httptest.NewRequest("GET", "/api/admin/stats", nil)
	w := httptest.NewRecorder()
	h.FeedbackStats(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(4), body["total"])
}

func TestDeleteFeedbackHandler(t *testing.T) {
	deleteRequest := func(id string) *http.Request {
		r := httptest.NewRequest("DELETE", "/api/admin/feedback/"+id, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("success", func(t *testing.T) {
		deleted := ""
		svc := &MockFeedbackService{DeleteFunc: func(id string) error {
			deleted = id
			return nil
		}}
		h := New(&MockAuthService{}, svc)

		w := httptest.NewRecorder()
		h.DeleteFeedback(w, deleteRequest("11111111-1111-1111-1111-111111111111"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "11111111-1111-1111-1111-111111111111", deleted)
	})

	t.Run("unknown id is a 404", func(t *testing.T) {
		svc := &MockFeedbackService{DeleteFunc: func(id string) error {
			return &internal_errors.ErrorWithStatusCode{Message: "Feedback not found", StatusCode: http.StatusNotFound}
		}}
		h := New(&MockAuthService{}, svc)

		w := httptest.NewRecorder()
		h.DeleteFeedback(w, deleteRequest("22222222-2222-2222-2222-222222222222"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
