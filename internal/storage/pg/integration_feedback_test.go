package pg

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opinio-dev/opinio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedbackEntry(useAgain string) domain.Feedback {
	return domain.Feedback{
		Id:                     uuid.NewString(),
		EaseOfUse:              "easy",
		FeatureClarity:         "clear",
		DesignImpression:       "good",
		ExplanationHelpfulness: "helpful",
		UsefulFeedbackTypes:    []string{"grammar", "vocabulary"},
		ConfidenceLevel:        "confident",
		LikedMost:              "the explanations",
		Improvements:           "more examples",
		UseAgain:               useAgain,
		LanguageBackground:     "spanish",
		StudyLevel:             "intermediate",
		IpAddress:              "203.0.113.9",
		UserAgent:              "integration-test",
	}
}

func TestSaveFeedbackRoundTrip(t *testing.T) {
	entry := feedbackEntry("yes")
	entry.LikedMost = "round-trip marker"
	require.NoError(t, storage.SaveFeedback(entry))

	got, err := storage.Feedbacks(domain.FeedbackFilter{Search: "round-trip marker"}, domain.FeedbackPage{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, entry.Id, got[0].Id)
	assert.Equal(t, []string{"grammar", "vocabulary"}, got[0].UsefulFeedbackTypes)
	assert.Equal(t, "203.0.113.9", got[0].IpAddress)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestFeedbackFilters(t *testing.T) {
	yes := feedbackEntry("yes")
	yes.StudyLevel = "filter-level-a"
	no := feedbackEntry("no")
	no.StudyLevel = "filter-level-a"
	require.NoError(t, storage.SaveFeedback(yes))
	require.NoError(t, storage.SaveFeedback(no))

	filter := domain.FeedbackFilter{UseAgain: "no", Search: "filter-level-a"}
	got, err := storage.Feedbacks(filter, domain.FeedbackPage{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, no.Id, got[0].Id)

	count, err := storage.CountFeedback(domain.FeedbackFilter{Search: "filter-level-a"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFeedbackSearchMatchesArrayField(t *testing.T) {
	entry := feedbackEntry("maybe")
	entry.UsefulFeedbackTypes = []string{"pronunciation-drills"}
	require.NoError(t, storage.SaveFeedback(entry))

	got, err := storage.Feedbacks(domain.FeedbackFilter{Search: "pronunciation-DRILLS"}, domain.FeedbackPage{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entry.Id, got[0].Id)
}

func TestFeedbackDateRange(t *testing.T) {
	entry := feedbackEntry("yes")
	entry.LikedMost = "date-range marker"
	require.NoError(t, storage.SaveFeedback(entry))

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	got, err := storage.Feedbacks(domain.FeedbackFilter{Search: "date-range marker", StartDate: &past, EndDate: &future}, domain.FeedbackPage{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = storage.Feedbacks(domain.FeedbackFilter{Search: "date-range marker", EndDate: &past}, domain.FeedbackPage{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFeedbackPaginationAndSort(t *testing.T) {
	marker := "pagination-" + uuid.NewString()
	for i := 0; i < 3; i++ {
		entry := feedbackEntry("yes")
		entry.LanguageBackground = marker
		entry.EaseOfUse = string(rune('a' + i))
		require.NoError(t, storage.SaveFeedback(entry))
	}

	filter := domain.FeedbackFilter{Search: marker}

	pageOne, err := storage.Feedbacks(filter, domain.FeedbackPage{Page: 1, Limit: 2, SortField: "easeOfUse", SortAsc: true})
	require.NoError(t, err)
	require.Len(t, pageOne, 2)
	assert.Equal(t, "a", pageOne[0].EaseOfUse)
	assert.Equal(t, "b", pageOne[1].EaseOfUse)

	pageTwo, err := storage.Feedbacks(filter, domain.FeedbackPage{Page: 2, Limit: 2, SortField: "easeOfUse", SortAsc: true})
	require.NoError(t, err)
	require.Len(t, pageTwo, 1)
	assert.Equal(t, "c", pageTwo[0].EaseOfUse)
}

func TestAllFeedbackNewestFirst(t *testing.T) {
	marker := "export-" + uuid.NewString()
	first := feedbackEntry("yes")
	first.LanguageBackground = marker
	second := feedbackEntry("no")
	second.LanguageBackground = marker
	require.NoError(t, storage.SaveFeedback(first))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, storage.SaveFeedback(second))

	got, err := storage.AllFeedback(domain.FeedbackFilter{Search: marker})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.Id, got[0].Id)
	assert.Equal(t, first.Id, got[1].Id)
}

func TestDeleteFeedback(t *testing.T) {
	entry := feedbackEntry("yes")
	require.NoError(t, storage.SaveFeedback(entry))

	require.NoError(t, storage.DeleteFeedback(entry.Id))

	err := storage.DeleteFeedback(entry.Id)
	require.Error(t, err)
	assertStatus(t, err, http.StatusNotFound)
}

func TestRecentFeedback(t *testing.T) {
	for i := 0; i < 3; i++ {
		require.NoError(t, storage.SaveFeedback(feedbackEntry("maybe")))
	}

	got, err := storage.RecentFeedback(2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
