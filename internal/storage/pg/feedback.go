package pg

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
)

const feedbackColumns = `id, ease_of_use, feature_clarity, design_impression, explanation_helpfulness,
    useful_feedback_types, confidence_level, liked_most, improvements, use_again,
    language_background, study_level, ip_address, user_agent, (created_at at time zone 'utc')`

// sortColumns maps the JSON sort field whitelist onto columns. Anything
// not in here falls back to created_at at the handler.
var sortColumns = map[string]string{
	"easeOfUse":              "ease_of_use",
	"featureClarity":         "feature_clarity",
	"designImpression":       "design_impression",
	"explanationHelpfulness": "explanation_helpfulness",
	"usefulFeedbackTypes":    "useful_feedback_types",
	"confidenceLevel":        "confidence_level",
	"likedMost":              "liked_most",
	"improvements":           "improvements",
	"useAgain":               "use_again",
	"languageBackground":     "language_background",
	"studyLevel":             "study_level",
	"createdAt":              "created_at",
}

func IsSortable(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

func (s *Storage) SaveFeedback(f domain.Feedback) error {
	return s.withTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`
            INSERT INTO feedback(id, ease_of_use, feature_clarity, design_impression, explanation_helpfulness,
                useful_feedback_types, confidence_level, liked_most, improvements, use_again,
                language_background, study_level, ip_address, user_agent)
            VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			f.Id, f.EaseOfUse, f.FeatureClarity, f.DesignImpression, f.ExplanationHelpfulness,
			pq.Array(f.UsefulFeedbackTypes), f.ConfidenceLevel, f.LikedMost, f.Improvements, f.UseAgain,
			f.LanguageBackground, f.StudyLevel, f.IpAddress, f.UserAgent,
		)
		if err != nil {
			return fmt.Errorf("failed to insert feedback: %w", err)
		}
		return nil
	})
}

func (s *Storage) Feedbacks(filter domain.FeedbackFilter, page domain.FeedbackPage) ([]domain.Feedback, error) {
	where, args := buildFeedbackWhere(filter)

	sortCol, ok := sortColumns[page.SortField]
	if !ok {
		sortCol = "created_at"
	}
	direction := "DESC"
	if page.SortAsc {
		direction = "ASC"
	}

	offset := (page.Page - 1) * page.Limit
	query := fmt.Sprintf("SELECT %s FROM feedback%s ORDER BY %s %s LIMIT %d OFFSET %d",
		feedbackColumns, where, sortCol, direction, page.Limit, offset)

	return s.queryFeedbacks(query, args...)
}

func (s *Storage) CountFeedback(filter domain.FeedbackFilter) (int, error) {
	where, args := buildFeedbackWhere(filter)

	var total int
	err := s.db.QueryRow("SELECT COUNT(*) FROM feedback"+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return total, nil
}

// AllFeedback returns every matching entry newest first, for export.
func (s *Storage) AllFeedback(filter domain.FeedbackFilter) ([]domain.Feedback, error) {
	where, args := buildFeedbackWhere(filter)
	query := fmt.Sprintf("SELECT %s FROM feedback%s ORDER BY created_at DESC", feedbackColumns, where)
	return s.queryFeedbacks(query, args...)
}

func (s *Storage) RecentFeedback(limit int) ([]domain.Feedback, error) {
	query := fmt.Sprintf("SELECT %s FROM feedback ORDER BY created_at DESC LIMIT %d", feedbackColumns, limit)
	return s.queryFeedbacks(query)
}

func (s *Storage) DeleteFeedback(id string) error {
	result, err := s.db.Exec("DELETE FROM feedback WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	rowsDeleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for feedback deletion: %w", err)
	}
	if rowsDeleted == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "Feedback not found", StatusCode: http.StatusNotFound}
	}
	return nil
}

func buildFeedbackWhere(filter domain.FeedbackFilter) (string, []any) {
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UseAgain != "" {
		conditions = append(conditions, "use_again = "+arg(filter.UseAgain))
	}
	if filter.StartDate != nil {
		conditions = append(conditions, "created_at >= "+arg(*filter.StartDate))
	}
	if filter.EndDate != nil {
		conditions = append(conditions, "created_at <= "+arg(*filter.EndDate))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conditions = append(conditions, fmt.Sprintf(
			"(liked_most ILIKE %[1]s OR improvements ILIKE %[1]s OR language_background ILIKE %[1]s OR study_level ILIKE %[1]s OR array_to_string(useful_feedback_types, ',') ILIKE %[1]s)", p))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (s *Storage) queryFeedbacks(query string, args ...any) ([]domain.Feedback, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	feedbacks := []domain.Feedback{}
	for rows.Next() {
		var f domain.Feedback
		err := rows.Scan(
			&f.Id, &f.EaseOfUse, &f.FeatureClarity, &f.DesignImpression, &f.ExplanationHelpfulness,
			pq.Array(&f.UsefulFeedbackTypes), &f.ConfidenceLevel, &f.LikedMost, &f.Improvements, &f.UseAgain,
			&f.LanguageBackground, &f.StudyLevel, &f.IpAddress, &f.UserAgent, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		feedbacks = append(feedbacks, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feedback rows: %w", err)
	}

	return feedbacks, nil
}
