package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/opinio-dev/opinio/internal/domain"
	internal_errors "github.com/opinio-dev/opinio/internal/errors"
	"github.com/opinio-dev/opinio/internal/logger"
	"github.com/opinio-dev/opinio/internal/storage/pg"
	"github.com/opinio-dev/opinio/internal/utils"
	"github.com/xuri/excelize/v2"
)

// CreateFeedback is the only unauthenticated write endpoint. Field-level
// validation happens in the service so each missing field is named.
func (h *Handler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	var f domain.Feedback
	if err := utils.DecodeValidate(r.Body, &f); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	if ip, err := utils.GetIP(r); err == nil {
		f.IpAddress = ip
	}
	f.UserAgent = r.UserAgent()

	id, err := h.feedback.Create(f)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

type feedbackListResponse struct {
	Feedback   []domain.Feedback `json:"feedback"`
	Pagination domain.Pagination `json:"pagination"`
}

func (h *Handler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFeedbackFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	page := parseFeedbackPage(r)

	entries, pagination, err := h.feedback.List(filter, page)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackListResponse{Feedback: entries, Pagination: pagination})
}

func (h *Handler) ExportFeedback(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFeedbackFilter(r)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	entries, err := h.feedback.Export(filter)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	filename := "feedback-export-" + time.Now().UTC().Format("2006-01-02")
	switch r.URL.Query().Get("format") {
	case "xlsx":
		writeXlsx(w, filename, entries)
	case "", "csv":
		writeCsv(w, filename, entries)
	default:
		utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{
			Message:    "Format must be 'csv' or 'xlsx'",
			StatusCode: http.StatusBadRequest,
		})
	}
}

func (h *Handler) FeedbackStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.feedback.Stats()
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) DeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := h.feedback.Delete(chi.URLParam(r, "id")); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Feedback deleted"})
}

var exportHeader = []string{
	"Submitted At", "Ease Of Use", "Feature Clarity", "Design Impression",
	"Explanation Helpfulness", "Useful Feedback Types", "Confidence Level",
	"Liked Most", "Improvements", "Would Use Again", "Language Background",
	"Study Level", "IP Address", "User Agent",
}

func exportRow(f domain.Feedback) []string {
	return []string{
		f.CreatedAt.UTC().Format(time.RFC3339),
		f.EaseOfUse, f.FeatureClarity, f.DesignImpression,
		f.ExplanationHelpfulness, strings.Join(f.UsefulFeedbackTypes, ", "),
		f.ConfidenceLevel, f.LikedMost, f.Improvements, f.UseAgain,
		f.LanguageBackground, f.StudyLevel, f.IpAddress, f.UserAgent,
	}
}

func writeCsv(w http.ResponseWriter, filename string, entries []domain.Feedback) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))

	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, f := range entries {
		_ = cw.Write(exportRow(f))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.Log.Error("csv export failed", "error", err)
	}
}

func writeXlsx(w http.ResponseWriter, filename string, entries []domain.Feedback) {
	file := excelize.NewFile()
	defer file.Close()

	const sheet = "Feedback"
	file.SetSheetName(file.GetSheetName(0), sheet)
	_ = file.SetSheetRow(sheet, "A1", &exportHeader)
	for i, f := range entries {
		row := exportRow(f)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = file.SetSheetRow(sheet, cell, &row)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".xlsx"))
	if err := file.Write(w); err != nil {
		logger.Log.Error("xlsx export failed", "error", err)
	}
}

func parseFeedbackFilter(r *http.Request) (domain.FeedbackFilter, error) {
	q := r.URL.Query()
	filter := domain.FeedbackFilter{
		UseAgain: q.Get("useAgain"),
		Search:   strings.TrimSpace(q.Get("search")),
	}

	if raw := q.Get("startDate"); raw != "" {
		t, err := parseDate(raw, false)
		if err != nil {
			return domain.FeedbackFilter{}, err
		}
		filter.StartDate = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := parseDate(raw, true)
		if err != nil {
			return domain.FeedbackFilter{}, err
		}
		filter.EndDate = &t
	}
	return filter, nil
}

// parseDate accepts RFC3339 or a bare date. A bare end date covers the
// whole day.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &internal_errors.ErrorWithStatusCode{
			Message:    "Dates must be YYYY-MM-DD or RFC3339",
			StatusCode: http.StatusBadRequest,
		}
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Second)
	}
	return t, nil
}

func parseFeedbackPage(r *http.Request) domain.FeedbackPage {
	q := r.URL.Query()
	page := domain.FeedbackPage{
		Page:      1,
		SortField: "createdAt",
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		page.Page = n
	}
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		page.Limit = n
	}
	if field := q.Get("sortBy"); pg.IsSortable(field) {
		page.SortField = field
	}
	page.SortAsc = q.Get("sortOrder") == "asc"
	return page
}
