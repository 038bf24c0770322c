package domain

import "time"

// Feedback is one submitted survey response.
type Feedback struct {
	Id                     string    `json:"id"`
	EaseOfUse              string    `json:"easeOfUse"`
	FeatureClarity         string    `json:"featureClarity"`
	DesignImpression       string    `json:"designImpression"`
	ExplanationHelpfulness string    `json:"explanationHelpfulness"`
	UsefulFeedbackTypes    []string  `json:"usefulFeedbackTypes"`
	ConfidenceLevel        string    `json:"confidenceLevel"`
	LikedMost              string    `json:"likedMost"`
	Improvements           string    `json:"improvements"`
	UseAgain               string    `json:"useAgain"`
	LanguageBackground     string    `json:"languageBackground"`
	StudyLevel             string    `json:"studyLevel"`
	IpAddress              string    `json:"ipAddress,omitempty"`
	UserAgent              string    `json:"userAgent,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

// FeedbackFilter narrows listing/export queries.
type FeedbackFilter struct {
	UseAgain  string
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
}

// FeedbackPage describes pagination and ordering of a listing query.
// SortField must come from the sortable whitelist, checked at the handler.
type FeedbackPage struct {
	Page      int
	Limit     int
	SortField string
	SortAsc   bool
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
