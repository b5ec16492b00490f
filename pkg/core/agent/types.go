// Package agent implements the three report stages: query planning,
// information collection and deep analysis. Each stage returns a result
// value with a status instead of failing with an error, so a report run can
// always degrade rather than stop.
package agent

import (
	"valuation_research/pkg/core/report"
	"valuation_research/pkg/core/search"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Priority orders evidence for the analyst: high first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists the tiers in presentation order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority maps model output onto a tier. Anything unrecognized is medium.
func ParsePriority(s string) Priority {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s)
	}
	return PriorityMedium
}

// positionalPriority is used when the model returns bare query strings.
func positionalPriority(i int) Priority {
	switch {
	case i < 3:
		return PriorityHigh
	case i < 6:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type ResearchQuery struct {
	Query    string   `json:"query"`
	Purpose  string   `json:"purpose"`
	Priority Priority `json:"priority"`
}

type QueryPlan struct {
	Queries []ResearchQuery `json:"queries"`
	Subject string          `json:"subject"`
}

// QueryPlanResult is produced by the planner. Note is set when the
// built-in fallback plan was used.
type QueryPlanResult struct {
	Status  Status     `json:"status"`
	Plan    *QueryPlan `json:"plan,omitempty"`
	Company string     `json:"company,omitempty"`
	Note    string     `json:"note,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// OrganizedResult is a search result re-joined with the query metadata.
type OrganizedResult struct {
	Query     string        `json:"query"`
	Purpose   string        `json:"purpose"`
	Priority  Priority      `json:"priority"`
	Content   string        `json:"content,omitempty"`
	Citations []string      `json:"citations,omitempty"`
	Status    search.Status `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// CollectionResult holds one OrganizedResult per planned query, in plan
// order. Status is error only when the batch as a whole failed.
type CollectionResult struct {
	Status       Status            `json:"status"`
	Subject      string            `json:"company,omitempty"`
	Results      []OrganizedResult `json:"results"`
	SuccessCount int               `json:"successCount"`
	TotalQueries int               `json:"totalQueries"`
	Error        string            `json:"error,omitempty"`
}

// ValuationReportResult is produced by the analyst. ReportJSON is nil when
// the model output could not be parsed into sections; Report then carries
// the raw response.
type ValuationReportResult struct {
	Status     Status           `json:"status"`
	Company    string           `json:"company"`
	Report     string           `json:"report,omitempty"`
	ReportJSON *report.Sections `json:"reportJson,omitempty"`
	ReportType string           `json:"reportType,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// Structured reports whether the report parsed into sections.
func (r ValuationReportResult) Structured() bool {
	return r.ReportJSON != nil
}
