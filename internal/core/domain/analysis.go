package domain

import "time"

type AnalysisType string

const (
	AnalysisLaboratory AnalysisType = "laboratory"
	AnalysisTCM        AnalysisType = "tcm"
	AnalysisChronology AnalysisType = "chronology"
	AnalysisIFM        AnalysisType = "ifm"
	AnalysisTreatment  AnalysisType = "treatment"
)

type AnalysisRequest struct {
	TenantID  string            `json:"tenant_id"`
	Type      AnalysisType      `json:"type"`
	Variables map[string]string `json:"variables"`
	// Query and Category override the template's retrieval settings.
	Query    string `json:"query,omitempty"`
	Category string `json:"category,omitempty"`
}

type AnalysisResult struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	Type       AnalysisType   `json:"type"`
	Completion Completion     `json:"completion"`
	Sources    []SearchResult `json:"sources"`
	CreatedAt  time.Time      `json:"created_at"`
}

type PromptTemplate struct {
	Type        AnalysisType
	Description string
	System      string
	Body        string
	Query       string
	Category    string
	MaxTokens   int
	Temperature float64
}
