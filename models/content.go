package models

import "encoding/json"

// ContentRequest is the body of POST /content.
type ContentRequest struct {
	Text     string                 `json:"text" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
	TenantID string                 `json:"tenant_id" binding:"required"`
}

// SearchRequest is the body of POST /content/search.
type SearchRequest struct {
	Query    string                 `json:"query" binding:"required"`
	TenantID string                 `json:"tenant_id" binding:"required"`
	Filters  map[string]interface{} `json:"filters"`
}

// AnalysisResult is the structured output of the AI analysis step.
// It is produced exactly once, at ingest, and stored verbatim in the
// vector index metadata as a JSON string.
type AnalysisResult struct {
	ComplexityLevel    int                    `json:"complexity_level"`
	KeyConcepts        []string               `json:"key_concepts"`
	Prerequisites      []string               `json:"prerequisites"`
	LearningObjectives []string               `json:"learning_objectives"`
	ReadabilityMetrics map[string]interface{} `json:"readability_metrics"`
}

// FallbackAnalysis is substituted whenever the model's analysis output
// cannot be parsed as JSON. It never fails and is the terminal recovery
// path for malformed upstream output.
func FallbackAnalysis() AnalysisResult {
	return AnalysisResult{
		ComplexityLevel:    3,
		KeyConcepts:        []string{"Not available"},
		Prerequisites:      []string{"Not available"},
		LearningObjectives: []string{"Not available"},
		ReadabilityMetrics: map[string]interface{}{"score": "Not available"},
	}
}

// String renders the analysis as the JSON document stored alongside the
// embedding. Marshal of this shape cannot fail.
func (a AnalysisResult) String() string {
	b, err := json.Marshal(a)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ContentResponse is returned by ingest and cached under "content:<id>".
type ContentResponse struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	Analysis  AnalysisResult         `json:"analysis"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

// ContentLookup is returned by GET /content/:id and by search. The
// analysis is always normalized to its serialized string form here,
// whichever source the record came from.
type ContentLookup struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Analysis  string `json:"analysis"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// IngestTaskResponse is returned by the async ingest endpoint.
type IngestTaskResponse struct {
	TaskID string `json:"task_id"`
	State  string `json:"state"`
}
