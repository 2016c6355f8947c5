package ai

import (
	"encoding/json"
	"strings"

	"content-analysis-platform/models"
)

const analysisPrompt = `Analyze the following educational content and provide:
1. Complexity level (1-5)
2. Key concepts (max 5)
3. Prerequisites
4. Learning objectives
5. Readability metrics

Content: %s

Respond with a single JSON object using the keys complexity_level, key_concepts,
prerequisites, learning_objectives and readability_metrics. Return only the JSON
object, nothing else, not even a leading ` + "```json" + ` marker.`

// stripCodeFence removes a wrapping ```json ... ``` fence that the model
// sometimes emits despite being told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") && strings.HasSuffix(s, "```") {
		return strings.TrimSpace(s[len("```json") : len(s)-len("```")])
	}
	return s
}

// DecodeAnalysis parses the model's raw analysis text. If the text is not
// valid JSON for the expected shape, the fixed fallback analysis is
// returned instead; this path never fails. The second return reports
// whether the raw text actually parsed.
func DecodeAnalysis(raw string) (models.AnalysisResult, bool) {
	var analysis models.AnalysisResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &analysis); err != nil {
		return models.FallbackAnalysis(), false
	}
	return analysis, true
}
