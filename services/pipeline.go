package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"content-analysis-platform/internal/logger"
	"content-analysis-platform/internal/vectorstore"
	"content-analysis-platform/models"
)

// ErrNotFound is returned when an id is absent from both the cache and
// the vector index. The transport maps it to 404; every other pipeline
// error maps to 500.
var ErrNotFound = errors.New("content not found")

// Only the single best match is ever returned from search.
const searchTopK = 1

// Analyzer is the AI collaborator: structured analysis plus embeddings.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (models.AnalysisResult, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the managed vector database collaborator.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, values []float32, metadata map[string]interface{}) error
	Query(ctx context.Context, values []float32, topK int, filter map[string]interface{}, includeMetadata bool) ([]vectorstore.Match, error)
	Fetch(ctx context.Context, ids []string) (map[string]vectorstore.Record, error)
	Delete(ctx context.Context, ids []string) error
}

// ContentCache is the expiring key-value collaborator. Get returns
// (nil, nil) on a miss.
type ContentCache interface {
	Get(ctx context.Context, id string) (*models.ContentResponse, error)
	Set(ctx context.Context, resp *models.ContentResponse, ttl time.Duration) error
}

// ContentPipeline sequences the three collaborators for ingest, lookup
// and search. It holds no per-request state; every request is
// independent, and the only consistency offered is "eventually visible
// in the index, briefly visible in the cache".
type ContentPipeline struct {
	ai    Analyzer
	index VectorIndex
	cache ContentCache
	ttl   time.Duration
}

func NewContentPipeline(ai Analyzer, index VectorIndex, cache ContentCache, ttl time.Duration) *ContentPipeline {
	return &ContentPipeline{ai: ai, index: index, cache: cache, ttl: ttl}
}

// Ingest analyzes and embeds the text, stores the vector with its
// metadata, caches the response, and returns it. The analysis step is
// fallback-safe: malformed model output never fails an ingest. There is
// no rollback; if the upsert lands but caching fails, the index write
// stands.
func (p *ContentPipeline) Ingest(ctx context.Context, text, tenantID string, metadata map[string]interface{}) (*models.ContentResponse, error) {
	id := uuid.NewString()

	analysis, err := p.ai.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}

	vec, err := p.ai.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	indexed := make(map[string]interface{}, len(metadata)+5)
	for k, v := range metadata {
		indexed[k] = v
	}
	// Reserved keys overwrite caller-supplied values of the same name.
	indexed["tenant_id"] = tenantID
	indexed["content"] = text
	indexed["analysis"] = analysis.String()
	indexed["created_at"] = now
	indexed["updated_at"] = now

	if err := p.index.Upsert(ctx, id, vec, indexed); err != nil {
		return nil, err
	}

	resp := &models.ContentResponse{
		ID:        id,
		Text:      text,
		Metadata:  metadata,
		Analysis:  analysis,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.cache.Set(ctx, resp, p.ttl); err != nil {
		return nil, err
	}

	return resp, nil
}

// FetchByID resolves an id cache-first. A hit never touches the index.
// On a miss the index is consulted; that path intentionally does not
// repopulate the cache, matching the system this one replaces.
func (p *ContentPipeline) FetchByID(ctx context.Context, id string) (*models.ContentLookup, error) {
	cached, err := p.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return &models.ContentLookup{
			ID:        cached.ID,
			Text:      cached.Text,
			Analysis:  cached.Analysis.String(),
			CreatedAt: cached.CreatedAt,
			UpdatedAt: cached.UpdatedAt,
		}, nil
	}

	records, err := p.index.Fetch(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	record, ok := records[id]
	if !ok {
		return nil, ErrNotFound
	}

	return &models.ContentLookup{
		ID:        id,
		Text:      stringField(record.Metadata, "content"),
		Analysis:  normalizeAnalysis(record.Metadata["analysis"]),
		CreatedAt: stringField(record.Metadata, "created_at"),
		UpdatedAt: stringField(record.Metadata, "updated_at"),
	}, nil
}

// Search embeds the query and returns at most one tenant-scoped match.
// Caller filters are merged after the tenant default, so a caller can
// shadow tenant_id; the shadowing is logged but deliberately not
// blocked, matching the source system's filter semantics.
func (p *ContentPipeline) Search(ctx context.Context, query, tenantID string, filters map[string]interface{}) ([]models.ContentLookup, error) {
	vec, err := p.ai.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	filter := map[string]interface{}{"tenant_id": tenantID}
	for k, v := range filters {
		if k == "tenant_id" && v != tenantID {
			logger.Warn("caller filter shadows tenant scope", "tenant_id", tenantID)
		}
		filter[k] = v
	}

	matches, err := p.index.Query(ctx, vec, searchTopK, filter, true)
	if err != nil {
		return nil, err
	}

	results := make([]models.ContentLookup, 0, len(matches))
	for _, m := range matches {
		results = append(results, models.ContentLookup{
			ID:        m.ID,
			Text:      stringField(m.Metadata, "content"),
			Analysis:  normalizeAnalysis(m.Metadata["analysis"]),
			CreatedAt: stringField(m.Metadata, "created_at"),
			UpdatedAt: stringField(m.Metadata, "updated_at"),
		})
	}
	return results, nil
}

func stringField(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if s, ok := metadata[key].(string); ok {
		return s
	}
	return ""
}

// normalizeAnalysis renders the analysis metadata as a string: strings
// pass through, structured values are serialized.
func normalizeAnalysis(v interface{}) string {
	switch a := v.(type) {
	case nil:
		return ""
	case string:
		return a
	default:
		b, err := json.Marshal(a)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
