package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"content-analysis-platform/internal/vectorstore"
	"content-analysis-platform/models"
)

type fakeAI struct {
	analysis   models.AnalysisResult
	analyzeErr error
	embedErr   error
}

func (f *fakeAI) Analyze(ctx context.Context, text string) (models.AnalysisResult, error) {
	if f.analyzeErr != nil {
		return models.AnalysisResult{}, f.analyzeErr
	}
	return f.analysis, nil
}

func (f *fakeAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type storedVector struct {
	values   []float32
	metadata map[string]interface{}
}

type fakeIndex struct {
	vectors   map[string]storedVector
	order     []string
	upsertErr error
	fetchErr  error
	queryErr  error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{vectors: map[string]storedVector{}}
}

func (f *fakeIndex) Upsert(ctx context.Context, id string, values []float32, metadata map[string]interface{}) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if _, exists := f.vectors[id]; !exists {
		f.order = append(f.order, id)
	}
	f.vectors[id] = storedVector{values: values, metadata: metadata}
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, values []float32, topK int, filter map[string]interface{}, includeMetadata bool) ([]vectorstore.Match, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var matches []vectorstore.Match
	for _, id := range f.order {
		v := f.vectors[id]
		ok := true
		for fk, fv := range filter {
			if v.metadata[fk] != fv {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		matches = append(matches, vectorstore.Match{ID: id, Metadata: v.metadata})
		if len(matches) == topK {
			break
		}
	}
	return matches, nil
}

func (f *fakeIndex) Fetch(ctx context.Context, ids []string) (map[string]vectorstore.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := map[string]vectorstore.Record{}
	for _, id := range ids {
		if v, ok := f.vectors[id]; ok {
			out[id] = vectorstore.Record{Metadata: v.metadata}
		}
	}
	return out, nil
}

func (f *fakeIndex) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.vectors, id)
	}
	return nil
}

type fakeCache struct {
	entries map[string]*models.ContentResponse
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*models.ContentResponse{}}
}

func (f *fakeCache) Get(ctx context.Context, id string) (*models.ContentResponse, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.entries[id], nil
}

func (f *fakeCache) Set(ctx context.Context, resp *models.ContentResponse, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[resp.ID] = resp
	return nil
}

func newTestPipeline() (*ContentPipeline, *fakeAI, *fakeIndex, *fakeCache) {
	ai := &fakeAI{analysis: models.AnalysisResult{
		ComplexityLevel:    2,
		KeyConcepts:        []string{"inertia"},
		Prerequisites:      []string{"algebra"},
		LearningObjectives: []string{"state the law"},
		ReadabilityMetrics: map[string]interface{}{"score": 60.0},
	}}
	index := newFakeIndex()
	cacheStore := newFakeCache()
	return NewContentPipeline(ai, index, cacheStore, time.Hour), ai, index, cacheStore
}

func TestIngestGeneratesUniqueIDs(t *testing.T) {
	p, _, _, _ := newTestPipeline()
	ctx := context.Background()

	a, err := p.Ingest(ctx, "Newton's laws", "t1", nil)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	b, err := p.Ingest(ctx, "Newton's laws", "t1", nil)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("identical texts must get distinct ids, got %q and %q", a.ID, b.ID)
	}
	if a.CreatedAt != a.UpdatedAt {
		t.Errorf("created_at %q != updated_at %q at creation", a.CreatedAt, a.UpdatedAt)
	}
}

func TestIngestReservedMetadataKeysWin(t *testing.T) {
	p, _, index, _ := newTestPipeline()

	resp, err := p.Ingest(context.Background(), "some text", "t1", map[string]interface{}{
		"subject":   "physics",
		"tenant_id": "spoofed",
		"content":   "spoofed",
		"analysis":  "spoofed",
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	md := index.vectors[resp.ID].metadata
	if md["tenant_id"] != "t1" {
		t.Errorf("tenant_id = %v, want t1", md["tenant_id"])
	}
	if md["content"] != "some text" {
		t.Errorf("content = %v, want the raw text", md["content"])
	}
	if md["analysis"] == "spoofed" {
		t.Error("caller-supplied analysis key must be overwritten")
	}
	if md["subject"] != "physics" {
		t.Errorf("caller metadata lost: subject = %v", md["subject"])
	}
	if md["created_at"] != resp.CreatedAt {
		t.Errorf("indexed created_at = %v, response %v", md["created_at"], resp.CreatedAt)
	}
}

func TestIngestStoresFallbackAnalysisVerbatim(t *testing.T) {
	p, ai, index, _ := newTestPipeline()
	ai.analysis = models.FallbackAnalysis()

	resp, err := p.Ingest(context.Background(), "garbled upstream", "t1", nil)
	if err != nil {
		t.Fatalf("fallback analysis must never fail an ingest: %v", err)
	}
	if !reflect.DeepEqual(resp.Analysis, models.FallbackAnalysis()) {
		t.Errorf("response analysis diverged from fallback: %+v", resp.Analysis)
	}
	if got := index.vectors[resp.ID].metadata["analysis"]; got != models.FallbackAnalysis().String() {
		t.Errorf("stored analysis = %v, want exact fallback JSON", got)
	}
}

func TestIngestUpstreamErrorsPropagate(t *testing.T) {
	p, ai, _, _ := newTestPipeline()
	ai.analyzeErr = errors.New("gemini down")

	if _, err := p.Ingest(context.Background(), "text", "t1", nil); err == nil {
		t.Fatal("expected analyze error to propagate")
	}

	ai.analyzeErr = nil
	ai.embedErr = errors.New("embeddings down")
	if _, err := p.Ingest(context.Background(), "text", "t1", nil); err == nil {
		t.Fatal("expected embed error to propagate")
	}
}

func TestIngestCacheFailureDoesNotUndoUpsert(t *testing.T) {
	p, _, index, cacheStore := newTestPipeline()
	cacheStore.setErr = errors.New("redis down")

	_, err := p.Ingest(context.Background(), "text", "t1", nil)
	if err == nil {
		t.Fatal("cache write failure should surface")
	}
	if len(index.vectors) != 1 {
		t.Errorf("index write must stand after cache failure, have %d vectors", len(index.vectors))
	}
}

func TestFetchByIDCacheHit(t *testing.T) {
	p, _, index, _ := newTestPipeline()
	ctx := context.Background()

	resp, err := p.Ingest(ctx, "cached text", "t1", nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// A hit must never consult the index.
	index.fetchErr = errors.New("index must not be touched on a cache hit")

	got, err := p.FetchByID(ctx, resp.ID)
	if err != nil {
		t.Fatalf("FetchByID: %v", err)
	}
	if got.Text != "cached text" {
		t.Errorf("text = %q", got.Text)
	}
	if got.Analysis != resp.Analysis.String() {
		t.Errorf("analysis not normalized to the stored string: %q", got.Analysis)
	}

	again, err := p.FetchByID(ctx, resp.ID)
	if err != nil {
		t.Fatalf("second FetchByID: %v", err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Errorf("repeated fetch within TTL must be identical: %+v vs %+v", got, again)
	}
}

func TestFetchByIDIndexFallback(t *testing.T) {
	p, _, _, cacheStore := newTestPipeline()
	ctx := context.Background()

	resp, err := p.Ingest(ctx, "expired text", "t1", map[string]interface{}{"subject": "physics"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	// Force a cache miss, as after TTL expiry.
	delete(cacheStore.entries, resp.ID)

	got, err := p.FetchByID(ctx, resp.ID)
	if err != nil {
		t.Fatalf("FetchByID via index: %v", err)
	}
	if got.Text != "expired text" {
		t.Errorf("text = %q", got.Text)
	}
	if got.Analysis != resp.Analysis.String() {
		t.Errorf("analysis = %q", got.Analysis)
	}
	if got.CreatedAt != resp.CreatedAt || got.UpdatedAt != resp.UpdatedAt {
		t.Errorf("timestamps lost on the index path: %+v", got)
	}

	// The index path does not refill the cache.
	if _, ok := cacheStore.entries[resp.ID]; ok {
		t.Error("index fallback must not repopulate the cache")
	}
}

func TestFetchByIDNotFound(t *testing.T) {
	p, _, _, _ := newTestPipeline()

	_, err := p.FetchByID(context.Background(), "never-created")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchByIDDependencyErrors(t *testing.T) {
	p, _, index, _ := newTestPipeline()
	index.fetchErr = errors.New("pinecone down")

	_, err := p.FetchByID(context.Background(), "some-id")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("dependency failure must not masquerade as NotFound, got %v", err)
	}
}

func TestSearchReturnsAtMostOneResult(t *testing.T) {
	p, _, _, _ := newTestPipeline()
	ctx := context.Background()

	for _, text := range []string{"first doc", "second doc", "third doc"} {
		if _, err := p.Ingest(ctx, text, "t1", nil); err != nil {
			t.Fatalf("Ingest %q: %v", text, err)
		}
	}

	results, err := p.Search(ctx, "doc", "t1", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, top-k is fixed at 1", len(results))
	}
	if results[0].Text == "" || results[0].Analysis == "" {
		t.Errorf("result missing fields: %+v", results[0])
	}
}

func TestSearchScopesToTenant(t *testing.T) {
	p, _, _, _ := newTestPipeline()
	ctx := context.Background()

	if _, err := p.Ingest(ctx, "tenant b content", "tb", nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	respA, err := p.Ingest(ctx, "tenant a content", "ta", nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := p.Search(ctx, "content", "ta", map[string]interface{}{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != respA.ID {
		t.Fatalf("search for tenant ta matched %+v", results)
	}
}

func TestSearchCallerFilterShadowsTenant(t *testing.T) {
	// The merge order applies caller filters last; a caller-supplied
	// tenant_id therefore wins. This mirrors the source system and is
	// documented as a tenant-isolation gap.
	p, _, _, _ := newTestPipeline()
	ctx := context.Background()

	respB, err := p.Ingest(ctx, "tenant b content", "tb", nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	results, err := p.Search(ctx, "content", "ta", map[string]interface{}{"tenant_id": "tb"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != respB.ID {
		t.Fatalf("caller tenant_id filter should win, got %+v", results)
	}
}

func TestSearchEmptyResult(t *testing.T) {
	p, _, _, _ := newTestPipeline()

	results, err := p.Search(context.Background(), "anything", "t1", nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result set, got %+v", results)
	}
}
