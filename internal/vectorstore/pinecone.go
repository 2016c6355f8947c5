package vectorstore

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"content-analysis-platform/internal/config"
)

// Match is one similarity-query result.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]interface{}
}

// Record is one vector fetched by id. Only the metadata travels back to
// callers; the raw embedding never leaves the gateway.
type Record struct {
	Metadata map[string]interface{}
}

// Store is the gateway to the managed Pinecone index. All operations are
// network calls; failures are wrapped with a fixed per-operation message
// and never swallowed.
type Store struct {
	conn *pinecone.IndexConnection
}

func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.PineconeAPIKey})
	if err != nil {
		return nil, fmt.Errorf("error initializing Pinecone client: %w", err)
	}

	idx, err := pc.DescribeIndex(ctx, cfg.PineconeIndex)
	if err != nil {
		return nil, fmt.Errorf("error describing Pinecone index %q: %w", cfg.PineconeIndex, err)
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      idx.Host,
		Namespace: cfg.PineconeNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to Pinecone index %q: %w", cfg.PineconeIndex, err)
	}

	return &Store{conn: conn}, nil
}

// Upsert inserts or replaces the vector stored under id.
func (s *Store) Upsert(ctx context.Context, id string, values []float32, metadata map[string]interface{}) error {
	md, err := structpb.NewStruct(metadata)
	if err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}

	_, err = s.conn.UpsertVectors(ctx, []*pinecone.Vector{
		{
			Id:       id,
			Values:   &values,
			Metadata: md,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}
	return nil
}

// Query returns the topK nearest neighbours of values, most similar
// first, restricted by the metadata filter when one is given.
func (s *Store) Query(ctx context.Context, values []float32, topK int, filter map[string]interface{}, includeMetadata bool) ([]Match, error) {
	var metadataFilter *pinecone.MetadataFilter
	if len(filter) > 0 {
		mf, err := structpb.NewStruct(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to search embeddings: %w", err)
		}
		metadataFilter = mf
	}

	resp, err := s.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          values,
		TopK:            uint32(topK),
		MetadataFilter:  metadataFilter,
		IncludeMetadata: includeMetadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		matches = append(matches, Match{
			ID:       m.Vector.Id,
			Score:    m.Score,
			Metadata: metadataMap(m.Vector.Metadata),
		})
	}
	return matches, nil
}

// Fetch returns the records stored under ids. Unknown ids are simply
// absent from the result, not an error.
func (s *Store) Fetch(ctx context.Context, ids []string) (map[string]Record, error) {
	resp, err := s.conn.FetchVectors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vectors: %w", err)
	}

	records := make(map[string]Record, len(resp.Vectors))
	for id, v := range resp.Vectors {
		if v == nil {
			continue
		}
		records[id] = Record{Metadata: metadataMap(v.Metadata)}
	}
	return records, nil
}

// Delete removes vectors by id.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if err := s.conn.DeleteVectorsById(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

func metadataMap(md *pinecone.Metadata) map[string]interface{} {
	if md == nil {
		return map[string]interface{}{}
	}
	return md.AsMap()
}
