package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shayc/atelier/pkg/models"
)

// DefaultThreshold is the minimum cosine similarity for a record to be
// considered relevant.
const DefaultThreshold = 0.7

// RetrieveOptions filters and bounds a retrieval.
type RetrieveOptions struct {
	// Kind restricts results to a single memory kind. Empty matches all.
	Kind models.MemoryKind
	// ContextTag restricts results to records with this tag. Empty matches all.
	ContextTag string
	// Limit caps the number of returned records. Zero means no cap.
	Limit int
	// Threshold overrides DefaultThreshold when > 0.
	Threshold float64
}

// Retrieve embeds the query, scores every candidate record by cosine
// similarity, and returns the records at or above the threshold sorted by
// descending similarity (stable on ties, preserving insertion order).
// As a side effect, every returned record's access stats are bumped and the
// updates are persisted in one transaction.
func (s *Store) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]*models.MemoryRecord, error) {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	queryEmb, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type scored struct {
		rec   *models.MemoryRecord
		score float64
	}

	var candidates []scored
	for _, rec := range s.records {
		if opts.Kind != "" && rec.Kind != opts.Kind {
			continue
		}
		if opts.ContextTag != "" && rec.ContextTag != opts.ContextTag {
			continue
		}
		score := cosineSimilarity(queryEmb, rec.Embedding)
		if score < threshold {
			continue
		}
		candidates = append(candidates, scored{rec: rec, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	now := time.Now().UTC()
	results := make([]*models.MemoryRecord, 0, len(candidates))
	for _, c := range candidates {
		c.rec.LastAccessedAt = now
		c.rec.AccessCount++
		c.rec.RelevanceScore = c.score
		results = append(results, c.rec)
	}

	if len(results) > 0 {
		if err := s.persistAccessStats(results, now); err != nil {
			return nil, fmt.Errorf("%w: update access stats: %v", ErrPersistence, err)
		}
	}

	return results, nil
}

// persistAccessStats writes the bumped stats for all returned records in a
// single transaction. Caller must hold s.mu.
func (s *Store) persistAccessStats(records []*models.MemoryRecord, now time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	for _, rec := range records {
		if _, err := tx.Exec(`
			UPDATE memory_records SET
				last_accessed_at = ?,
				access_count = ?,
				relevance_score = ?
			WHERE id = ?
		`, formatTime(now), rec.AccessCount, rec.RelevanceScore, rec.ID); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
