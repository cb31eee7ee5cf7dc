package models

import "time"

// MemoryKind classifies stored memory content.
type MemoryKind string

const (
	// MemoryKindLore holds world or project background material.
	MemoryKindLore MemoryKind = "lore"
	// MemoryKindStyle holds voice, tone, and visual style guidance.
	MemoryKindStyle MemoryKind = "style"
	// MemoryKindPattern holds reusable structural patterns.
	MemoryKindPattern MemoryKind = "pattern"
	// MemoryKindHistory holds excerpts from prior task output.
	MemoryKindHistory MemoryKind = "history"
)

// Valid returns true if the kind is a known value.
func (k MemoryKind) Valid() bool {
	switch k {
	case MemoryKindLore, MemoryKindStyle, MemoryKindPattern, MemoryKindHistory:
		return true
	default:
		return false
	}
}

// MemoryRecord is a stored, embeddable piece of content used as retrieval
// context for future tasks. The content and embedding are immutable after
// creation; only the access stats mutate, and only on retrieval.
type MemoryRecord struct {
	// ID is the unique identifier for this record.
	ID string `json:"id"`
	// Kind classifies the content.
	Kind MemoryKind `json:"kind"`
	// Content is the stored text.
	Content string `json:"content"`
	// Embedding is the content's embedding vector.
	Embedding []float32 `json:"embedding"`
	// ContextTag scopes the record to a project or task type.
	ContextTag string `json:"context_tag,omitempty"`
	// Tags are free-form labels.
	Tags []string `json:"tags,omitempty"`
	// CreatedAt is when the record was stored.
	CreatedAt time.Time `json:"created_at"`
	// LastAccessedAt is when the record was last returned by a retrieval.
	LastAccessedAt time.Time `json:"last_accessed_at"`
	// AccessCount is the number of retrievals that returned this record.
	AccessCount int `json:"access_count"`
	// RelevanceScore is the similarity score from the most recent retrieval
	// that returned this record.
	RelevanceScore float64 `json:"relevance_score"`
}
