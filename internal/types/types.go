// Package types holds the domain model shared by the chunker, vector store,
// lexical index, and coordinator: the Chunk record and the shapes of the
// hybrid query response.
package types

import "time"

// Chunk is the atomic retrievable unit: a contiguous slice of source text
// with a stable id.
type Chunk struct {
	ID           string
	Content      string
	StartLine    int
	EndLine      int
	FilePath     string // absolute canonical path
	RelativePath string // relative to the indexed root
	Project      string // canonical root, used as a payload filter
	Language     string
	Extension    string // without the leading dot
	FileHash     string // SHA-256 of the source file's bytes
	IndexedAt    time.Time
	Vector       []float32 // present only going into/out of the vector store
}

// Filter narrows Vector Store / Lexical Index operations to a subset of
// payload fields. Zero-value fields are not applied.
type Filter struct {
	Project      string
	FilePath     string
	Extensions   []string
	Languages    []string
	PathPatterns []string
}

// IsZero reports whether the filter applies no constraints.
func (f Filter) IsZero() bool {
	return f.Project == "" && f.FilePath == "" && len(f.Extensions) == 0 &&
		len(f.Languages) == 0 && len(f.PathPatterns) == 0
}

// ScoredChunk is a Chunk returned from a similarity search, along with the
// backend-specific score.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// SearchResult is the fused, client-facing shape of one hybrid query hit.
type SearchResult struct {
	ChunkID       string
	FilePath      string
	RelativePath  string
	StartLine     int
	EndLine       int
	Language      string
	Content       string
	VectorScore   float64
	KeywordScore  float64
	CombinedScore float64
}

// Stats summarizes the contents of one project within a store.
type Stats struct {
	ChunkCount        int
	DistinctFiles     int
	PerLanguageCounts map[string]int
}

// IndexingMode reports whether an indexing pass walked the whole tree or
// only the files the hash cache says changed.
type IndexingMode string

const (
	ModeFull        IndexingMode = "full"
	ModeIncremental IndexingMode = "incremental"
)

// IndexResult is the outcome of one indexing operation, broadcast verbatim
// to every waiter on the same root.
type IndexResult struct {
	Mode                IndexingMode
	FilesIndexed        int
	ChunksCreated       int
	EmbeddingsGenerated int
	DurationMS          int64
	Errors              []string
}
