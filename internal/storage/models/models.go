package models

import "time"

// Document is one ingested source file. Rows are written once at
// ingestion and never updated in place.
type Document struct {
	ID         int64     `json:"id"`
	Filename   string    `json:"filename"`
	Filepath   string    `json:"filepath"`
	FileHash   string    `json:"file_hash"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	ChunkCount int       `json:"chunk_count"`
	Status     string    `json:"status"`
}

// DocumentChunk is an overlapping slice of a document's text. The
// chunk hash is unique across the whole corpus, so a chunk appearing
// verbatim in two documents is stored once under the first owner.
type DocumentChunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	ChunkText  string    `json:"chunk_text"`
	ChunkHash  string    `json:"chunk_hash"`
	VectorKey  string    `json:"vector_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkMetadata is denormalized alongside each vector so the hot
// query path does not join back into the relational store.
type ChunkMetadata struct {
	DocumentID int64  `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Filename   string `json:"filename"`
	Filepath   string `json:"filepath"`
}

// SearchResult is one ranked hit from the similarity index.
type SearchResult struct {
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float32       `json:"similarity"`
	VectorKey  string        `json:"vector_key"`
}

// QueryRecord is one row of the append-only query history log.
type QueryRecord struct {
	ID            int64     `json:"id"`
	QueryText     string    `json:"query_text"`
	QueryHash     string    `json:"query_hash"`
	ResultsCount  int       `json:"results_count"`
	ExecutionTime float64   `json:"execution_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// ScriptureEntry is one row of the scripture index: a surface form as
// it appeared in a document plus its canonical normalization. Two
// spellings of the same verse in one document produce two rows that
// share a normalized reference.
type ScriptureEntry struct {
	Reference  string   `json:"reference"`
	Normalized string   `json:"normalized_reference,omitempty"`
	DocumentID int64    `json:"document_id"`
	Snippets   []string `json:"context_snippets,omitempty"`
}

// ReferenceHit is one document matching a scripture reference search,
// with every matching surface form grouped under it.
type ReferenceHit struct {
	DocumentID int64            `json:"document_id"`
	Filename   string           `json:"filename"`
	Filepath   string           `json:"filepath"`
	Entries    []ScriptureEntry `json:"entries"`
}

// ConceptEntry is one row of the theological concept index.
type ConceptEntry struct {
	Concept    string   `json:"concept"`
	DocumentID int64    `json:"document_id"`
	Frequency  int      `json:"frequency"`
	Snippets   []string `json:"context_snippets,omitempty"`
}

// ConceptHit is one document matching a concept search, ranked by how
// many of the requested concepts it contains and then by combined
// frequency.
type ConceptHit struct {
	DocumentID     int64  `json:"document_id"`
	Filename       string `json:"filename"`
	Filepath       string `json:"filepath"`
	ConceptMatches int    `json:"concept_matches"`
	TotalFrequency int    `json:"total_frequency"`
}

// IndexKeyCount pairs an index key with the number of documents
// carrying it.
type IndexKeyCount struct {
	Key           string `json:"key"`
	DocumentCount int64  `json:"document_count"`
}

// IndexStats summarizes one of the secondary indexes.
type IndexStats struct {
	TotalEntries int64           `json:"total_entries"`
	UniqueKeys   int64           `json:"unique_keys"`
	Top          []IndexKeyCount `json:"top"`
}

// Stats is the read-only aggregate view over the store.
type Stats struct {
	DocumentCount        int64            `json:"document_count"`
	ChunkCount           int64            `json:"chunk_count"`
	VectorCount          int64            `json:"vector_count"`
	TotalFileSize        int64            `json:"total_file_size"`
	FileTypeDistribution map[string]int64 `json:"file_type_distribution"`
}
