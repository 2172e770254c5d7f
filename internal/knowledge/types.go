// Package knowledge stores and searches embedded documents in PostgreSQL
// with pgvector. It backs the vector retrieval tools: course descriptions
// and the app manual live here as separate collections.
package knowledge

import "time"

// Collections used by the retrieval tools.
const (
	CollectionCourses = "golf_courses"
	CollectionManual  = "app_manual"
)

// Document is one embedded knowledge entry.
type Document struct {
	ID         string
	Collection string
	Content    string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Result is a search hit with its cosine similarity in [0, 1].
type Result struct {
	Document
	Similarity float64
}
