package models

import "time"

// Engine names the index type a deployment serves.
type Engine string

const (
	// EngineSimple is the self-contained JSON index.
	EngineSimple Engine = "simple"
	// EngineBleve is the schema-driven inverted index delivered as chunks.
	EngineBleve Engine = "bleve"
)

// BuildRecord is one language's index build, kept in the build history.
type BuildRecord struct {
	ID        string    `json:"id" db:"id"`
	BuildID   string    `json:"build_id" db:"build_id"`
	Lang      string    `json:"lang" db:"lang"`
	Engine    Engine    `json:"engine" db:"engine"`
	Documents int       `json:"documents" db:"documents"`
	Skipped   int       `json:"skipped" db:"skipped"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	Chunks    int       `json:"chunks" db:"chunks"`
	Output    string    `json:"output" db:"output"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
