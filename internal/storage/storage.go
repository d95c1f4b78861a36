// Package storage persists the history of index builds.
package storage

import (
	"context"

	"github.com/hyperjump/shiori/internal/models"
)

// Storage defines build history operations.
type Storage interface {
	// RecordBuild stores rec. An empty ID is filled in, as is a zero CreatedAt.
	RecordBuild(ctx context.Context, rec *models.BuildRecord) error
	// GetBuild returns every record of one build, ordered by language.
	GetBuild(ctx context.Context, buildID string) ([]*models.BuildRecord, error)
	// LatestBuilds returns the newest records first.
	LatestBuilds(ctx context.Context, limit int) ([]*models.BuildRecord, error)
	// LatestByLang returns the newest record for each language.
	LatestByLang(ctx context.Context) ([]*models.BuildRecord, error)
	CountBuilds(ctx context.Context) (int64, error)
	Close() error
}
