package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
)

const (
	// DefaultChunkSize is the chunk size used when none is configured (64 KiB).
	DefaultChunkSize = 64 * 1024
	// DefaultChunkPrefix is the chunk file name prefix used when none is configured.
	DefaultChunkPrefix = "chunk"
)

// ChunkerConfig controls chunk size and naming.
type ChunkerConfig struct {
	ChunkSize   int64
	ChunkPrefix string
}

// ChunkCounter hands out chunk numbers. One counter is shared by every file chunked
// into the same output directory so chunk names never collide.
type ChunkCounter struct {
	next int
}

// NewChunkCounter returns a counter whose first number is start.
func NewChunkCounter(start int) *ChunkCounter {
	return &ChunkCounter{next: start}
}

// Next returns the current number and advances the counter.
func (c *ChunkCounter) Next() int {
	n := c.next
	c.next++
	return n
}

// Peek returns the number Next will return.
func (c *ChunkCounter) Peek() int {
	return c.next
}

// IndexChunker splits index files into fixed-size chunks for incremental download.
type IndexChunker struct {
	chunkSize int64
	prefix    string
	logger    *zap.Logger
}

// ChunkerOption configures an IndexChunker.
type ChunkerOption func(*IndexChunker)

// WithChunkerLogger sets a logger for per-file and per-chunk progress.
func WithChunkerLogger(l *zap.Logger) ChunkerOption {
	return func(c *IndexChunker) { c.logger = l }
}

// NewIndexChunker returns a chunker; zero config values fall back to the defaults.
func NewIndexChunker(cfg ChunkerConfig, opts ...ChunkerOption) *IndexChunker {
	c := &IndexChunker{
		chunkSize: cfg.ChunkSize,
		prefix:    cfg.ChunkPrefix,
		logger:    zap.NewNop(),
	}
	if c.chunkSize <= 0 {
		c.chunkSize = DefaultChunkSize
	}
	if c.prefix == "" {
		c.prefix = DefaultChunkPrefix
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured chunk size in bytes.
func (c *IndexChunker) ChunkSize() int64 {
	return c.chunkSize
}

// ChunkName returns the file name of chunk number n, e.g. "chunk_0007.bin".
func (c *IndexChunker) ChunkName(n int) string {
	return fmt.Sprintf("%s_%04d.bin", c.prefix, n)
}

// ChunkDirectory chunks every regular file directly under sourceDir (not recursively)
// into outputDir and returns the manifest. Files are visited in name order.
func (c *IndexChunker) ChunkDirectory(sourceDir, outputDir string) (*models.IndexManifest, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, models.NewError(models.KindIO, "read source dir", sourceDir, err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, models.NewError(models.KindIO, "create output dir", outputDir, err)
	}

	manifest := models.NewIndexManifest(c.chunkSize)
	counter := NewChunkCounter(0)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fm, err := c.ChunkFile(filepath.Join(sourceDir, e.Name()), outputDir, counter)
		if err != nil {
			return nil, err
		}
		manifest.AddFile(e.Name(), fm)
	}
	c.logger.Info("chunked directory",
		zap.String("source", sourceDir),
		zap.String("output", outputDir),
		zap.Int("files", len(manifest.Files)),
		zap.Int("chunks", manifest.ChunkCount()),
		zap.Uint64("total_size", manifest.TotalSize))
	return manifest, nil
}

// ChunkTree is ChunkDirectory over every regular file below sourceDir. Manifest keys
// are slash-separated paths relative to sourceDir, so nested index stores can be
// reassembled file by file.
func (c *IndexChunker) ChunkTree(sourceDir, outputDir string) (*models.IndexManifest, error) {
	var rels []string
	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		rels = append(rels, rel)
		return nil
	})
	if err != nil {
		return nil, models.NewError(models.KindIO, "walk source dir", sourceDir, err)
	}
	sort.Strings(rels)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, models.NewError(models.KindIO, "create output dir", outputDir, err)
	}

	manifest := models.NewIndexManifest(c.chunkSize)
	counter := NewChunkCounter(0)
	for _, rel := range rels {
		fm, err := c.ChunkFile(filepath.Join(sourceDir, rel), outputDir, counter)
		if err != nil {
			return nil, err
		}
		manifest.AddFile(filepath.ToSlash(rel), fm)
	}
	c.logger.Info("chunked tree",
		zap.String("source", sourceDir),
		zap.String("output", outputDir),
		zap.Int("files", len(manifest.Files)),
		zap.Int("chunks", manifest.ChunkCount()))
	return manifest, nil
}

// ChunkFile reads sourcePath and writes its chunks into outputDir, numbering them from counter.
func (c *IndexChunker) ChunkFile(sourcePath, outputDir string, counter *ChunkCounter) (models.FileManifest, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return models.FileManifest{}, models.NewError(models.KindIO, "read file", sourcePath, err)
	}
	fm, err := c.ChunkBytes(data, outputDir, counter)
	if err != nil {
		return models.FileManifest{}, err
	}
	c.logger.Debug("chunked file",
		zap.String("path", sourcePath),
		zap.Int64("size", fm.Size),
		zap.Int("chunks", len(fm.Chunks)))
	return fm, nil
}

// ChunkBytes writes data as chunks into outputDir. Every chunk but the last is exactly
// the chunk size; data no larger than one chunk, including empty data, becomes one chunk.
func (c *IndexChunker) ChunkBytes(data []byte, outputDir string, counter *ChunkCounter) (models.FileManifest, error) {
	if counter == nil {
		counter = NewChunkCounter(0)
	}
	fm := models.FileManifest{Size: int64(len(data))}
	for off := int64(0); ; off += c.chunkSize {
		end := off + c.chunkSize
		if end > fm.Size {
			end = fm.Size
		}
		name := c.ChunkName(counter.Next())
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, data[off:end], 0644); err != nil {
			return models.FileManifest{}, models.NewError(models.KindIO, "write chunk", path, err)
		}
		fm.Chunks = append(fm.Chunks, name)
		if end >= fm.Size {
			break
		}
	}
	return fm, nil
}

// WriteManifest writes m as JSON to path.
func WriteManifest(m *models.IndexManifest, path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return models.NewError(models.KindIO, "write manifest", path, err)
	}
	return nil
}

// ReadManifest reads and validates a manifest file.
func ReadManifest(path string) (*models.IndexManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewError(models.KindIO, "read manifest", path, err)
	}
	m, err := models.ManifestFromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReassembleChunks concatenates the chunks of fileName from chunksDir in manifest order
// and truncates the result to the recorded size.
func ReassembleChunks(m *models.IndexManifest, chunksDir, fileName string) ([]byte, error) {
	fm, ok := m.Files[fileName]
	if !ok {
		return nil, models.Errorf(models.KindNotFound, "reassemble", fileName, "file not in manifest")
	}
	out := make([]byte, 0, fm.Size)
	for _, name := range fm.Chunks {
		path := filepath.Join(chunksDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, models.NewError(models.KindIO, "read chunk", path, err)
		}
		out = append(out, data...)
	}
	if int64(len(out)) > fm.Size {
		out = out[:fm.Size]
	}
	return out, nil
}
