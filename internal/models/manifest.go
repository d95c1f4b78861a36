package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ManifestVersion is the only manifest layout readers understand.
const ManifestVersion = 1

// ManifestFileName is the conventional name of the manifest served next to the chunks.
const ManifestFileName = "manifest.json"

// IndexManifest describes how original files map to fixed-size chunks.
// TotalSize is the sum of every FileManifest.Size.
type IndexManifest struct {
	Version   uint32                  `json:"version"`
	ChunkSize int64                   `json:"chunk_size"`
	TotalSize uint64                  `json:"total_size"`
	Files     map[string]FileManifest `json:"files"`
}

// FileManifest lists the chunks of one original file in order.
// Every chunk but the last is exactly ChunkSize bytes.
type FileManifest struct {
	Size   int64    `json:"size"`
	Chunks []string `json:"chunks"`
}

// NewIndexManifest returns an empty manifest for chunkSize.
func NewIndexManifest(chunkSize int64) *IndexManifest {
	return &IndexManifest{
		Version:   ManifestVersion,
		ChunkSize: chunkSize,
		Files:     make(map[string]FileManifest),
	}
}

// AddFile records a file and adds its size to the total.
func (m *IndexManifest) AddFile(name string, fm FileManifest) {
	if m.Files == nil {
		m.Files = make(map[string]FileManifest)
	}
	if prev, ok := m.Files[name]; ok {
		m.TotalSize -= uint64(prev.Size)
	}
	m.Files[name] = fm
	m.TotalSize += uint64(fm.Size)
}

// FileNames returns the manifest's file names in sorted order.
func (m *IndexManifest) FileNames() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChunkCount returns the number of chunks across all files.
func (m *IndexManifest) ChunkCount() int {
	n := 0
	for _, fm := range m.Files {
		n += len(fm.Chunks)
	}
	return n
}

// Validate checks the version and the structural invariants readers rely on.
func (m *IndexManifest) Validate() error {
	if m.Version != ManifestVersion {
		return Errorf(KindSerialization, "validate manifest", "", "unsupported manifest version %d (want %d)", m.Version, ManifestVersion)
	}
	if m.ChunkSize <= 0 {
		return Errorf(KindSerialization, "validate manifest", "", "invalid chunk size %d", m.ChunkSize)
	}
	var total uint64
	for name, fm := range m.Files {
		if fm.Size < 0 {
			return Errorf(KindSerialization, "validate manifest", name, "negative size %d", fm.Size)
		}
		if len(fm.Chunks) == 0 {
			return Errorf(KindSerialization, "validate manifest", name, "file has no chunks")
		}
		maxBytes := int64(len(fm.Chunks)) * m.ChunkSize
		if fm.Size > maxBytes {
			return Errorf(KindSerialization, "validate manifest", name, "size %d exceeds %d chunks of %d bytes", fm.Size, len(fm.Chunks), m.ChunkSize)
		}
		total += uint64(fm.Size)
	}
	if total != m.TotalSize {
		return Errorf(KindSerialization, "validate manifest", "", "total_size %d does not match sum of file sizes %d", m.TotalSize, total)
	}
	return nil
}

// ToJSON serializes the manifest as indented JSON.
func (m *IndexManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, NewError(KindSerialization, "encode manifest", "", err)
	}
	return data, nil
}

// ManifestFromJSON parses and validates a manifest.
// An unknown version is rejected rather than guessed at.
func ManifestFromJSON(data []byte) (*IndexManifest, error) {
	var m IndexManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, NewError(KindSerialization, "decode manifest", "", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// String returns a short description for logs.
func (m *IndexManifest) String() string {
	return fmt.Sprintf("manifest v%d: %d files, %d chunks of %d bytes, %d bytes total",
		m.Version, len(m.Files), m.ChunkCount(), m.ChunkSize, m.TotalSize)
}
