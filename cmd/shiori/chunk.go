package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/models"
)

var chunkOpts struct {
	size      int64
	prefix    string
	recursive bool
	verify    bool
}

var chunkCmd = &cobra.Command{
	Use:   "chunk <source-dir> <output-dir>",
	Short: "Split index files into fixed-size chunks with a manifest",
	Long: `Split every regular file in source-dir into fixed-size chunks written to
output-dir, together with a manifest.json describing how to reassemble them.
Without --recursive only files directly under source-dir are chunked.`,
	Args: cobra.ExactArgs(2),
	RunE: runChunk,
}

func init() {
	f := chunkCmd.Flags()
	f.Int64Var(&chunkOpts.size, "chunk-size", 0, "chunk size in bytes (default: search.chunk_size)")
	f.StringVar(&chunkOpts.prefix, "prefix", "", "chunk file name prefix (default: search.chunk_prefix)")
	f.BoolVarP(&chunkOpts.recursive, "recursive", "r", false, "chunk files in subdirectories too")
	f.BoolVar(&chunkOpts.verify, "verify", false, "reassemble every file and compare with the source")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	cfg := indexer.ChunkerConfig{ChunkSize: e.cfg.Search.ChunkSize, ChunkPrefix: e.cfg.Search.ChunkPrefix}
	if chunkOpts.size > 0 {
		cfg.ChunkSize = chunkOpts.size
	}
	if chunkOpts.prefix != "" {
		cfg.ChunkPrefix = chunkOpts.prefix
	}
	c := indexer.NewIndexChunker(cfg, indexer.WithChunkerLogger(e.logger))

	src, out := args[0], args[1]
	var m *models.IndexManifest
	if chunkOpts.recursive {
		m, err = c.ChunkTree(src, out)
	} else {
		m, err = c.ChunkDirectory(src, out)
	}
	if err != nil {
		return err
	}
	if err := indexer.WriteManifest(m, filepath.Join(out, models.ManifestFileName)); err != nil {
		return err
	}
	if chunkOpts.verify {
		if err := verifyChunks(m, src, out); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), m.String())
	return nil
}

func verifyChunks(m *models.IndexManifest, src, out string) error {
	for _, name := range m.FileNames() {
		got, err := indexer.ReassembleChunks(m, out, name)
		if err != nil {
			return err
		}
		want, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(name)))
		if err != nil {
			return err
		}
		if !bytes.Equal(got, want) {
			return fmt.Errorf("verify %s: reassembled %d bytes differ from source (%d bytes)", name, len(got), len(want))
		}
	}
	return nil
}
