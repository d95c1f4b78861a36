package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// PathUsage is the on-disk size of one output location.
type PathUsage struct {
	Path  string `json:"path"`
	Bytes int64  `json:"bytes"`
	Files int    `json:"files"`
}

// DiskUsage measures each path (file or directory tree). Empty and missing paths
// are left out of the result.
func DiskUsage(paths ...string) ([]PathUsage, error) {
	out := make([]PathUsage, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		u := PathUsage{Path: p}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			u.Bytes += info.Size()
			u.Files++
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// DiskUsageBytes is the summed size of DiskUsage(paths...).
func DiskUsageBytes(paths ...string) (int64, error) {
	usage, err := DiskUsage(paths...)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, u := range usage {
		total += u.Bytes
	}
	return total, nil
}
