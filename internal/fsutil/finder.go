package fsutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is one matched image/annotation couple. ID is the shared base name.
type Pair struct {
	ID        string
	ImagePath string
	AnnotPath string
}

// FindPairs recursively searches rootPath for files whose extensions appear
// in imageExts and annotExts, and pairs them by base name. Files without a
// counterpart are ignored. The result is sorted by ID so batch order is
// deterministic.
func FindPairs(rootPath string, imageExts, annotExts []string) ([]Pair, error) {
	if len(imageExts) == 0 || len(annotExts) == 0 {
		panic("extension sets must not be empty")
	}

	images := make(map[string]string)
	annots := make(map[string]string)

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if base, ok := trimExt(name, imageExts); ok {
			images[base] = path
			return nil
		}
		if base, ok := trimExt(name, annotExts); ok {
			annots[base] = path
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", rootPath, err)
	}

	var pairs []Pair
	for base, imgPath := range images {
		annotPath, ok := annots[base]
		if !ok {
			continue
		}
		pairs = append(pairs, Pair{ID: base, ImagePath: imgPath, AnnotPath: annotPath})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].ID < pairs[j].ID })
	return pairs, nil
}

// trimExt strips the first matching extension (case-insensitive) and
// reports whether one matched.
func trimExt(name string, exts []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return name[:len(name)-len(ext)], true
		}
	}
	return "", false
}
