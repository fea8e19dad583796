package scratch

import (
	"io/fs"
	"mime"
	"path/filepath"
	"sort"
	"strings"
)

// Artifact is a file that appeared in the watch directory during a cell.
type Artifact struct {
	Name      string // path relative to the watch directory
	Path      string
	MediaType string
	Size      int64
}

type fileSet map[string]int64

// listFiles walks root up to depth levels, skipping hidden directories.
func listFiles(root string, depth int) fileSet {
	files := make(fileSet)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || strings.Count(rel, string(filepath.Separator))+1 >= depth {
				return fs.SkipDir
			}
			return nil
		}
		info, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		files[rel] = info.Size()
		return nil
	})
	return files
}

func newArtifacts(root string, before, after fileSet) []Artifact {
	var out []Artifact
	for rel, size := range after {
		if _, existed := before[rel]; existed {
			continue
		}
		mt := mime.TypeByExtension(filepath.Ext(rel))
		if mt == "" {
			mt = "application/octet-stream"
		}
		out = append(out, Artifact{
			Name:      filepath.ToSlash(rel),
			Path:      filepath.Join(root, rel),
			MediaType: mt,
			Size:      size,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
