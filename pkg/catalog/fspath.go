package catalog

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveDir descends root one path segment at a time, matching each
// segment against the directory's immediate children by normalized
// name. It returns false as soon as a segment cannot be resolved or a
// directory cannot be read; enumeration errors never escape this
// boundary.
func ResolveDir(root string, segments ...string) (string, bool) {
	cur := root
	for _, seg := range segments {
		want := Normalize(seg)
		children, err := os.ReadDir(cur)
		if err != nil {
			return "", false
		}
		// ReadDir sorts by name, so the first normalized match is
		// deterministic.
		next := ""
		for _, ch := range children {
			if ch.IsDir() && Normalize(ch.Name()) == want {
				next = filepath.Join(cur, ch.Name())
				break
			}
		}
		if next == "" {
			return "", false
		}
		cur = next
	}
	return cur, true
}

// ListImages returns the allow-listed image files under the
// case-insensitively resolved root/segments... directory, in name
// order. Missing directories yield nil.
func ListImages(root string, segments ...string) []string {
	dir, ok := ResolveDir(root, segments...)
	if !ok {
		return nil
	}
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, ch := range children {
		if ch.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(ch.Name()))] {
			files = append(files, filepath.Join(dir, ch.Name()))
		}
	}
	return files
}
