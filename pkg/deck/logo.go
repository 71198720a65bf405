package deck

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/altossa/deckgen/pkg/catalog"
)

// LogoPath finds a company logo under staticDir/logo/<Company>/
// (logo.png, logo.jpg or logo.jpeg), matching the company directory and
// the file name case-insensitively. Returns false when no logo exists.
func LogoPath(staticDir, company string) (string, bool) {
	if staticDir == "" || strings.TrimSpace(company) == "" {
		return "", false
	}
	dir, ok := catalog.ResolveDir(staticDir, "logo", company)
	if !ok {
		return "", false
	}

	children, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, ch := range children {
		if ch.IsDir() {
			continue
		}
		switch strings.ToLower(ch.Name()) {
		case "logo.png", "logo.jpg", "logo.jpeg":
			return filepath.Join(dir, ch.Name()), true
		}
	}
	return "", false
}
