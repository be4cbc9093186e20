package mirror

import (
	"os"
	"path/filepath"
)

// ShouldSkip reports whether the strategy's target already exists in dir.
// Force disables skipping so every material is fetched again.
func ShouldSkip(dir string, s Strategy, force bool) bool {
	if force {
		return false
	}
	for _, name := range s.AcceptableNames() {
		if fileExists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
