package mirror

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// UnhandledLog collects locators no download rule recognized.
	UnhandledLog = "nothandled.txt"
	// ErrorLog collects per-item download failures.
	ErrorLog = "errors.txt"
)

// Sidecar appends per-item failures to the course directory so one broken
// material never stops the rest of the walk.
type Sidecar struct {
	mu  sync.Mutex
	dir string
}

func NewSidecar(dir string) *Sidecar {
	return &Sidecar{dir: dir}
}

// Reset removes both logs so a run only reports its own failures.
func (s *Sidecar) Reset() error {
	for _, name := range []string{UnhandledLog, ErrorLog} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Unhandled records a locator that matched no download rule.
func (s *Sidecar) Unhandled(locator string) error {
	return s.append(UnhandledLog, locator+"\n")
}

// Failure records a download error against the file it was producing.
func (s *Sidecar) Failure(target string, err error) error {
	return s.append(ErrorLog, fmt.Sprintf("%s: %v\n", target, err))
}

func (s *Sidecar) append(name, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line)
	return err
}
