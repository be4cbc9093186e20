package mirror

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ReportFile is written into the course directory after every sync run.
const ReportFile = "sync-report.json"

// Report summarizes one sync run over a single course.
type Report struct {
	mu sync.Mutex

	RunID           string    `json:"runId"`
	CourseID        string    `json:"courseId"`
	Platform        string    `json:"platform"`
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	DurationSeconds float64   `json:"durationSeconds"`

	Downloaded int `json:"downloaded"`
	Skipped    int `json:"skipped"`
	Unhandled  int `json:"unhandled"`
	Failed     int `json:"failed"`
}

func NewReport(courseID, platform string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		CourseID:  courseID,
		Platform:  platform,
		StartedAt: time.Now().UTC(),
	}
}

func (r *Report) AddDownloaded() { r.add(&r.Downloaded) }
func (r *Report) AddSkipped()    { r.add(&r.Skipped) }
func (r *Report) AddUnhandled()  { r.add(&r.Unhandled) }
func (r *Report) AddFailed()     { r.add(&r.Failed) }

func (r *Report) add(counter *int) {
	r.mu.Lock()
	*counter++
	r.mu.Unlock()
}

// Finish stamps the end time and duration.
func (r *Report) Finish() {
	r.mu.Lock()
	r.FinishedAt = time.Now().UTC()
	r.DurationSeconds = r.FinishedAt.Sub(r.StartedAt).Seconds()
	r.mu.Unlock()
}

// WriteFile persists the report into the course directory.
func (r *Report) WriteFile(dir string) error {
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ReportFile), data, 0o644)
}
