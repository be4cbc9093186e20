package mirror

import (
	"errors"
	"testing"

	"singularity/internal/domain"
)

func classify(t *testing.T, title, locator string) Strategy {
	t.Helper()
	var c Classifier
	s, err := c.Classify(domain.MaterialRef{Title: title, Locator: locator})
	if err != nil {
		t.Fatalf("Classify(%q) returned error: %v", locator, err)
	}
	return s
}

func TestClassifyRelativePath(t *testing.T) {
	s := classify(t, "Syllabus", "/d2l/le/content/12345/topics/files/syllabus.pdf")
	if s.Kind != FetchDirect {
		t.Errorf("Expected direct fetch, got %v", s.Kind)
	}
	if s.FileName() != "Syllabus.pdf" {
		t.Errorf("Expected Syllabus.pdf, got %q", s.FileName())
	}
}

func TestClassifyRelativePathNoExtension(t *testing.T) {
	s := classify(t, "Notes", "/d2l/le/content/12345/viewContent/9/View")
	if s.Kind != FetchDirect || s.Ext != "" {
		t.Errorf("Expected direct fetch without extension, got %v ext %q", s.Kind, s.Ext)
	}
}

func TestClassifyDriveFile(t *testing.T) {
	s := classify(t, "Dataset", "https://drive.google.com/file/d/1aBcDeFg/view?usp=sharing")
	if s.Kind != FetchDrive {
		t.Errorf("Expected drive fetch, got %v", s.Kind)
	}
	if s.FileID != "1aBcDeFg" {
		t.Errorf("Expected file id 1aBcDeFg, got %q", s.FileID)
	}
}

func TestClassifyDriveOpenLink(t *testing.T) {
	s := classify(t, "Dataset", "https://drive.google.com/open?id=1aBcDeFg&authuser=0")
	if s.Kind != FetchDrive || s.FileID != "1aBcDeFg" {
		t.Errorf("Expected drive fetch of 1aBcDeFg, got %v %q", s.Kind, s.FileID)
	}
}

func TestClassifyDriveFolderUnhandled(t *testing.T) {
	var c Classifier
	_, err := c.Classify(domain.MaterialRef{
		Title:   "Shared folder",
		Locator: "https://drive.google.com/drive/folders/1aBcDeFg",
	})
	if !errors.Is(err, ErrUnclassified) {
		t.Errorf("Expected ErrUnclassified for a folder link, got %v", err)
	}
}

func TestClassifyOfficeParamsBeatExport(t *testing.T) {
	// An uploaded .docx rendered through the docs viewer carries rtpof/sd
	// params and must download as a binary, not export.
	s := classify(t, "Handout", "https://docs.google.com/document/d/1aBcDeFg/edit?rtpof=true&sd=true")
	if s.Kind != FetchDrive {
		t.Errorf("Expected drive fetch for office-param link, got %v", s.Kind)
	}
}

func TestClassifyExportFormats(t *testing.T) {
	cases := []struct {
		locator string
		ext     string
	}{
		{"https://docs.google.com/document/d/1aBcDeFg/edit", ".docx"},
		{"https://docs.google.com/presentation/d/1aBcDeFg/edit", ".pptx"},
		{"https://docs.google.com/spreadsheets/d/1aBcDeFg/edit", ".xlsx"},
	}
	for _, c := range cases {
		s := classify(t, "Doc", c.locator)
		if s.Kind != FetchExport {
			t.Errorf("Expected export for %s, got %v", c.locator, s.Kind)
		}
		if s.Ext != c.ext {
			t.Errorf("Expected extension %s for %s, got %q", c.ext, c.locator, s.Ext)
		}
		if s.FileID != "1aBcDeFg" {
			t.Errorf("Expected file id 1aBcDeFg, got %q", s.FileID)
		}
	}
}

func TestClassifyUnknownDocType(t *testing.T) {
	var c Classifier
	_, err := c.Classify(domain.MaterialRef{
		Title:   "Drawing",
		Locator: "https://docs.google.com/drawings/d/1aBcDeFg/edit",
	})
	if !errors.Is(err, ErrUnclassified) {
		t.Errorf("Expected ErrUnclassified for a drawing, got %v", err)
	}
}

func TestClassifyVideo(t *testing.T) {
	for _, locator := range []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
	} {
		s := classify(t, "Lecture", locator)
		if s.Kind != FetchVideo {
			t.Errorf("Expected video fetch for %s, got %v", locator, s.Kind)
		}
		if s.FileName() != "Lecture.mp4" {
			t.Errorf("Expected Lecture.mp4, got %q", s.FileName())
		}
	}
}

func TestClassifyUnrecognized(t *testing.T) {
	var c Classifier
	for _, locator := range []string{
		"https://example.com/page",
		"",
	} {
		if _, err := c.Classify(domain.MaterialRef{Title: "x", Locator: locator}); !errors.Is(err, ErrUnclassified) {
			t.Errorf("Expected ErrUnclassified for %q, got %v", locator, err)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	m := domain.MaterialRef{Title: "Dataset", Locator: "https://drive.google.com/file/d/1aBcDeFg/view"}
	var c Classifier
	first, err := c.Classify(m)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	second, err := c.Classify(m)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if first != second {
		t.Errorf("Expected identical strategies, got %+v and %+v", first, second)
	}
}
