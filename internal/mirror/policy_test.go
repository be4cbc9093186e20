package mirror

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestShouldSkipExistingFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Syllabus.pdf")

	s := Strategy{Kind: FetchDirect, BaseName: "Syllabus", Ext: ".pdf"}
	if !ShouldSkip(dir, s, false) {
		t.Error("Expected existing file to be skipped")
	}
	if ShouldSkip(dir, s, true) {
		t.Error("Expected force to disable skipping")
	}
}

func TestShouldSkipMissingFile(t *testing.T) {
	s := Strategy{Kind: FetchDirect, BaseName: "Syllabus", Ext: ".pdf"}
	if ShouldSkip(t.TempDir(), s, false) {
		t.Error("Expected missing file not to be skipped")
	}
}

func TestShouldSkipDriveAcceptsVideoExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Recording.mp4")

	s := Strategy{Kind: FetchDrive, BaseName: "Recording"}
	if !ShouldSkip(dir, s, false) {
		t.Error("Expected drive material with an .mp4 on disk to be skipped")
	}
}

func TestShouldSkipVideoAnyContainer(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "Lecture.mkv")

	s := Strategy{Kind: FetchVideo, BaseName: "Lecture", Ext: ".mp4"}
	if !ShouldSkip(dir, s, false) {
		t.Error("Expected video with an .mkv on disk to be skipped")
	}
}

func TestShouldSkipIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "Syllabus.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := Strategy{Kind: FetchDirect, BaseName: "Syllabus", Ext: ".pdf"}
	if ShouldSkip(dir, s, false) {
		t.Error("Expected a directory not to count as a synced file")
	}
}
