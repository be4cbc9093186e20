package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"singularity/internal/video"
)

// DirectFetcher downloads platform-native files through the course session.
type DirectFetcher interface {
	FetchDirect(ctx context.Context, locator string) ([]byte, error)
}

// DriveFetcher downloads and exports cloud-drive files.
type DriveFetcher interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
	Export(ctx context.Context, fileID, mimeType string) ([]byte, error)
}

// VideoFetcher resolves hosted videos and streams a chosen rendition.
type VideoFetcher interface {
	Resolve(ctx context.Context, videoID string) (string, *video.Stream, error)
	Download(ctx context.Context, s *video.Stream, w io.Writer) error
}

// Executor performs the fetch a strategy describes and writes the result
// into the target directory. Fetchers left nil make the matching kinds fail
// with a descriptive error instead of panicking.
type Executor struct {
	Direct DirectFetcher
	Drive  DriveFetcher
	Video  VideoFetcher
}

// Fetch runs the strategy and returns the name of the file it wrote.
func (e *Executor) Fetch(ctx context.Context, dir string, s Strategy) (string, error) {
	switch s.Kind {
	case FetchDirect:
		if e.Direct == nil {
			return "", errors.New("no course session available for native file")
		}
		body, err := e.Direct.FetchDirect(ctx, s.Locator)
		if err != nil {
			return "", err
		}
		return s.FileName(), writeFile(dir, s.FileName(), body)

	case FetchDrive:
		if e.Drive == nil {
			return "", errors.New("drive download requires Google credentials")
		}
		body, err := e.Drive.Download(ctx, s.FileID)
		if err != nil {
			return "", err
		}
		return s.BaseName, writeFile(dir, s.BaseName, body)

	case FetchExport:
		if e.Drive == nil {
			return "", errors.New("document export requires Google credentials")
		}
		body, err := e.Drive.Export(ctx, s.FileID, s.ExportMIME)
		if err != nil {
			return "", err
		}
		return s.FileName(), writeFile(dir, s.FileName(), body)

	case FetchVideo:
		if e.Video == nil {
			return "", errors.New("no video resolver configured")
		}
		return e.fetchVideo(ctx, dir, s)

	default:
		return "", fmt.Errorf("unknown fetch kind %d", s.Kind)
	}
}

// fetchVideo streams the rendition straight to disk and removes the partial
// file when the stream breaks mid-way.
func (e *Executor) fetchVideo(ctx context.Context, dir string, s Strategy) (string, error) {
	id, err := video.VideoID(s.Locator)
	if err != nil {
		return "", err
	}
	_, stream, err := e.Video.Resolve(ctx, id)
	if err != nil {
		return "", err
	}

	name := s.FileName()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := e.Video.Download(ctx, stream, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return name, f.Close()
}

func writeFile(dir, name string, body []byte) error {
	return os.WriteFile(filepath.Join(dir, name), body, 0o644)
}
