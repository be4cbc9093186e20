package gdrive

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Client fetches Drive file content for the mirror: raw binary download for
// uploaded files, format export for native Google documents.
type Client struct {
	svc *driveapi.Service
}

func New(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := driveapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("gdrive: create service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// Download returns the binary content of a Drive file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("gdrive: download %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gdrive: read %s: %w", fileID, err)
	}
	return body, nil
}

// Export converts a native Google document (Doc/Sheet/Slides) to the given
// MIME type and returns the converted bytes.
func (c *Client) Export(ctx context.Context, fileID, mimeType string) ([]byte, error) {
	resp, err := c.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("gdrive: export %s as %s: %w", fileID, mimeType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gdrive: read export of %s: %w", fileID, err)
	}
	return body, nil
}
