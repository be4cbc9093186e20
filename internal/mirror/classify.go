package mirror

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"singularity/internal/domain"
)

// ErrUnclassified marks a locator no download rule recognizes. The walker
// records these in the unhandled sidecar instead of failing the item.
var ErrUnclassified = errors.New("locator matches no download rule")

const (
	driveHost = "drive.google.com"
	docsHost  = "docs.google.com"
)

// exportFormats maps a document-kind keyword in a docs URL to the office
// format it converts to.
var exportFormats = []struct {
	Keyword string
	MIME    string
	Ext     string
}{
	{"document", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"},
	{"presentation", "application/vnd.openxmlformats-officedocument.presentationml.presentation", ".pptx"},
	{"spreadsheet", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx"},
}

// Classifier maps a resolved material locator to a fetch strategy. Rules are
// tried in a fixed order so the same locator always classifies the same way.
type Classifier struct{}

// Classify inspects m.Locator and returns the strategy to fetch it. The
// returned strategy's BaseName is the sanitized material title; callers that
// track collisions override it with a claimed name.
func (Classifier) Classify(m domain.MaterialRef) (Strategy, error) {
	raw := strings.TrimSpace(m.Locator)
	if raw == "" {
		return Strategy{}, fmt.Errorf("%w: empty locator", ErrUnclassified)
	}

	base := Sanitize(m.Title)
	if base == "" {
		base = "untitled"
	}

	// Platform-relative paths are native files served by the course session.
	if strings.HasPrefix(raw, "/") {
		return Strategy{
			Kind:     FetchDirect,
			BaseName: base,
			Ext:      pathExtension(raw),
			Locator:  raw,
		}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Strategy{}, fmt.Errorf("%w: %s", ErrUnclassified, raw)
	}
	host := strings.ToLower(u.Hostname())

	// Drive binaries, plus docs links whose export params say the upstream
	// file is an uploaded office document rather than a native one.
	if (host == driveHost && !strings.Contains(raw, "folders")) ||
		(host == docsHost && hasOfficeParams(u)) {
		id, err := driveFileID(raw)
		if err != nil {
			return Strategy{}, err
		}
		return Strategy{Kind: FetchDrive, BaseName: base, FileID: id}, nil
	}

	// Native cloud documents export to the matching office format.
	if host == docsHost {
		for _, f := range exportFormats {
			if strings.Contains(raw, f.Keyword) {
				id, err := driveFileID(raw)
				if err != nil {
					return Strategy{}, err
				}
				return Strategy{
					Kind:       FetchExport,
					BaseName:   base,
					Ext:        f.Ext,
					FileID:     id,
					ExportMIME: f.MIME,
				}, nil
			}
		}
		return Strategy{}, fmt.Errorf("%w: unsupported document type %s", ErrUnclassified, raw)
	}

	if isVideoHost(host) {
		return Strategy{Kind: FetchVideo, BaseName: base, Ext: ".mp4", Locator: raw}, nil
	}

	return Strategy{}, fmt.Errorf("%w: %s", ErrUnclassified, raw)
}

func isVideoHost(host string) bool {
	return host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com")
}

// hasOfficeParams reports whether the docs URL carries the rtpof/sd markers
// that identify an uploaded office file rendered through the docs viewer.
func hasOfficeParams(u *url.URL) bool {
	q := u.Query()
	return q.Get("rtpof") == "true" && q.Get("sd") == "true"
}

// driveFileID extracts the file id from a drive or docs link, accepting both
// the /d/<id> path form and the /open?id=<id> query form.
func driveFileID(raw string) (string, error) {
	for _, sep := range []string{"/d/", "?id=", "&id="} {
		_, rest, ok := strings.Cut(raw, sep)
		if !ok {
			continue
		}
		if end := strings.IndexAny(rest, "./&?#"); end >= 0 {
			rest = rest[:end]
		}
		if rest != "" {
			return rest, nil
		}
	}
	return "", fmt.Errorf("no file id in drive link %s", raw)
}

// pathExtension returns the extension of the final path segment, query
// string excluded, or "" when the segment has none.
func pathExtension(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	seg := raw[strings.LastIndex(raw, "/")+1:]
	if i := strings.LastIndex(seg, "."); i > 0 {
		return seg[i:]
	}
	return ""
}
