package mirror

import "strings"

// FetchKind identifies which download mechanism a classified material needs.
type FetchKind int

const (
	// FetchDirect downloads a platform-native file through the course session.
	FetchDirect FetchKind = iota + 1
	// FetchDrive downloads a cloud-drive binary by file id.
	FetchDrive
	// FetchExport converts a cloud document to an office format and downloads it.
	FetchExport
	// FetchVideo resolves a hosted video and streams its best progressive rendition.
	FetchVideo
)

func (k FetchKind) String() string {
	switch k {
	case FetchDirect:
		return "direct"
	case FetchDrive:
		return "drive"
	case FetchExport:
		return "export"
	case FetchVideo:
		return "video"
	default:
		return "unknown"
	}
}

// videoExts are the container extensions a video download may land with.
var videoExts = []string{".mp4", ".mov", ".m4v", ".mkv"}

func isVideoExt(ext string) bool {
	for _, e := range videoExts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Strategy is the resolved plan for fetching one material into a directory.
type Strategy struct {
	Kind FetchKind

	// BaseName is the sanitized on-disk name without extension.
	BaseName string
	// Ext is the target extension including the dot, empty when unknown.
	Ext string

	// Locator is the resolved remote locator, used by direct and video fetches.
	Locator string
	// FileID is the cloud-drive file id, used by drive and export fetches.
	FileID string
	// ExportMIME is the conversion target for export fetches.
	ExportMIME string
}

// FileName is the preferred on-disk name for the fetched file.
func (s Strategy) FileName() string {
	return s.BaseName + s.Ext
}

// AcceptableNames lists every on-disk name that counts as this material
// already being synced. Drive binaries keep their remote name, which may or
// may not carry an extension, so both the bare name and the known video
// containers are accepted.
func (s Strategy) AcceptableNames() []string {
	switch s.Kind {
	case FetchDrive:
		names := make([]string, 0, len(videoExts)+1)
		names = append(names, s.BaseName)
		for _, ext := range videoExts {
			names = append(names, s.BaseName+ext)
		}
		return names
	case FetchVideo:
		names := make([]string, 0, len(videoExts))
		for _, ext := range videoExts {
			names = append(names, s.BaseName+ext)
		}
		return names
	default:
		return []string{s.FileName()}
	}
}
