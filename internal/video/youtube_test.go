package video

import (
	"errors"
	"testing"
)

func TestVideoID(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtube.com/watch?v=dQw4w9WgXcQ&t=10s", "dQw4w9WgXcQ", false},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ", false},
		{"https://youtu.be/", "", true},
		{"https://example.com/watch?v=dQw4w9WgXcQ", "", true},
		{"not a url at all ://", "", true},
	}

	for _, tc := range testCases {
		id, err := VideoID(tc.url)
		if tc.wantErr {
			if err == nil {
				t.Errorf("VideoID(%q) expected error, got %q", tc.url, id)
			} else if !errors.Is(err, ErrNotAVideoURL) {
				t.Errorf("VideoID(%q) error = %v, want ErrNotAVideoURL", tc.url, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("VideoID(%q) returned error: %v", tc.url, err)
			continue
		}
		if id != tc.expected {
			t.Errorf("VideoID(%q) = %q, want %q", tc.url, id, tc.expected)
		}
	}
}

func TestBestProgressive(t *testing.T) {
	streams := []Stream{
		{MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360, QualityLabel: "360p"},
		{MimeType: `video/webm; codecs="vp9"`, Height: 1080, QualityLabel: "1080p"},
		{MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Height: 720, QualityLabel: "720p"},
	}

	best := BestProgressive(streams, 1080)
	if best == nil {
		t.Fatal("expected a stream")
	}
	if best.Height != 720 {
		t.Errorf("best.Height = %d, want 720 (webm must be ignored)", best.Height)
	}
}

func TestBestProgressiveRespectsCap(t *testing.T) {
	streams := []Stream{
		{MimeType: "video/mp4", Height: 2160},
		{MimeType: "video/mp4", Height: 1080},
		{MimeType: "video/mp4", Height: 480},
	}

	best := BestProgressive(streams, 1080)
	if best == nil || best.Height != 1080 {
		t.Fatalf("expected 1080p, got %+v", best)
	}
}

func TestBestProgressiveAllAboveCap(t *testing.T) {
	streams := []Stream{
		{MimeType: "video/mp4", Height: 2160},
		{MimeType: "video/mp4", Height: 1440},
	}

	best := BestProgressive(streams, 1080)
	if best == nil || best.Height != 1440 {
		t.Fatalf("expected lowest available (1440), got %+v", best)
	}
}

func TestBestProgressiveNoCandidates(t *testing.T) {
	streams := []Stream{
		{MimeType: "video/webm", Height: 720},
		{MimeType: "audio/mp4", Height: 0},
	}

	audioOnly := streams[1:]
	if got := BestProgressive(audioOnly, 1080); got == nil {
		// audio/mp4 does not carry the video/mp4 prefix, so nothing matches
	} else {
		t.Errorf("expected nil for audio-only formats, got %+v", got)
	}

	if got := BestProgressive(streams[:1], 1080); got != nil {
		t.Errorf("expected nil for webm-only formats, got %+v", got)
	}

	if got := BestProgressive(nil, 1080); got != nil {
		t.Errorf("expected nil for empty input, got %+v", got)
	}
}
