// Package video resolves hosted videos to a progressive stream that can be
// saved as a single file, using YouTube's internal player API.
package video

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"singularity/internal/httpx"
)

const (
	playerEndpoint = "https://www.youtube.com/youtubei/v1/player"

	// The Android client receives directly fetchable stream URLs.
	clientName       = "ANDROID"
	clientVersion    = "19.09.37"
	androidSDKLevel  = 30
	defaultUserAgent = "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip"

	// maxHeight caps stream selection at the platform's default quality.
	maxHeight = 1080
)

// ErrNoStream means the video offers no progressive stream we can save.
var ErrNoStream = errors.New("video: no progressive stream available")

// ErrNotAVideoURL means the locator does not look like a watchable video link.
var ErrNotAVideoURL = errors.New("video: not a video URL")

// Client calls the player API and downloads progressive streams.
type Client struct {
	HTTP  *http.Client
	Retry httpx.RetryConfig
}

func New() *Client {
	return &Client{
		HTTP: &http.Client{
			Timeout: 15 * time.Minute, // streams can be large
		},
		Retry: httpx.DefaultRetryConfig(),
	}
}

// Stream is one progressive (muxed audio+video) rendition.
type Stream struct {
	URL           string
	MimeType      string
	QualityLabel  string
	Height        int
	ContentLength int64
}

type playerRequest struct {
	VideoID string        `json:"videoId"`
	Context clientContext `json:"context"`
}

type clientContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSDKVersion int    `json:"androidSdkVersion"`
	HL                string `json:"hl"`
	GL                string `json:"gl"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	StreamingData struct {
		Formats []struct {
			URL           string `json:"url"`
			MimeType      string `json:"mimeType"`
			QualityLabel  string `json:"qualityLabel"`
			Height        int    `json:"height"`
			ContentLength string `json:"contentLength"`
		} `json:"formats"`
	} `json:"streamingData"`
	VideoDetails struct {
		Title string `json:"title"`
	} `json:"videoDetails"`
}

// VideoID extracts the video id from a watch, share or embed URL.
func VideoID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrNotAVideoURL, rawURL)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if id == "" {
			return "", fmt.Errorf("%w: %q", ErrNotAVideoURL, rawURL)
		}
		return id, nil
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); id != "" {
			return id, nil
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/live/", "/v/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
				if id != "" {
					return id, nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotAVideoURL, rawURL)
}

// Resolve returns the video title and the best progressive mp4 stream at or
// below the default resolution cap, falling back to the highest offered.
func (c *Client) Resolve(ctx context.Context, videoID string) (string, *Stream, error) {
	reqBody, err := json.Marshal(playerRequest{
		VideoID: videoID,
		Context: clientContext{Client: innertubeClient{
			ClientName:        clientName,
			ClientVersion:     clientVersion,
			AndroidSDKVersion: androidSDKLevel,
			HL:                "en",
			GL:                "US",
		}},
	})
	if err != nil {
		return "", nil, fmt.Errorf("video: marshal player request: %w", err)
	}

	var resp playerResponse
	err = httpx.DoJSON(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodPost, playerEndpoint, bytes.NewReader(reqBody))
			if err != nil {
				return nil, err
			}
			r.Header.Set("Content-Type", "application/json")
			r.Header.Set("User-Agent", defaultUserAgent)
			return r, nil
		},
		&resp,
		c.Retry,
	)
	if err != nil {
		return "", nil, fmt.Errorf("video: player request for %s: %w", videoID, err)
	}

	if s := resp.PlayabilityStatus.Status; s != "" && s != "OK" {
		return "", nil, fmt.Errorf("video: %s is not playable: %s (%s)", videoID, s, resp.PlayabilityStatus.Reason)
	}

	streams := make([]Stream, 0, len(resp.StreamingData.Formats))
	for _, f := range resp.StreamingData.Formats {
		if f.URL == "" {
			continue
		}
		var length int64
		fmt.Sscanf(f.ContentLength, "%d", &length)
		streams = append(streams, Stream{
			URL:           f.URL,
			MimeType:      f.MimeType,
			QualityLabel:  f.QualityLabel,
			Height:        f.Height,
			ContentLength: length,
		})
	}

	best := BestProgressive(streams, maxHeight)
	if best == nil {
		return "", nil, ErrNoStream
	}
	return resp.VideoDetails.Title, best, nil
}

// BestProgressive picks the highest-resolution mp4 stream not above limit.
// When everything is above the limit, the lowest stream wins so the download
// still succeeds.
func BestProgressive(streams []Stream, limit int) *Stream {
	var best *Stream
	var lowest *Stream
	for i := range streams {
		s := &streams[i]
		if !strings.HasPrefix(s.MimeType, "video/mp4") {
			continue
		}
		if lowest == nil || s.Height < lowest.Height {
			lowest = s
		}
		if s.Height > limit {
			continue
		}
		if best == nil || s.Height > best.Height {
			best = s
		}
	}
	if best == nil {
		return lowest
	}
	return best
}

// Download streams the rendition into w.
func (c *Client) Download(ctx context.Context, s *Stream, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("video: build stream request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("video: fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpx.HTTPError{Method: http.MethodGet, URL: s.URL, StatusCode: resp.StatusCode, Header: resp.Header.Clone()}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("video: stream copy: %w", err)
	}
	return nil
}
