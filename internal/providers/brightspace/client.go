package brightspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"singularity/internal/httpx"
	"singularity/internal/providers"
)

// D2L API contract versions. Matching the versions the web UI itself uses
// keeps cookie-based access working.
const (
	leVersion        = "1.51"
	lpVersion        = "1.35"
	classlistVersion = "1.33"
)

// Client talks to a D2L Brightspace instance using browser session cookies.
type Client struct {
	BaseURL string
	Cookies map[string]string
	HTTP    *http.Client
	Retry   httpx.RetryConfig
}

func New(baseURL string, cookies map[string]string) *Client {
	tr := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Cookies: cookies,
		HTTP: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: tr,
		},
		Retry: httpx.DefaultRetryConfig(),
	}
}

// CookiesFromSession builds the cookie map from the two D2L session values.
func CookiesFromSession(sessionVal, secureSessionVal string) map[string]string {
	return map[string]string{
		"d2lSessionVal":       sessionVal,
		"d2lSecureSessionVal": secureSessionVal,
	}
}

// LoadCookiesFile reads a browser cookie export, a JSON array of
// {"name": ..., "value": ...} objects.
func LoadCookiesFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("brightspace: read cookies file: %w", err)
	}
	var entries []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("brightspace: parse cookies file %s: %w", path, err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Name] = e.Value
	}
	return out, nil
}

/* -------- Response shapes -------- */

// Module is a container in the course content tree.
type Module struct {
	ID          int64  `json:"Id"`
	Title       string `json:"Title"`
	Description struct {
		HTML string `json:"Html"`
	} `json:"Description"`
	Structure []Item `json:"Structure"`
}

// Item is one entry of a module's Structure. Type 0 is a nested module,
// anything else is a topic (leaf).
type Item struct {
	ID    int64  `json:"Id"`
	Title string `json:"Title"`
	Type  int    `json:"Type"`
}

// Topic is a leaf content entry; Url is where its payload lives.
type Topic struct {
	ID    int64  `json:"Id"`
	Title string `json:"Title"`
	URL   string `json:"Url"`
}

type enrollmentsResponse struct {
	Items []struct {
		OrgUnit struct {
			ID   int64  `json:"Id"`
			Name string `json:"Name"`
			Type struct {
				Name string `json:"Name"`
			} `json:"Type"`
		} `json:"OrgUnit"`
		Access struct {
			IsActive bool `json:"IsActive"`
		} `json:"Access"`
	} `json:"Items"`
}

/* -------- API -------- */

// ContentRoot fetches the course's top-level module list. It returns the raw
// payload alongside the parsed modules so callers can snapshot it verbatim.
// An unparseable payload means expired cookies or a wrong course id and is
// reported as a bad listing.
func (c *Client) ContentRoot(ctx context.Context, courseID string) ([]Module, []byte, error) {
	u := fmt.Sprintf("%s/d2l/api/le/%s/%s/content/root/", c.BaseURL, leVersion, courseID)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, nil, fmt.Errorf("brightspace: content root for course %s: %w: %w", courseID, providers.ErrBadListing, err)
	}

	var mods []Module
	if err := json.Unmarshal(body, &mods); err != nil {
		return nil, nil, fmt.Errorf("brightspace: content root for course %s is not valid JSON (expired cookies or wrong course id?): %w", courseID, providers.ErrBadListing)
	}
	return mods, body, nil
}

// GetModule fetches one module with its Structure and description.
func (c *Client) GetModule(ctx context.Context, courseID string, moduleID int64) (Module, error) {
	u := fmt.Sprintf("%s/d2l/api/le/%s/%s/content/modules/%d", c.BaseURL, leVersion, courseID, moduleID)

	body, err := c.get(ctx, u)
	if err != nil {
		return Module{}, fmt.Errorf("brightspace: get module %d: %w", moduleID, err)
	}
	var m Module
	if err := json.Unmarshal(body, &m); err != nil {
		return Module{}, fmt.Errorf("brightspace: parse module %d: %w", moduleID, err)
	}
	return m, nil
}

// GetTopic fetches one topic, resolving the locator of its payload.
func (c *Client) GetTopic(ctx context.Context, courseID string, topicID int64) (Topic, error) {
	u := fmt.Sprintf("%s/d2l/api/le/%s/%s/content/topics/%d", c.BaseURL, leVersion, courseID, topicID)

	body, err := c.get(ctx, u)
	if err != nil {
		return Topic{}, fmt.Errorf("brightspace: get topic %d: %w", topicID, err)
	}
	var t Topic
	if err := json.Unmarshal(body, &t); err != nil {
		return Topic{}, fmt.Errorf("brightspace: parse topic %d: %w", topicID, err)
	}
	return t, nil
}

// Classlist fetches the course roster. Callers treat failures as best effort
// since many roles lack the permission.
func (c *Client) Classlist(ctx context.Context, courseID string) ([]byte, error) {
	u := fmt.Sprintf("%s/d2l/api/le/%s/%s/classlist/", c.BaseURL, classlistVersion, courseID)
	return c.get(ctx, u)
}

// AnnouncementsPage fetches the rendered news page for the course.
func (c *Client) AnnouncementsPage(ctx context.Context, courseID string) ([]byte, error) {
	u := fmt.Sprintf("%s/d2l/lms/news/main.d2l?ou=%s&d2l_change=0", c.BaseURL, courseID)
	return c.get(ctx, u)
}

// Enrollments lists the user's course offerings. The raw payload is returned
// for the courses.json snapshot.
func (c *Client) Enrollments(ctx context.Context) ([]CourseOffering, []byte, error) {
	u := fmt.Sprintf("%s/d2l/api/lp/%s/enrollments/myenrollments/", c.BaseURL, lpVersion)

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, nil, fmt.Errorf("brightspace: list enrollments: %w", err)
	}
	var resp enrollmentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("brightspace: parse enrollments: %w", providers.ErrBadListing)
	}

	var out []CourseOffering
	for _, it := range resp.Items {
		if it.OrgUnit.Type.Name != "Course Offering" {
			continue
		}
		out = append(out, CourseOffering{
			ID:     strconv.FormatInt(it.OrgUnit.ID, 10),
			Name:   it.OrgUnit.Name,
			Active: it.Access.IsActive,
		})
	}
	return out, body, nil
}

// CourseOffering is one course the user is enrolled in.
type CourseOffering struct {
	ID     string
	Name   string
	Active bool
}

// FetchFile downloads a file served by the instance itself. Relative locators
// are resolved against the base URL; the session cookies authenticate the
// request.
func (c *Client) FetchFile(ctx context.Context, locator string) ([]byte, error) {
	u := locator
	if strings.HasPrefix(locator, "/") {
		u = c.BaseURL + locator
	}
	return c.get(ctx, u)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	_, body, err := httpx.DoWithRetry(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			r, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			r.Header.Set("Accept", "application/json, */*")
			for name, value := range c.Cookies {
				r.AddCookie(&http.Cookie{Name: name, Value: value})
			}
			return r, nil
		},
		c.Retry,
	)
	return body, err
}
