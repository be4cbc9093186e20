package brightspace

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"singularity/internal/domain"
)

// Provider adapts the Brightspace client into the providers.TreeProvider
// interface for one course.
type Provider struct {
	C        *Client
	CourseID string

	mu      sync.Mutex
	modules map[int64]Module // fetched modules, keyed by id
	rootRaw []byte           // raw content root payload for info.json
}

func NewProvider(c *Client, courseID string) *Provider {
	return &Provider{
		C:        c,
		CourseID: courseID,
		modules:  make(map[int64]Module),
	}
}

func (p *Provider) Platform() domain.Platform { return domain.PlatformBrightspace }

func (p *Provider) ListRoot(ctx context.Context) ([]domain.Child, error) {
	mods, raw, err := p.C.ContentRoot(ctx, p.CourseID)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.rootRaw = raw
	for _, m := range mods {
		p.modules[m.ID] = m
	}
	p.mu.Unlock()

	out := make([]domain.Child, 0, len(mods))
	for _, m := range mods {
		out = append(out, domain.Child{Node: &domain.ContentNode{
			ID:          strconv.FormatInt(m.ID, 10),
			Title:       m.Title,
			Description: m.Description.HTML,
		}})
	}
	return out, nil
}

func (p *Provider) ListChildren(ctx context.Context, node domain.ContentNode) ([]domain.Child, error) {
	id, err := strconv.ParseInt(node.ID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("brightspace: bad module id %q: %w", node.ID, err)
	}

	m, err := p.module(ctx, id)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Child, 0, len(m.Structure))
	for _, item := range m.Structure {
		if item.Type == 0 {
			// Nested module: fetch it up front so the child node carries its
			// description. The cache keeps this at one GET per module.
			cm, err := p.module(ctx, item.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, domain.Child{Node: &domain.ContentNode{
				ID:          strconv.FormatInt(item.ID, 10),
				Title:       item.Title,
				Description: cm.Description.HTML,
			}})
			continue
		}
		out = append(out, domain.Child{Material: &domain.MaterialRef{
			ID:    strconv.FormatInt(item.ID, 10),
			Title: item.Title,
		}})
	}
	return out, nil
}

// ResolveLocator fetches the topic behind a material reference and returns
// the URL of its payload.
func (p *Provider) ResolveLocator(ctx context.Context, m domain.MaterialRef) (string, error) {
	if m.Locator != "" {
		return m.Locator, nil
	}
	id, err := strconv.ParseInt(m.ID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("brightspace: bad topic id %q: %w", m.ID, err)
	}
	t, err := p.C.GetTopic(ctx, p.CourseID, id)
	if err != nil {
		return "", err
	}
	if t.URL == "" {
		return "", fmt.Errorf("brightspace: topic %d has no payload URL", id)
	}
	return t.URL, nil
}

// SaveCourseFiles writes info.json, classlist.json and announcements.html.
// The classlist and announcements are best effort: many enrollments lack the
// permission, and that should not fail the sync.
func (p *Provider) SaveCourseFiles(ctx context.Context, dir string) error {
	p.mu.Lock()
	raw := p.rootRaw
	p.mu.Unlock()

	if raw == nil {
		if _, err := p.ListRoot(ctx); err != nil {
			return err
		}
		p.mu.Lock()
		raw = p.rootRaw
		p.mu.Unlock()
	}
	if err := os.WriteFile(filepath.Join(dir, "info.json"), raw, 0644); err != nil {
		return fmt.Errorf("brightspace: write info.json: %w", err)
	}

	if cl, err := p.C.Classlist(ctx, p.CourseID); err != nil {
		log.Printf("warn: unable to download classlist (insufficient privileges?): %v", err)
	} else if err := os.WriteFile(filepath.Join(dir, "classlist.json"), cl, 0644); err != nil {
		log.Printf("warn: write classlist.json: %v", err)
	}

	if page, err := p.C.AnnouncementsPage(ctx, p.CourseID); err != nil {
		log.Printf("warn: unable to download announcements: %v", err)
	} else if err := os.WriteFile(filepath.Join(dir, "announcements.html"), extractNewsContent(page), 0644); err != nil {
		log.Printf("warn: write announcements.html: %v", err)
	}

	return nil
}

// extractNewsContent pulls the d_content div out of the rendered news page,
// dropping the surrounding navigation chrome. Template elements become divs
// so the saved page renders standalone. The full page is kept when the div
// is missing.
func extractNewsContent(page []byte) []byte {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return page
	}
	div := findNodeByID(doc, "d_content")
	if div == nil {
		return page
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, div); err != nil {
		return page
	}
	out := strings.ReplaceAll(buf.String(), "<template>", "<div>")
	out = strings.ReplaceAll(out, "</template>", "</div>")
	return []byte("<html><body>" + out + "</body></html>")
}

func findNodeByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNodeByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// FetchDirect downloads a platform-native file through the cookie session.
func (p *Provider) FetchDirect(ctx context.Context, locator string) ([]byte, error) {
	return p.C.FetchFile(ctx, locator)
}

// ListCourses implements providers.CourseLister over the user's enrollments.
func (p *Provider) ListCourses(ctx context.Context) ([]domain.CourseListing, []byte, error) {
	offerings, raw, err := p.C.Enrollments(ctx)
	if err != nil {
		return nil, nil, err
	}
	out := make([]domain.CourseListing, 0, len(offerings))
	for _, o := range offerings {
		status := "INACTIVE"
		if o.Active {
			status = "ACTIVE"
		}
		out = append(out, domain.CourseListing{ID: o.ID, Name: o.Name, Status: status})
	}
	return out, raw, nil
}

func (p *Provider) module(ctx context.Context, id int64) (Module, error) {
	p.mu.Lock()
	m, ok := p.modules[id]
	p.mu.Unlock()
	if ok {
		return m, nil
	}

	m, err := p.C.GetModule(ctx, p.CourseID, id)
	if err != nil {
		return Module{}, err
	}

	p.mu.Lock()
	p.modules[id] = m
	p.mu.Unlock()
	return m, nil
}
