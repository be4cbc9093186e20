package brightspace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"singularity/internal/domain"
)

func TestProviderWalk(t *testing.T) {
	var moduleGets atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/content/root/"):
			json.NewEncoder(w).Encode([]Module{{
				ID:    1,
				Title: "Week 1",
				Structure: []Item{
					{ID: 2, Title: "Readings", Type: 0},
					{ID: 10, Title: "Syllabus", Type: 1},
				},
			}})
		case strings.HasSuffix(r.URL.Path, "/content/modules/2"):
			moduleGets.Add(1)
			json.NewEncoder(w).Encode(Module{
				ID:        2,
				Title:     "Readings",
				Structure: []Item{{ID: 11, Title: "Paper", Type: 1}},
			})
		case strings.HasSuffix(r.URL.Path, "/content/topics/10"):
			json.NewEncoder(w).Encode(Topic{ID: 10, URL: "/content/files/syllabus.pdf"})
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewProvider(newTestClient(srv), "6606")
	ctx := context.Background()

	root, err := p.ListRoot(ctx)
	if err != nil {
		t.Fatalf("ListRoot returned error: %v", err)
	}
	if len(root) != 1 || !root[0].IsContainer() || root[0].Node.Title != "Week 1" {
		t.Fatalf("Unexpected root: %+v", root)
	}

	children, err := p.ListChildren(ctx, *root[0].Node)
	if err != nil {
		t.Fatalf("ListChildren returned error: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("Expected 2 children, got %d", len(children))
	}
	if !children[0].IsContainer() || children[0].Node.Title != "Readings" {
		t.Errorf("Expected first child to be the Readings module, got %+v", children[0])
	}
	if children[1].IsContainer() || children[1].Material.Title != "Syllabus" {
		t.Errorf("Expected second child to be the Syllabus topic, got %+v", children[1])
	}

	// Recursing into the nested module must reuse the prefetched copy.
	nested, err := p.ListChildren(ctx, *children[0].Node)
	if err != nil {
		t.Fatalf("nested ListChildren returned error: %v", err)
	}
	if len(nested) != 1 || nested[0].Material.Title != "Paper" {
		t.Errorf("Unexpected nested children: %+v", nested)
	}
	if got := moduleGets.Load(); got != 1 {
		t.Errorf("Expected module 2 to be fetched once, got %d", got)
	}

	loc, err := p.ResolveLocator(ctx, *children[1].Material)
	if err != nil {
		t.Fatalf("ResolveLocator returned error: %v", err)
	}
	if loc != "/content/files/syllabus.pdf" {
		t.Errorf("Unexpected locator %q", loc)
	}
}

func TestSaveCourseFilesExtractsNewsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/content/root/"):
			json.NewEncoder(w).Encode([]Module{{ID: 1, Title: "Week 1"}})
		case strings.HasSuffix(r.URL.Path, "/classlist/"):
			w.Write([]byte(`[{"Identifier": "1"}]`))
		case strings.HasPrefix(r.URL.Path, "/d2l/lms/news/main.d2l"):
			w.Write([]byte(`<html><body><nav>chrome</nav>` +
				`<div id="d_content" class="d2l-page-main"><p>Exam moved</p><template>hidden</template></div>` +
				`</body></html>`))
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := NewProvider(newTestClient(srv), "6606")
	if err := p.SaveCourseFiles(context.Background(), dir); err != nil {
		t.Fatalf("SaveCourseFiles returned error: %v", err)
	}

	for _, name := range []string{"info.json", "classlist.json", "announcements.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}

	page, err := os.ReadFile(filepath.Join(dir, "announcements.html"))
	if err != nil {
		t.Fatal(err)
	}
	got := string(page)
	if !strings.Contains(got, "<p>Exam moved</p>") {
		t.Errorf("Expected the announcement body, got %q", got)
	}
	if strings.Contains(got, "chrome") {
		t.Errorf("Expected the navigation chrome to be dropped, got %q", got)
	}
	if !strings.Contains(got, "<div>hidden</div>") {
		t.Errorf("Expected template elements rewritten to divs, got %q", got)
	}
}

func TestExtractNewsContentMissingDiv(t *testing.T) {
	page := []byte("<html><body><p>login</p></body></html>")
	if got := extractNewsContent(page); string(got) != string(page) {
		t.Errorf("Expected the full page back when d_content is missing, got %q", got)
	}
}

func TestResolveLocatorEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Topic{ID: 10, Title: "Broken"})
	}))
	defer srv.Close()

	p := NewProvider(newTestClient(srv), "6606")
	if _, err := p.ResolveLocator(context.Background(), domain.MaterialRef{ID: "10"}); err == nil {
		t.Error("Expected error for a topic without a payload URL")
	}
}
