package classroom

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"singularity/internal/domain"
	"singularity/internal/providers"

	classroomapi "google.golang.org/api/classroom/v1"
)

// noTopic is the directory name for materials without a topic assignment.
const noTopic = "NO TOPIC"

// Provider adapts the Classroom client into the providers.TreeProvider
// interface for one course. Classroom has no real container hierarchy, so the
// provider builds a synthetic one: Announcements, Materials and Classwork at
// the root, topics below Materials/Classwork, one directory per post below
// that, materials as the leaves.
type Provider struct {
	C        *Client
	CourseID string

	mu       sync.Mutex
	loaded   bool
	roots    []domain.Child
	children map[string][]domain.Child
	snaps    map[string]any // snapshot filename -> payload
}

func NewProvider(c *Client, courseID string) *Provider {
	return &Provider{C: c, CourseID: courseID}
}

func (p *Provider) Platform() domain.Platform { return domain.PlatformClassroom }

func (p *Provider) ListRoot(ctx context.Context) ([]domain.Child, error) {
	if err := p.load(ctx); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roots, nil
}

func (p *Provider) ListChildren(_ context.Context, node domain.ContentNode) ([]domain.Child, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.loaded {
		return nil, fmt.Errorf("classroom: ListChildren before ListRoot")
	}
	return p.children[node.ID], nil
}

// ResolveLocator returns the material's link. Materials that arrive without
// one (deleted Drive files, stripped attachments) fail here, per item.
func (p *Provider) ResolveLocator(_ context.Context, m domain.MaterialRef) (string, error) {
	if m.Locator == "" {
		return "", fmt.Errorf("classroom: material %q has no link (deleted?)", m.Title)
	}
	return m.Locator, nil
}

func (p *Provider) SaveCourseFiles(ctx context.Context, dir string) error {
	if err := p.load(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	snaps := p.snaps
	p.mu.Unlock()

	for name, payload := range snaps {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			log.Printf("warn: marshal %s: %v", name, err)
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return fmt.Errorf("classroom: write %s: %w", name, err)
		}
	}
	return nil
}

// ListCourses implements providers.CourseLister.
func (p *Provider) ListCourses(ctx context.Context) ([]domain.CourseListing, []byte, error) {
	courses, err := p.C.ListCourses(ctx)
	if err != nil {
		return nil, nil, err
	}
	out := make([]domain.CourseListing, 0, len(courses))
	for _, c := range courses {
		out = append(out, domain.CourseListing{ID: c.Id, Name: c.Name, Status: c.CourseState})
	}
	raw, err := json.MarshalIndent(map[string]any{"courses": courses}, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	return out, raw, nil
}

// load fetches everything once and builds the synthetic tree. A failing
// course lookup means a bad token or course id and aborts the sync.
func (p *Provider) load(ctx context.Context) error {
	p.mu.Lock()
	if p.loaded {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	course, err := p.C.Course(ctx, p.CourseID)
	if err != nil {
		return fmt.Errorf("classroom: get course %s (expired token or wrong course id?): %w: %w", p.CourseID, providers.ErrBadListing, err)
	}

	topics, err := p.C.Topics(ctx, p.CourseID)
	if err != nil {
		return fmt.Errorf("%w: %w", providers.ErrBadListing, err)
	}
	anns, err := p.C.Announcements(ctx, p.CourseID)
	if err != nil {
		return fmt.Errorf("%w: %w", providers.ErrBadListing, err)
	}
	cwms, err := p.C.CourseWorkMaterials(ctx, p.CourseID)
	if err != nil {
		return fmt.Errorf("%w: %w", providers.ErrBadListing, err)
	}
	cws, err := p.C.CourseWork(ctx, p.CourseID)
	if err != nil {
		return fmt.Errorf("%w: %w", providers.ErrBadListing, err)
	}

	snaps := map[string]any{
		"info.json":          course,
		"topics.json":        map[string]any{"topic": topics},
		"announcements.json": map[string]any{"announcements": anns},
		"materials.json":     map[string]any{"courseWorkMaterial": cwms},
		"coursework.json":    map[string]any{"courseWork": cws},
	}

	if students, err := p.C.Students(ctx, p.CourseID); err != nil {
		log.Printf("warn: unable to download student list: %v", err)
	} else {
		snaps["classlist.json"] = map[string]any{"students": students}
	}
	if teachers, err := p.C.Teachers(ctx, p.CourseID); err != nil {
		log.Printf("warn: unable to download teacher list: %v", err)
	} else {
		snaps["teacherlist.json"] = map[string]any{"teachers": teachers}
	}

	roots, children := buildTree(topics, anns, cwms, cws)

	p.mu.Lock()
	p.roots = roots
	p.children = children
	p.snaps = snaps
	p.loaded = true
	p.mu.Unlock()
	return nil
}

// buildTree assembles the synthetic container hierarchy. Pure so the shape
// can be tested without a live service.
func buildTree(
	topics []*classroomapi.Topic,
	anns []*classroomapi.Announcement,
	cwms []*classroomapi.CourseWorkMaterial,
	cws []*classroomapi.CourseWork,
) ([]domain.Child, map[string][]domain.Child) {
	topicNames := make(map[string]string, len(topics))
	for _, t := range topics {
		topicNames[t.TopicId] = t.Name
	}

	children := make(map[string][]domain.Child)
	var roots []domain.Child

	node := func(id, title, desc string) domain.Child {
		return domain.Child{Node: &domain.ContentNode{ID: id, Title: title, Description: desc}}
	}

	// Announcements: one directory per announcement that has attachments.
	var annChildren []domain.Child
	for _, a := range anns {
		if len(a.Materials) == 0 {
			continue
		}
		id := "announcement/" + a.Id
		annChildren = append(annChildren, node(id, strings.ReplaceAll(a.Id, "\n", " "), a.Text))
		children[id] = materialLeaves(a.Materials)
	}
	if len(annChildren) > 0 {
		roots = append(roots, node("announcements", "Announcements", ""))
		children["announcements"] = annChildren
	}

	// Materials and Classwork: topic directories, then one directory per post.
	type post struct {
		id, title, topicID, desc string
		materials                []*classroomapi.Material
	}

	group := func(rootID, rootTitle string, posts []post) {
		var topicOrder []string
		topicChildren := make(map[string][]domain.Child)
		for _, it := range posts {
			if len(it.materials) == 0 {
				continue
			}
			tname := topicNames[it.topicID]
			if tname == "" {
				tname = noTopic
			}
			tid := rootID + "/topic/" + tname
			if _, seen := topicChildren[tid]; !seen {
				topicOrder = append(topicOrder, tid)
				children[tid] = nil
			}
			itemID := rootID + "/item/" + it.id
			children[tid] = append(children[tid], node(itemID, strings.ReplaceAll(it.title, "\n", " "), it.desc))
			children[itemID] = materialLeaves(it.materials)
			topicChildren[tid] = children[tid]
		}
		if len(topicOrder) == 0 {
			return
		}
		var topNodes []domain.Child
		for _, tid := range topicOrder {
			title := strings.TrimPrefix(tid, rootID+"/topic/")
			topNodes = append(topNodes, node(tid, title, ""))
		}
		roots = append(roots, node(rootID, rootTitle, ""))
		children[rootID] = topNodes
	}

	var matPosts []post
	for _, m := range cwms {
		matPosts = append(matPosts, post{id: m.Id, title: m.Title, topicID: m.TopicId, desc: m.Description, materials: m.Materials})
	}
	group("materials", "Materials", matPosts)

	var workPosts []post
	for _, w := range cws {
		workPosts = append(workPosts, post{id: w.Id, title: w.Title, topicID: w.TopicId, desc: w.Description, materials: w.Materials})
	}
	group("classwork", "Classwork", workPosts)

	return roots, children
}

// materialLeaves maps Classroom material attachments to leaf references.
// Drive files and YouTube videos carry their alternate link as the locator;
// links and forms go through too so the classifier can record them.
func materialLeaves(mats []*classroomapi.Material) []domain.Child {
	out := make([]domain.Child, 0, len(mats))
	for _, m := range mats {
		var ref domain.MaterialRef
		switch {
		case m.DriveFile != nil && m.DriveFile.DriveFile != nil:
			df := m.DriveFile.DriveFile
			ref = domain.MaterialRef{ID: df.Id, Title: df.Title, Locator: df.AlternateLink, Kind: domain.KindDriveFile}
		case m.YoutubeVideo != nil:
			ref = domain.MaterialRef{ID: m.YoutubeVideo.Id, Title: m.YoutubeVideo.Title, Locator: m.YoutubeVideo.AlternateLink, Kind: domain.KindVideo}
		case m.Link != nil:
			ref = domain.MaterialRef{Title: m.Link.Title, Locator: m.Link.Url, Kind: domain.KindUnsupported}
		case m.Form != nil:
			ref = domain.MaterialRef{Title: m.Form.Title, Locator: m.Form.FormUrl, Kind: domain.KindUnsupported}
		default:
			continue
		}
		if ref.Title == "" {
			ref.Title = "untitled"
		}
		leaf := ref
		out = append(out, domain.Child{Material: &leaf})
	}
	return out
}
