package mirror

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"singularity/internal/config"
	"singularity/internal/domain"
	"singularity/internal/providers"
)

// nodeIndexFile holds the container's title and description inside its
// directory.
const nodeIndexFile = "index.html"

// Walker mirrors one remote course into a local directory tree. Containers
// become directories, materials become files, and every per-item failure is
// logged and recorded without stopping the walk.
type Walker struct {
	Provider providers.TreeProvider
	Exec     *Executor
	Cfg      config.Config

	classifier Classifier
	sidecar    *Sidecar
	report     *Report
}

func NewWalker(p providers.TreeProvider, exec *Executor, cfg config.Config) *Walker {
	return &Walker{Provider: p, Exec: exec, Cfg: cfg}
}

// Sync mirrors the course into <MirrorRoot>/<CourseID>. It returns an error
// only for structural failures: an unreachable root listing, or a directory
// that cannot be created. Per-item download failures end up in the sidecar
// logs and the report.
func (w *Walker) Sync(ctx context.Context, src domain.CourseSource) (*Report, error) {
	if src.Title != "" {
		log.Printf("syncing %s (%s)", src.CourseID, src.Title)
	}

	courseDir := filepath.Join(w.Cfg.MirrorRoot, src.CourseID)
	if err := os.MkdirAll(courseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create course dir: %w", err)
	}
	marker := w.Provider.Platform().Marker()
	if err := os.WriteFile(filepath.Join(courseDir, marker), nil, 0o644); err != nil {
		return nil, fmt.Errorf("write platform marker: %w", err)
	}

	w.sidecar = NewSidecar(courseDir)
	if err := w.sidecar.Reset(); err != nil {
		return nil, err
	}
	w.report = NewReport(src.CourseID, string(w.Provider.Platform()))

	root, err := w.Provider.ListRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("course %s: %w", src.CourseID, err)
	}

	if err := w.Provider.SaveCourseFiles(ctx, courseDir); err != nil {
		log.Printf("warn: course snapshots for %s: %v", src.CourseID, err)
	}

	if err := w.walkChildren(ctx, courseDir, root); err != nil {
		return nil, err
	}

	w.report.Finish()
	if err := w.report.WriteFile(courseDir); err != nil {
		log.Printf("warn: write %s: %v", ReportFile, err)
	}
	return w.report, nil
}

// matJob pairs a material with its claimed on-disk base name.
type matJob struct {
	base string
	m    domain.MaterialRef
}

// walkChildren visits the children in listing order. Runs of consecutive
// materials download as one batch with bounded parallelism; a container
// flushes the pending batch before recursing, so fetches keep the order the
// listing gave them.
func (w *Walker) walkChildren(ctx context.Context, dir string, children []domain.Child) error {
	names := newNameRegistry()

	var batch []matJob
	flush := func() error {
		err := w.downloadBatch(ctx, dir, batch)
		batch = batch[:0]
		return err
	}

	for _, ch := range children {
		if ch.IsContainer() {
			name := names.Claim("d/"+ch.Node.ID, ch.Node.Title)
			if err := flush(); err != nil {
				return err
			}
			if err := w.walkNode(ctx, dir, name, *ch.Node); err != nil {
				return err
			}
			continue
		}
		if ch.Material == nil {
			continue
		}
		batch = append(batch, matJob{
			base: names.Claim("f/"+ch.Material.ID, ch.Material.Title),
			m:    *ch.Material,
		})
	}
	return flush()
}

// downloadBatch fans the jobs out over the configured limit. handleMaterial
// isolates per-item failures, so the only errors the group can surface are
// context ones.
func (w *Walker) downloadBatch(ctx context.Context, dir string, jobs []matJob) error {
	if len(jobs) == 0 {
		return nil
	}
	limit := w.Cfg.MaxParallel
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			w.handleMaterial(gctx, dir, job.base, job.m)
			return nil
		})
	}
	return g.Wait()
}

func (w *Walker) walkNode(ctx context.Context, parentDir, name string, node domain.ContentNode) error {
	dir := filepath.Join(parentDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", name, err)
	}
	if node.Title != "" || node.Description != "" {
		index := fmt.Sprintf("<h1>%s</h1><br><hr><br>%s", node.Title, node.Description)
		if err := os.WriteFile(filepath.Join(dir, nodeIndexFile), []byte(index), 0o644); err != nil {
			log.Printf("warn: write %s in %s: %v", nodeIndexFile, name, err)
		}
	}

	children, err := w.Provider.ListChildren(ctx, node)
	if err != nil {
		return fmt.Errorf("list %q: %w", node.Title, err)
	}
	return w.walkChildren(ctx, dir, children)
}

// handleMaterial is the per-item isolation boundary: nothing in here aborts
// the walk, every failure is logged and counted instead.
func (w *Walker) handleMaterial(ctx context.Context, dir, base string, m domain.MaterialRef) {
	locator, err := w.Provider.ResolveLocator(ctx, m)
	if err != nil {
		log.Printf("warn: resolve %q: %v", m.Title, err)
		w.recordFailure(m.Title, err)
		return
	}
	m.Locator = locator

	strat, err := w.classifier.Classify(m)
	if err != nil {
		if errors.Is(err, ErrUnclassified) {
			log.Printf("warn: not handled: %s", locator)
			if serr := w.sidecar.Unhandled(locator); serr != nil {
				log.Printf("warn: record unhandled: %v", serr)
			}
			w.report.AddUnhandled()
			return
		}
		log.Printf("warn: classify %q: %v", m.Title, err)
		w.recordFailure(m.Title, err)
		return
	}
	strat.BaseName = base

	if w.Cfg.NoVideo && skippedVideo(strat) {
		w.report.AddSkipped()
		return
	}
	if ShouldSkip(dir, strat, w.Cfg.Force) {
		w.report.AddSkipped()
		return
	}

	name, err := w.Exec.Fetch(ctx, dir, strat)
	if err != nil {
		log.Printf("warn: download %q: %v", m.Title, err)
		w.recordFailure(filepath.Join(dir, strat.FileName()), err)
		return
	}
	log.Printf("downloaded %s", filepath.Join(dir, name))
	w.report.AddDownloaded()
}

// skippedVideo reports whether the no-video flag suppresses this strategy:
// hosted videos, and platform-native files whose extension is a video
// container.
func skippedVideo(s Strategy) bool {
	if s.Kind == FetchVideo {
		return true
	}
	return s.Kind == FetchDirect && isVideoExt(s.Ext)
}

func (w *Walker) recordFailure(target string, err error) {
	if serr := w.sidecar.Failure(target, err); serr != nil {
		log.Printf("warn: record failure: %v", serr)
	}
	w.report.AddFailed()
}
