package providers

import (
	"context"
	"errors"

	"singularity/internal/domain"
)

// ErrBadListing marks a course root listing that could not be parsed. It
// usually means expired cookies, a bad token, or a wrong course id, so the
// whole course sync aborts instead of guessing at a partial hierarchy.
var ErrBadListing = errors.New("course listing could not be parsed")

// TreeProvider exposes one platform's content tree to the mirror engine.
// Listings keep the order the remote API returned them in.
type TreeProvider interface {
	Platform() domain.Platform

	// ListRoot returns the course's top-level containers. A malformed or
	// unreadable listing is reported with an error wrapping ErrBadListing.
	ListRoot(ctx context.Context) ([]domain.Child, error)

	// ListChildren returns the ordered children of a container.
	ListChildren(ctx context.Context, node domain.ContentNode) ([]domain.Child, error)

	// ResolveLocator turns a material reference into a fetchable locator.
	// Some platforms need an extra API call per leaf for this; failures are
	// per-item, never fatal.
	ResolveLocator(ctx context.Context, m domain.MaterialRef) (string, error)

	// SaveCourseFiles writes the course-level snapshots (raw listing, class
	// roster, announcements) into dir. Individual snapshot failures are
	// logged and skipped by the implementation.
	SaveCourseFiles(ctx context.Context, dir string) error
}

// CourseLister enumerates the courses the authenticated user can reach on a
// platform. Used by the list and sync-all commands.
type CourseLister interface {
	ListCourses(ctx context.Context) ([]domain.CourseListing, []byte, error)
}
