package domain

// Platform identifies which LMS a course lives on.
type Platform string

const (
	PlatformBrightspace Platform = "brightspace"
	PlatformClassroom   Platform = "classroom"
)

// Marker returns the name of the file written at the course root to record
// which platform the mirror came from.
func (p Platform) Marker() string {
	switch p {
	case PlatformBrightspace:
		return "brightspace.ct"
	case PlatformClassroom:
		return "classroom.ct"
	default:
		return string(p) + ".ct"
	}
}

// CourseSource is the canonical identification of one remote course for a
// single sync run. It is built once per invocation and never mutated.
type CourseSource struct {
	Platform Platform
	CourseID string
	Title    string // optional display name, used for console output only
}

// ContentNode is a container in the remote hierarchy: a Brightspace module or
// a Classroom topic/grouping. Children keep the order the remote API returned.
type ContentNode struct {
	ID          string
	Title       string
	Description string // raw HTML when the platform provides it
}

// MaterialKind tags a leaf reference with the family of content it points at.
// Classification from a locator happens later, in the mirror engine; providers
// only set a kind when the platform payload already distinguishes it (Google
// Classroom materials carry an explicit type).
type MaterialKind string

const (
	KindUnknown     MaterialKind = ""            // locator must be inspected
	KindDriveFile   MaterialKind = "drive-file"  // cloud-drive hosted binary
	KindVideo       MaterialKind = "video"       // hosted video link
	KindUnsupported MaterialKind = "unsupported" // link/form material with no downloadable body
)

// MaterialRef is a leaf content reference produced by a tree provider and
// consumed exactly once by the mirror engine.
type MaterialRef struct {
	ID      string
	Title   string
	Locator string // absolute URL or platform-relative path
	Kind    MaterialKind
}

// Child is one entry of a container listing: either a nested container or a
// leaf material, never both.
type Child struct {
	Node     *ContentNode
	Material *MaterialRef
}

// IsContainer reports whether the child should be recursed into.
func (c Child) IsContainer() bool { return c.Node != nil }

// CourseListing is one row of the platform's enrollment/course list.
type CourseListing struct {
	ID     string
	Name   string
	Status string
}
