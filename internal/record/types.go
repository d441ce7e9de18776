package record

import "fmt"

// Status is the lifecycle position of a record.
type Status int

const (
	// StatusPending is the initial status of every created record.
	StatusPending Status = iota
	// StatusAnalyzed marks a record whose annotation has been computed.
	StatusAnalyzed
	// StatusArchived is terminal.
	StatusArchived
)

var statusNames = [...]string{
	StatusPending:  "pending",
	StatusAnalyzed: "analyzed",
	StatusArchived: "archived",
}

// String returns the wire name of the status.
func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusArchived
}

// ParseStatus converts a wire name to a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return StatusPending, fmt.Errorf("unknown status %q", name)
}

// Record is one stored session note with its metadata and lifecycle status.
// Content is opaque ciphertext produced by a Transformer.
type Record struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	CreatedAt  int64  `json:"created_at"`
	Owner      string `json:"owner"`
	Subject    string `json:"subject"`
	Status     Status `json:"status"`
	Annotation string `json:"annotation,omitempty"`
}

// Draft is the caller-supplied input for a new record, before sealing.
type Draft struct {
	Content string `json:"content" yaml:"content"`
	Emotion string `json:"emotion,omitempty" yaml:"emotion,omitempty"`
}

// Patch is a field-level mutation applied by an update.
// Nil fields are left untouched.
type Patch struct {
	Status     *Status
	Annotation *string
}

// StatusPatch returns a patch that only moves the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

// AnalyzePatch returns the patch for the Pending → Analyzed transition.
func AnalyzePatch(annotation string) Patch {
	s := StatusAnalyzed
	return Patch{Status: &s, Annotation: &annotation}
}
