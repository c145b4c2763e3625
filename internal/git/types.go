package git

import "fmt"

// DeltaStatus classifies how a path changed between two sides of a diff.
type DeltaStatus int

const (
	StatusUnmodified DeltaStatus = iota
	StatusAdded
	StatusDeleted
	StatusModified
	StatusRenamed
	StatusCopied
	StatusTypeChange
	StatusUntracked
)

var statusNames = [...]string{
	StatusUnmodified: "unmodified",
	StatusAdded:      "added",
	StatusDeleted:    "deleted",
	StatusModified:   "modified",
	StatusRenamed:    "renamed",
	StatusCopied:     "copied",
	StatusTypeChange: "typechange",
	StatusUntracked:  "untracked",
}

func (s DeltaStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Char is the one-letter code git prints in --name-status output.
func (s DeltaStatus) Char() byte {
	switch s {
	case StatusAdded:
		return 'A'
	case StatusDeleted:
		return 'D'
	case StatusModified:
		return 'M'
	case StatusRenamed:
		return 'R'
	case StatusCopied:
		return 'C'
	case StatusTypeChange:
		return 'T'
	case StatusUntracked:
		return '?'
	default:
		return ' '
	}
}

func (s DeltaStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DeltaStatus) UnmarshalText(text []byte) error {
	for i, name := range statusNames {
		if name == string(text) {
			*s = DeltaStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown delta status %q", text)
}

// BinaryText replaces the patch body of content the engine cannot diff.
const BinaryText = "@@BinaryData"

// DefaultContextLines matches git's default unified context.
const DefaultContextLines = 3

// FullContext asks for the whole file as context.
const FullContext = 1 << 30

// Patch is the change to a single path.
type Patch struct {
	Status  DeltaStatus `json:"status"`
	OldSize int64       `json:"oldSize"`
	NewSize int64       `json:"newSize"`
	OldPath string      `json:"oldPath,omitempty"`
	Path    string      `json:"path"`
	Binary  bool        `json:"binary"`
	// Text is the unified diff body starting at the first hunk header,
	// or BinaryText.
	Text string `json:"text"`
}

// Diff is an ordered list of per-file patches.
type Diff struct {
	Patches []Patch `json:"patches"`
}

// Paths lists the changed paths in order.
func (d *Diff) Paths() []string {
	paths := make([]string, 0, len(d.Patches))
	for _, p := range d.Patches {
		paths = append(paths, p.Path)
	}
	return paths
}

// Find returns the patch for path, if any.
func (d *Diff) Find(path string) (Patch, bool) {
	for _, p := range d.Patches {
		if p.Path == path {
			return p, true
		}
	}
	return Patch{}, false
}
