package git

// patch_utils.go - shared helpers for turning content pairs into patch text.
//
// Tree-to-tree diffs come with go-git file patches already built. Index and
// worktree diffs do not, so contentPatch builds an fdiff.FilePatch from two
// byte slices the same way go-git does for blobs, and both kinds are rendered
// through the unified encoder.

import (
	"bytes"
	"io"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	fdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/go-git/go-git/v5/utils/diff"
	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// side is one end of a content diff; nil content means the path is absent.
type side struct {
	path    string
	mode    filemode.FileMode
	content []byte
	present bool
}

type patchFile struct {
	hash plumbing.Hash
	mode filemode.FileMode
	path string
}

func (f *patchFile) Hash() plumbing.Hash     { return f.hash }
func (f *patchFile) Mode() filemode.FileMode { return f.mode }
func (f *patchFile) Path() string            { return f.path }

type textChunk struct {
	content string
	op      fdiff.Operation
}

func (c *textChunk) Content() string       { return c.content }
func (c *textChunk) Type() fdiff.Operation { return c.op }

type contentPatch struct {
	from, to *patchFile
	binary   bool
	chunks   []fdiff.Chunk
}

func (p *contentPatch) IsBinary() bool { return p.binary }

func (p *contentPatch) Files() (fdiff.File, fdiff.File) {
	var from, to fdiff.File
	if p.from != nil {
		from = p.from
	}
	if p.to != nil {
		to = p.to
	}
	return from, to
}

func (p *contentPatch) Chunks() []fdiff.Chunk { return p.chunks }

// newContentPatch diffs two sides. Either side may be absent, not both.
func newContentPatch(from, to side) *contentPatch {
	p := &contentPatch{}
	if from.present {
		p.from = &patchFile{
			hash: plumbing.ComputeHash(plumbing.BlobObject, from.content),
			mode: modeOrRegular(from.mode),
			path: from.path,
		}
	}
	if to.present {
		p.to = &patchFile{
			hash: plumbing.ComputeHash(plumbing.BlobObject, to.content),
			mode: modeOrRegular(to.mode),
			path: to.path,
		}
	}

	if isBinary(from.content) || isBinary(to.content) {
		p.binary = true
		return p
	}

	for _, d := range diff.Do(string(from.content), string(to.content)) {
		var op fdiff.Operation
		switch d.Type {
		case dmp.DiffEqual:
			op = fdiff.Equal
		case dmp.DiffDelete:
			op = fdiff.Delete
		case dmp.DiffInsert:
			op = fdiff.Add
		}
		p.chunks = append(p.chunks, &textChunk{content: d.Text, op: op})
	}
	return p
}

func modeOrRegular(m filemode.FileMode) filemode.FileMode {
	if m == filemode.Empty {
		return filemode.Regular
	}
	return m
}

func isBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	ok, err := binary.IsBinary(bytes.NewReader(content))
	return err == nil && ok
}

// singlePatch adapts one file patch to the fdiff.Patch the encoder wants.
type singlePatch struct {
	fp fdiff.FilePatch
}

func (s singlePatch) FilePatches() []fdiff.FilePatch { return []fdiff.FilePatch{s.fp} }
func (s singlePatch) Message() string                { return "" }

// renderFilePatch encodes fp as unified diff text and drops the header lines,
// keeping everything from the first hunk marker. Binary patches render as
// BinaryText.
func renderFilePatch(fp fdiff.FilePatch, contextLines int) (string, bool, error) {
	if fp.IsBinary() {
		return BinaryText, true, nil
	}

	var buf bytes.Buffer
	if err := fdiff.NewUnifiedEncoder(&buf, contextLines).Encode(singlePatch{fp: fp}); err != nil {
		return "", false, err
	}

	text := buf.String()
	if start := strings.Index(text, "@@"); start >= 0 {
		return text[start:], false, nil
	}
	return "", false, nil
}

func blobContent(repo *gogit.Repository, h plumbing.Hash) ([]byte, error) {
	blob, err := repo.BlobObject(h)
	if err != nil {
		return nil, err
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
