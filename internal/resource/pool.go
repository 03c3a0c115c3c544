package resource

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"path"

	"univsrg/internal/fileutil"
)

// Entry is an immutable media buffer. Identity is the content: the pool never
// holds two entries with equal bytes. Callers must not modify Bytes().
type Entry struct {
	originalPath string
	data         []byte
	digest       [sha256.Size]byte
}

// OriginalPath is the bundle-relative path the content was first inserted under.
func (e *Entry) OriginalPath() string { return e.originalPath }

// Bytes returns the shared content buffer.
func (e *Entry) Bytes() []byte { return e.data }

// Size returns the content length in bytes.
func (e *Entry) Size() int64 { return int64(len(e.data)) }

// Digest returns the hex SHA-256 of the content.
func (e *Entry) Digest() string { return hex.EncodeToString(e.digest[:]) }

// Ext returns the extension of the original path, including the dot.
func (e *Entry) Ext() string { return path.Ext(e.originalPath) }

// Pool is a content-addressed store of media shared by every beatmap of one
// package. The path index is an import-time lookup and never decides identity.
type Pool struct {
	entries  []*Entry
	byDigest map[[sha256.Size]byte][]*Entry
	byPath   map[string]*Entry
	total    int64
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		byDigest: make(map[[sha256.Size]byte][]*Entry),
		byPath:   make(map[string]*Entry),
	}
}

// Insert stores data under originalPath. When identical content is already
// pooled the existing entry is returned, the path index is pointed at it, and
// the second result is false. The pool takes ownership of data.
func (p *Pool) Insert(originalPath string, data []byte) (*Entry, bool) {
	key := fileutil.NormalizeRel(originalPath)
	digest := sha256.Sum256(data)
	for _, candidate := range p.byDigest[digest] {
		if bytes.Equal(candidate.data, data) {
			if key != "" {
				p.byPath[key] = candidate
			}
			return candidate, false
		}
	}

	entry := &Entry{originalPath: key, data: data, digest: digest}
	p.entries = append(p.entries, entry)
	p.byDigest[digest] = append(p.byDigest[digest], entry)
	p.total += entry.Size()
	if key != "" {
		p.byPath[key] = entry
	}
	return entry, true
}

// LookupByPath resolves a bundle-relative path through the path index.
func (p *Pool) LookupByPath(originalPath string) (*Entry, bool) {
	key := fileutil.NormalizeRel(originalPath)
	if key == "" {
		return nil, false
	}
	entry, ok := p.byPath[key]
	return entry, ok
}

// ClearPathIndex forgets every path mapping while keeping all content.
// Call it between independent extraction trees: two bundles may reuse the
// same relative name for unrelated files.
func (p *Pool) ClearPathIndex() {
	clear(p.byPath)
}

// Entries returns the distinct entries in insertion order.
func (p *Pool) Entries() []*Entry {
	out := make([]*Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of distinct entries.
func (p *Pool) Len() int { return len(p.entries) }

// TotalBytes returns the summed size of every distinct entry.
func (p *Pool) TotalBytes() int64 { return p.total }
