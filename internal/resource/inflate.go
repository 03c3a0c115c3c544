package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"univsrg/internal/errs"
	"univsrg/internal/fileutil"
	"univsrg/internal/textutil"
)

const (
	collisionSuffix = "c"
	maxNameBytes    = 255
	fallbackStem    = "resource"
)

// Out maps each pooled entry to the output-relative path it was written to.
type Out struct {
	dir   string
	paths map[*Entry]string
	taken map[string]struct{}
}

// Inflate writes every distinct entry of pool into dir, which must exist and
// be empty. Names derive from each entry's original base name; a taken name
// gets collisionSuffix appended to its stem until it is free.
func Inflate(dir string, pool *Pool) (*Out, error) {
	empty, err := fileutil.IsEmptyDir(dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrIO, "resource", "inflate", "inspect output directory", err)
	}
	if !empty {
		return nil, errs.AlreadyExists("resource", "inflate", fmt.Sprintf("%s should be an empty directory", dir))
	}

	out := &Out{
		dir:   dir,
		paths: make(map[*Entry]string, pool.Len()),
		taken: make(map[string]struct{}, pool.Len()),
	}
	for _, entry := range pool.Entries() {
		name, err := out.claim(candidateName(entry))
		if err != nil {
			return nil, err
		}
		target := filepath.Join(dir, name)
		if err := fileutil.WriteExclusive(target, entry.Bytes(), 0o644); err != nil {
			return nil, errs.Wrap(errs.ErrIO, "resource", "inflate", "write "+name, err)
		}
		out.paths[entry] = name
	}
	return out, nil
}

func candidateName(entry *Entry) string {
	base := textutil.SanitizeFileName(path.Base(entry.OriginalPath()))
	if base == "" || base == "." || base == "/" {
		base = fallbackStem + entry.Ext()
	}
	return base
}

func (o *Out) claim(name string) (string, error) {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem = fallbackStem
	}
	candidate := stem + ext
	for {
		if len(candidate) > maxNameBytes {
			return "", errs.Wrap(errs.ErrNameCollisionExhausted, "resource", "inflate", name, nil)
		}
		if !o.Taken(candidate) {
			o.taken[textutil.CollisionKey(candidate)] = struct{}{}
			return candidate, nil
		}
		stem += collisionSuffix
		candidate = stem + ext
	}
}

// Taken reports whether name is already used in the output directory, either
// by an inflated resource or by a file written there since.
func (o *Out) Taken(name string) bool {
	if _, ok := o.taken[textutil.CollisionKey(name)]; ok {
		return true
	}
	_, err := os.Lstat(filepath.Join(o.dir, name))
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

// Reserve marks name as used so later lookups treat it as taken.
func (o *Out) Reserve(name string) {
	o.taken[textutil.CollisionKey(name)] = struct{}{}
}

// PathOf returns the output-relative path assigned to entry.
func (o *Out) PathOf(entry *Entry) (string, bool) {
	if entry == nil {
		return "", false
	}
	p, ok := o.paths[entry]
	return p, ok
}

// Len returns the number of inflated entries.
func (o *Out) Len() int { return len(o.paths) }

// Dir returns the directory the pool was inflated into.
func (o *Out) Dir() string { return o.dir }
