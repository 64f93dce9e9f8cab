package audio

import (
	"fmt"
	"os"

	"github.com/jmylchreest/binjuice/internal/event"
)

// ResourceLoadError reports a configured sound that could not be read.
type ResourceLoadError struct {
	Kind event.Kind
	Path string
	Err  error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("failed to load sound for %s from %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}

// Resource is the raw content of one sound file. It is never modified after
// loading and is shared by every playback of its event.
type Resource struct {
	Kind event.Kind
	Path string
	data []byte
}

// NewResource wraps data already in memory. The caller must not modify data
// afterwards.
func NewResource(kind event.Kind, path string, data []byte) *Resource {
	return &Resource{Kind: kind, Path: path, data: data}
}

// Bytes returns the shared buffer. Callers must treat it as read-only.
func (r *Resource) Bytes() []byte {
	return r.data
}

// Size returns the buffer length in bytes.
func (r *Resource) Size() int {
	return len(r.data)
}

// Table maps every event kind to its loaded sound, if any. It is built once
// and only read afterwards, so lookups take no lock.
type Table struct {
	resources [event.NumKinds]*Resource
}

// Load reads every configured sound into memory. Loading is all or nothing:
// the first unreadable path aborts with a *ResourceLoadError.
func Load(paths map[event.Kind]string) (*Table, error) {
	t := &Table{}
	for _, kind := range event.All() {
		path, ok := paths[kind]
		if !ok || path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ResourceLoadError{Kind: kind, Path: path, Err: err}
		}
		t.resources[kind] = NewResource(kind, path, data)
	}
	return t, nil
}

// NewTable builds a table from resources already in memory. Later entries
// for the same kind replace earlier ones.
func NewTable(resources ...*Resource) *Table {
	t := &Table{}
	for _, r := range resources {
		if r != nil && r.Kind.Valid() {
			t.resources[r.Kind] = r
		}
	}
	return t
}

// Get returns the sound for kind.
func (t *Table) Get(kind event.Kind) (*Resource, bool) {
	if t == nil || !kind.Valid() {
		return nil, false
	}
	r := t.resources[kind]
	return r, r != nil
}

// Resources returns every loaded sound in catalog order.
func (t *Table) Resources() []*Resource {
	var out []*Resource
	if t == nil {
		return out
	}
	for _, r := range t.resources {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of loaded sounds.
func (t *Table) Len() int {
	return len(t.Resources())
}

// Mask returns exactly the host event kinds that have a sound. Lifecycle
// kinds are played by binjuice itself and are never subscribed to.
func (t *Table) Mask() event.Mask {
	var m event.Mask
	for _, r := range t.Resources() {
		if r.Kind.Subscribable() {
			m = m.With(r.Kind)
		}
	}
	return m
}
