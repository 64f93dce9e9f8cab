// Package registry tracks which host documents the dispatcher is attached to.
//
// Document identities are the host's numeric handles. The registry assumes a
// handle is never reused for a different document during one process
// lifetime; it has no way to check that.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DocumentID is the opaque, process-stable handle the host uses for a document.
type DocumentID uint64

func (d DocumentID) String() string {
	return fmt.Sprintf("%#x", uint64(d))
}

// Result is the outcome of TryAttach.
type Result int

const (
	Attached Result = iota
	AlreadyAttached
)

func (r Result) String() string {
	switch r {
	case Attached:
		return "attached"
	case AlreadyAttached:
		return "already_attached"
	default:
		return "unknown"
	}
}

// Subscription is the host-side binding created for an attached document.
type Subscription interface {
	Close() error
}

type entry struct {
	attachedAt time.Time
	closedAt   time.Time
	sub        Subscription
}

// Registry is the set of attached documents. It only grows: the host never
// reports a document as gone for good, so entries and their subscriptions
// live until Close at process shutdown.
type Registry struct {
	mu      sync.Mutex
	logger  *slog.Logger
	entries map[DocumentID]*entry
	closed  bool
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:  logger,
		entries: make(map[DocumentID]*entry),
	}
}

// TryAttach records doc if it has not been seen. Exactly one caller per
// document gets Attached; every other caller, concurrent or later, gets
// AlreadyAttached and must not bind the document again.
func (r *Registry) TryAttach(doc DocumentID) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.logger.Debug("registry closed, ignoring document", "document", doc)
		return AlreadyAttached
	}
	if _, ok := r.entries[doc]; ok {
		r.logger.Warn("document already attached", "document", doc)
		return AlreadyAttached
	}
	r.entries[doc] = &entry{attachedAt: time.Now()}
	return Attached
}

// Bind hands ownership of sub to the registry for an attached document.
// Binding an unknown document, or binding twice, closes sub and errors.
func (r *Registry) Bind(doc DocumentID, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[doc]
	switch {
	case r.closed:
		_ = sub.Close()
		return fmt.Errorf("registry closed")
	case !ok:
		_ = sub.Close()
		return fmt.Errorf("document %s is not attached", doc)
	case e.sub != nil:
		_ = sub.Close()
		return fmt.Errorf("document %s already has a subscription", doc)
	}
	e.sub = sub
	return nil
}

// Contains reports whether doc has been attached.
func (r *Registry) Contains(doc DocumentID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[doc]
	return ok
}

// MarkClosed records that the host closed doc. It reports true only for
// the first close of an attached document.
func (r *Registry) MarkClosed(doc DocumentID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[doc]
	if !ok || !e.closedAt.IsZero() {
		return false
	}
	e.closedAt = time.Now()
	return true
}

// Len returns the number of attached documents.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// AttachedAt returns when doc was first attached.
func (r *Registry) AttachedAt(doc DocumentID) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[doc]
	if !ok {
		return time.Time{}, false
	}
	return e.attachedAt, true
}

// Close releases every subscription and empties the registry. Later
// TryAttach calls report AlreadyAttached so nothing new gets bound.
func (r *Registry) Close() error {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[DocumentID]*entry)
	r.closed = true
	r.mu.Unlock()

	var errs []error
	for doc, e := range entries {
		if e.sub == nil {
			continue
		}
		if err := e.sub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("document %s: %w", doc, err))
		}
	}
	r.logger.Debug("registry closed", "documents", len(entries))
	return errors.Join(errs...)
}
