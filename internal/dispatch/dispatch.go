// Package dispatch routes host event occurrences to sound playback.
//
// A Dispatcher owns a table with one slot per event kind, built once from the
// loaded sounds. Host callbacks look their kind up in that table and, if a
// sound is present, hand it to the player. Callbacks never wait on playback
// and never alter what the host does.
package dispatch

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/binjuice/internal/audio"
	"github.com/jmylchreest/binjuice/internal/event"
	"github.com/jmylchreest/binjuice/internal/metrics"
	"github.com/jmylchreest/binjuice/internal/registry"
)

// Notifier receives event occurrences for subscribed documents. The host may
// call Notify from any goroutine, concurrently.
type Notifier interface {
	Notify(doc registry.DocumentID, args event.Args) uint64
}

// Host is the analysis application raising events.
type Host interface {
	// Subscribe asks the host to deliver the kinds in mask for doc to n.
	Subscribe(doc registry.DocumentID, mask event.Mask, n Notifier) (registry.Subscription, error)
}

// Player submits a sound for playback without waiting for it.
type Player interface {
	Play(res *audio.Resource)
}

// Options configures a Dispatcher.
type Options struct {
	// MinInterval drops a repeat of the same kind arriving sooner than this.
	// Zero lets sounds overlap freely.
	MinInterval time.Duration
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

type handler func()

// Dispatcher is the callback surface the host invokes.
type Dispatcher struct {
	mask     event.Mask
	handlers [event.NumKinds]handler
	registry *registry.Registry
	host     Host
	throttle *throttle
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New builds the dispatch table from table. Kinds without a sound get no
// handler and cost a single lookup.
func New(table *audio.Table, player Player, reg *registry.Registry, host Host, opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		mask:     table.Mask(),
		registry: reg,
		host:     host,
		throttle: newThrottle(opts.MinInterval, time.Now),
		metrics:  opts.Metrics,
		logger:   logger,
	}

	for _, res := range table.Resources() {
		kind := res.Kind
		d.handlers[kind] = func() {
			if !d.throttle.allow(kind) {
				d.metrics.IncThrottled(kind.String())
				d.logger.Debug("sound throttled", "event", kind)
				return
			}
			player.Play(res)
		}
	}

	return d
}

// Mask returns the kinds this dispatcher subscribes to.
func (d *Dispatcher) Mask() event.Mask {
	return d.mask
}

// Notify handles one host event occurrence. The payload is only logged; the
// kind alone selects the sound. The return value is the kind's default
// callback result.
func (d *Dispatcher) Notify(doc registry.DocumentID, args event.Args) uint64 {
	kind := args.Kind
	result, _ := kind.DefaultResult()

	if !kind.Subscribable() {
		d.logger.Debug("ignoring non-host event", "event", kind, "document", doc)
		return result
	}

	d.metrics.IncEvent(kind.String())
	d.logger.Debug("event", "event", kind, "document", doc, "args", args.Values)

	if h := d.handlers[kind]; h != nil {
		h()
	}
	return result
}

// Play plays the sound for kind, if one is loaded. Used for the lifecycle
// kinds binjuice raises itself.
func (d *Dispatcher) Play(kind event.Kind) {
	if !kind.Valid() {
		return
	}
	if h := d.handlers[kind]; h != nil {
		h()
	}
}

// Attach handles the host's "initial analysis complete" signal for doc. The
// first call per document subscribes it; every later call is a logged no-op.
func (d *Dispatcher) Attach(doc registry.DocumentID) registry.Result {
	if d.registry.TryAttach(doc) == registry.AlreadyAttached {
		d.metrics.IncDuplicateRegistration()
		return registry.AlreadyAttached
	}
	d.metrics.IncDocumentAttached()

	d.Play(event.StartBinaryView)

	if d.mask.Empty() {
		d.logger.Info("no host event has a sound, not subscribing", "document", doc)
		return registry.Attached
	}

	sub, err := d.host.Subscribe(doc, d.mask, d)
	if err != nil {
		// Not retried: the document stays registered without a subscription.
		d.logger.Error("failed to subscribe document", "document", doc, "error", err)
		return registry.Attached
	}
	if err := d.registry.Bind(doc, sub); err != nil {
		d.logger.Error("failed to bind subscription", "document", doc, "error", err)
		return registry.Attached
	}

	d.logger.Info("document attached", "document", doc, "events", d.mask.Len())
	return registry.Attached
}

// Detach handles the host closing doc. The end sound plays once per
// document. The document stays registered so a reannouncement of the same
// handle is still ignored.
func (d *Dispatcher) Detach(doc registry.DocumentID) {
	if !d.registry.MarkClosed(doc) {
		d.logger.Debug("detach for unknown or already closed document", "document", doc)
		return
	}
	d.logger.Debug("document closed", "document", doc)
	d.Play(event.EndBinaryView)
}
