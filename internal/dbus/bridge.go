package dbus

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/binjuice/internal/dispatch"
	"github.com/jmylchreest/binjuice/internal/event"
	"github.com/jmylchreest/binjuice/internal/registry"
)

const (
	// DBusInterface is the service interface name.
	DBusInterface = "io.github.jmylchreest.BinJuice"
	// DBusPath is the service object path.
	DBusPath = "/io/github/jmylchreest/BinJuice"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.BinJuice"
)

// D-Bus error names returned to the shim.
const (
	ErrNameUnknownEvent  = DBusInterface + ".Error.UnknownEvent"
	ErrNameNotSubscribed = DBusInterface + ".Error.NotSubscribed"
	ErrNameInvalidArgs   = DBusInterface + ".Error.InvalidArgs"
)

// Lifecycle receives the host's per-document signals.
type Lifecycle interface {
	AnalysisComplete(doc registry.DocumentID)
	DocumentClosed(doc registry.DocumentID)
}

// Bridge is the host as binjuice sees it: it accepts subscriptions from the
// dispatcher and turns the shim's D-Bus calls into dispatcher callbacks.
type Bridge struct {
	conn      *dbus.Conn
	logger    *slog.Logger
	lifecycle Lifecycle

	mu      sync.RWMutex
	subs    map[registry.DocumentID]*Subscription
	running bool
}

var _ dispatch.Host = (*Bridge)(nil)

// NewBridge creates a bridge forwarding document signals to lifecycle.
func NewBridge(lifecycle Lifecycle, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		logger:    logger,
		lifecycle: lifecycle,
		subs:      make(map[registry.DocumentID]*Subscription),
	}
}

// Subscription is one document's forwarding set. Closing it stops delivery.
type Subscription struct {
	ID       ulid.ULID
	Doc      registry.DocumentID
	Mask     event.Mask
	Created  time.Time
	notifier dispatch.Notifier
	bridge   *Bridge
}

// Close removes the subscription from its bridge. Closing twice is a no-op.
func (s *Subscription) Close() error {
	b := s.bridge
	b.mu.Lock()
	cur, ok := b.subs[s.Doc]
	if ok && cur == s {
		delete(b.subs, s.Doc)
	}
	b.mu.Unlock()

	if !ok || cur != s {
		return nil
	}
	if err := b.EmitUnsubscribed(s.Doc); err != nil {
		b.logger.Debug("unsubscribe signal not sent", "document", s.Doc, "error", err)
	}
	return nil
}

// Subscribe implements dispatch.Host. A document holds at most one
// subscription.
func (b *Bridge) Subscribe(doc registry.DocumentID, mask event.Mask, n dispatch.Notifier) (registry.Subscription, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate subscription ID: %w", err)
	}

	sub := &Subscription{
		ID:       id,
		Doc:      doc,
		Mask:     mask,
		Created:  time.Now(),
		notifier: n,
		bridge:   b,
	}

	b.mu.Lock()
	if _, exists := b.subs[doc]; exists {
		b.mu.Unlock()
		return nil, fmt.Errorf("document %s is already subscribed", doc)
	}
	b.subs[doc] = sub
	b.mu.Unlock()

	b.logger.Info("subscribed", "document", doc, "subscription", id.String(), "events", mask)
	if err := b.EmitSubscribed(doc, mask); err != nil {
		b.logger.Debug("subscribe signal not sent", "document", doc, "error", err)
	}
	return sub, nil
}

// Lookup returns the live subscription for doc.
func (b *Bridge) Lookup(doc registry.DocumentID) (*Subscription, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.subs[doc]
	return sub, ok
}

// Start connects to the session bus and exports the service.
func (b *Bridge) Start() error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("bridge already running")
	}
	b.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(b, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: bridgeMethods(),
				Signals: bridgeSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	b.mu.Lock()
	b.conn = conn
	b.running = true
	b.mu.Unlock()

	b.logger.Info("D-Bus bridge started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name. Live subscriptions are left to their owner.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return nil
	}
	b.running = false

	if b.conn != nil {
		if _, err := b.conn.ReleaseName(DBusBusName); err != nil {
			b.logger.Warn("failed to release bus name", "error", err)
		}
		// The session bus connection is shared, leave it open.
	}

	b.logger.Info("D-Bus bridge stopped")
	return nil
}

// AnalysisComplete handles the host finishing a document's first analysis.
// D-Bus method: AnalysisComplete(t)
func (b *Bridge) AnalysisComplete(handle uint64) *dbus.Error {
	doc := registry.DocumentID(handle)
	b.logger.Debug("AnalysisComplete called", "document", doc)
	b.lifecycle.AnalysisComplete(doc)
	return nil
}

// Subscription returns the callback names the shim must forward for a
// document. The list is empty until the document is attached.
// D-Bus method: Subscription(t) -> as
func (b *Bridge) Subscription(handle uint64) ([]string, *dbus.Error) {
	sub, ok := b.Lookup(registry.DocumentID(handle))
	if !ok {
		return []string{}, nil
	}
	return sub.Mask.WireNames(), nil
}

// Notify relays one host callback. Only kinds in the document's subscription
// are accepted.
// D-Bus method: Notify(tsav) -> t
func (b *Bridge) Notify(handle uint64, name string, args []dbus.Variant) (uint64, *dbus.Error) {
	doc := registry.DocumentID(handle)

	kind, err := event.ParseKind(name)
	if err != nil {
		return 0, dbus.NewError(ErrNameUnknownEvent, []interface{}{err.Error()})
	}

	sub, ok := b.Lookup(doc)
	if !ok || !sub.Mask.Has(kind) {
		b.logger.Warn("event for unsubscribed document or kind", "document", doc, "event", kind)
		return 0, dbus.NewError(ErrNameNotSubscribed,
			[]interface{}{fmt.Sprintf("%s is not subscribed for document %s", kind, doc)})
	}

	raw := make([]any, len(args))
	for i, v := range args {
		raw[i] = v.Value()
	}
	decoded, err := event.Decode(kind, raw)
	if err != nil {
		return 0, dbus.NewError(ErrNameInvalidArgs, []interface{}{err.Error()})
	}

	return sub.notifier.Notify(doc, decoded), nil
}

// DocumentClosed handles the host closing a document.
// D-Bus method: DocumentClosed(t)
func (b *Bridge) DocumentClosed(handle uint64) *dbus.Error {
	doc := registry.DocumentID(handle)
	b.logger.Debug("DocumentClosed called", "document", doc)
	b.lifecycle.DocumentClosed(doc)
	return nil
}

// bridgeMethods returns the D-Bus method introspection data.
func bridgeMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "AnalysisComplete",
			Args: []introspect.Arg{
				{Name: "handle", Type: "t", Direction: "in"},
			},
		},
		{
			Name: "Subscription",
			Args: []introspect.Arg{
				{Name: "handle", Type: "t", Direction: "in"},
				{Name: "events", Type: "as", Direction: "out"},
			},
		},
		{
			Name: "Notify",
			Args: []introspect.Arg{
				{Name: "handle", Type: "t", Direction: "in"},
				{Name: "event", Type: "s", Direction: "in"},
				{Name: "args", Type: "av", Direction: "in"},
				{Name: "result", Type: "t", Direction: "out"},
			},
		},
		{
			Name: "DocumentClosed",
			Args: []introspect.Arg{
				{Name: "handle", Type: "t", Direction: "in"},
			},
		},
	}
}

// bridgeSignals returns the D-Bus signal introspection data.
func bridgeSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "Subscribed",
			Args: []introspect.Arg{
				{Name: "handle", Type: "t"},
				{Name: "events", Type: "as"},
			},
		},
		{
			Name: "Unsubscribed",
			Args: []introspect.Arg{
				{Name: "handle", Type: "t"},
			},
		},
	}
}
