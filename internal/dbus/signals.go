package dbus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/binjuice/internal/event"
	"github.com/jmylchreest/binjuice/internal/registry"
)

// errNotConnected is returned when emitting before Start.
var errNotConnected = errors.New("not connected to D-Bus")

func (b *Bridge) connection() *dbus.Conn {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.conn
}

// EmitSubscribed emits the Subscribed signal so the shim starts forwarding
// the kinds in mask for doc.
func (b *Bridge) EmitSubscribed(doc registry.DocumentID, mask event.Mask) error {
	conn := b.connection()
	if conn == nil {
		return errNotConnected
	}

	err := conn.Emit(DBusPath, DBusInterface+".Subscribed", uint64(doc), mask.WireNames())
	if err != nil {
		return fmt.Errorf("failed to emit Subscribed signal: %w", err)
	}

	b.logger.Debug("emitted Subscribed signal", "document", doc, "events", mask.Len())
	return nil
}

// EmitUnsubscribed emits the Unsubscribed signal so the shim stops forwarding
// for doc.
func (b *Bridge) EmitUnsubscribed(doc registry.DocumentID) error {
	conn := b.connection()
	if conn == nil {
		return errNotConnected
	}

	err := conn.Emit(DBusPath, DBusInterface+".Unsubscribed", uint64(doc))
	if err != nil {
		return fmt.Errorf("failed to emit Unsubscribed signal: %w", err)
	}

	b.logger.Debug("emitted Unsubscribed signal", "document", doc)
	return nil
}

// Connection returns the underlying D-Bus connection, or nil before Start.
func (b *Bridge) Connection() *dbus.Conn {
	return b.connection()
}
