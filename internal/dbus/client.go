package dbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/binjuice/internal/registry"
)

// Client talks to a running binjuice service the way the host shim does. It
// is used to drive the service by hand and to observe subscription changes.
type Client struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger
}

// Dial opens a private session bus connection to the service.
func Dial(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	return &Client{
		conn:   conn,
		obj:    conn.Object(DBusBusName, DBusPath),
		logger: logger,
	}, nil
}

// AnalysisComplete announces that doc finished its first analysis pass.
func (c *Client) AnalysisComplete(ctx context.Context, doc registry.DocumentID) error {
	return c.call(ctx, "AnalysisComplete", uint64(doc)).Err
}

// Subscription returns the callback names the service wants for doc.
func (c *Client) Subscription(ctx context.Context, doc registry.DocumentID) ([]string, error) {
	var names []string
	if err := c.call(ctx, "Subscription", uint64(doc)).Store(&names); err != nil {
		return nil, err
	}
	return names, nil
}

// Notify relays one callback with its arguments and returns the service's
// result.
func (c *Client) Notify(ctx context.Context, doc registry.DocumentID, name string, args ...any) (uint64, error) {
	variants := make([]dbus.Variant, len(args))
	for i, a := range args {
		variants[i] = dbus.MakeVariant(a)
	}

	var result uint64
	if err := c.call(ctx, "Notify", uint64(doc), name, variants).Store(&result); err != nil {
		return 0, err
	}
	return result, nil
}

// DocumentClosed announces that doc was closed.
func (c *Client) DocumentClosed(ctx context.Context, doc registry.DocumentID) error {
	return c.call(ctx, "DocumentClosed", uint64(doc)).Err
}

func (c *Client) call(ctx context.Context, method string, args ...interface{}) *dbus.Call {
	c.logger.Debug("calling service", "method", method)
	call := c.obj.CallWithContext(ctx, DBusInterface+"."+method, 0, args...)
	if call.Err != nil {
		call.Err = fmt.Errorf("%s: %w", method, call.Err)
	}
	return call
}

// SubscriptionChange is one Subscribed or Unsubscribed signal. Events is nil
// for Unsubscribed.
type SubscriptionChange struct {
	Doc        registry.DocumentID
	Subscribed bool
	Events     []string
}

// Watch reports subscription changes until ctx is done.
func (c *Client) Watch(ctx context.Context, fn func(SubscriptionChange)) error {
	if err := c.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
	); err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}

	ch := make(chan *dbus.Signal, 100)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	c.logger.Info("watching subscriptions", "interface", DBusInterface)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			change, ok := parseSignal(sig)
			if !ok {
				c.logger.Debug("ignoring signal", "name", sig.Name)
				continue
			}
			fn(change)
		}
	}
}

// parseSignal decodes a Subscribed or Unsubscribed signal.
func parseSignal(sig *dbus.Signal) (SubscriptionChange, bool) {
	if sig == nil || sig.Path != DBusPath || len(sig.Body) == 0 {
		return SubscriptionChange{}, false
	}

	handle, ok := sig.Body[0].(uint64)
	if !ok {
		return SubscriptionChange{}, false
	}
	change := SubscriptionChange{Doc: registry.DocumentID(handle)}

	switch sig.Name {
	case DBusInterface + ".Subscribed":
		if len(sig.Body) < 2 {
			return SubscriptionChange{}, false
		}
		events, ok := sig.Body[1].([]string)
		if !ok {
			return SubscriptionChange{}, false
		}
		change.Subscribed = true
		change.Events = events
	case DBusInterface + ".Unsubscribed":
	default:
		return SubscriptionChange{}, false
	}
	return change, true
}

// Close closes the client's connection.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
