package dbus

import (
	"sync"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/binjuice/internal/event"
	"github.com/jmylchreest/binjuice/internal/registry"
)

type recordingNotifier struct {
	mu   sync.Mutex
	got  []event.Args
	docs []registry.DocumentID
}

func (n *recordingNotifier) Notify(doc registry.DocumentID, args event.Args) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, args)
	n.docs = append(n.docs, doc)
	return 0
}

type recordingLifecycle struct {
	attached []registry.DocumentID
	closed   []registry.DocumentID
}

func (l *recordingLifecycle) AnalysisComplete(doc registry.DocumentID) {
	l.attached = append(l.attached, doc)
}

func (l *recordingLifecycle) DocumentClosed(doc registry.DocumentID) {
	l.closed = append(l.closed, doc)
}

func TestBridge_LifecycleCalls(t *testing.T) {
	lc := &recordingLifecycle{}
	b := NewBridge(lc, nil)

	assert.Nil(t, b.AnalysisComplete(0x1000))
	assert.Nil(t, b.DocumentClosed(0x1000))

	assert.Equal(t, []registry.DocumentID{0x1000}, lc.attached)
	assert.Equal(t, []registry.DocumentID{0x1000}, lc.closed)
}

func TestBridge_SubscribeAndSubscription(t *testing.T) {
	b := NewBridge(&recordingLifecycle{}, nil)

	names, dErr := b.Subscription(0x1000)
	assert.Nil(t, dErr)
	assert.Empty(t, names)

	mask := event.MaskOf(event.FunctionAdded, event.DataWritten)
	sub, err := b.Subscribe(0x1000, mask, &recordingNotifier{})
	require.NoError(t, err)

	names, dErr = b.Subscription(0x1000)
	assert.Nil(t, dErr)
	assert.Equal(t, []string{"dataWritten", "functionAdded"}, names)

	s, ok := b.Lookup(0x1000)
	require.True(t, ok)
	assert.Equal(t, mask, s.Mask)
	assert.NotZero(t, s.ID)

	_, err = b.Subscribe(0x1000, mask, &recordingNotifier{})
	assert.Error(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	_, ok = b.Lookup(0x1000)
	assert.False(t, ok)
}

func TestBridge_SubscriptionIDsAreUnique(t *testing.T) {
	b := NewBridge(&recordingLifecycle{}, nil)

	seen := make(map[string]bool)
	for i := range 20 {
		_, err := b.Subscribe(registry.DocumentID(i), event.MaskOf(event.TagAdded), &recordingNotifier{})
		require.NoError(t, err)
		s, _ := b.Lookup(registry.DocumentID(i))
		assert.False(t, seen[s.ID.String()])
		seen[s.ID.String()] = true
	}
}

func TestBridge_Notify(t *testing.T) {
	b := NewBridge(&recordingLifecycle{}, nil)
	n := &recordingNotifier{}
	_, err := b.Subscribe(0x1000, event.MaskOf(event.DataWritten, event.TypeArchiveAttached), n)
	require.NoError(t, err)

	result, dErr := b.Notify(0x1000, "dataWritten",
		[]dbus.Variant{dbus.MakeVariant(uint64(0x400000)), dbus.MakeVariant(uint64(16))})
	require.Nil(t, dErr)
	assert.Equal(t, uint64(0), result)

	_, dErr = b.Notify(0x1000, "type_archive_attached",
		[]dbus.Variant{dbus.MakeVariant("abc"), dbus.MakeVariant([]byte("/tmp/x.bnta"))})
	require.Nil(t, dErr)

	require.Len(t, n.got, 2)
	assert.Equal(t, event.DataWritten, n.got[0].Kind)
	offset, ok := n.got[0].Get("offset")
	require.True(t, ok)
	assert.Equal(t, uint64(0x400000), offset.Num)
	path, ok := n.got[1].Get("path")
	require.True(t, ok)
	assert.Equal(t, []byte("/tmp/x.bnta"), path.Bytes)
	assert.Equal(t, registry.DocumentID(0x1000), n.docs[0])
}

func TestBridge_NotifyRejects(t *testing.T) {
	b := NewBridge(&recordingLifecycle{}, nil)
	n := &recordingNotifier{}
	_, err := b.Subscribe(0x1000, event.MaskOf(event.FunctionAdded), n)
	require.NoError(t, err)

	tests := []struct {
		name   string
		handle uint64
		event  string
		args   []dbus.Variant
		want   string
	}{
		{"unknown event", 0x1000, "nothingHappened", nil, ErrNameUnknownEvent},
		{"unsubscribed document", 0x2000, "functionAdded", []dbus.Variant{dbus.MakeVariant(uint64(1))}, ErrNameNotSubscribed},
		{"kind outside mask", 0x1000, "dataWritten", []dbus.Variant{dbus.MakeVariant(uint64(0)), dbus.MakeVariant(uint64(1))}, ErrNameNotSubscribed},
		{"lifecycle kind", 0x1000, "start_binary_view", nil, ErrNameNotSubscribed},
		{"missing argument", 0x1000, "functionAdded", nil, ErrNameInvalidArgs},
		{"wrong type", 0x1000, "functionAdded", []dbus.Variant{dbus.MakeVariant("f")}, ErrNameInvalidArgs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, dErr := b.Notify(tt.handle, tt.event, tt.args)
			require.NotNil(t, dErr)
			assert.Equal(t, tt.want, dErr.Name)
		})
	}

	assert.Empty(t, n.got)
}

func TestBridge_EmitWithoutConnection(t *testing.T) {
	b := NewBridge(&recordingLifecycle{}, nil)
	assert.ErrorIs(t, b.EmitSubscribed(1, event.MaskOf(event.Rebased)), errNotConnected)
	assert.ErrorIs(t, b.EmitUnsubscribed(1), errNotConnected)
	assert.Nil(t, b.Connection())
	assert.NoError(t, b.Stop())
}

func TestIntrospection(t *testing.T) {
	methods := bridgeMethods()
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"AnalysisComplete", "Subscription", "Notify", "DocumentClosed"}, names)

	signals := bridgeSignals()
	require.Len(t, signals, 2)
	assert.Equal(t, "Subscribed", signals[0].Name)
	assert.Equal(t, "Unsubscribed", signals[1].Name)
}

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name string
		sig  *dbus.Signal
		want SubscriptionChange
		ok   bool
	}{
		{
			name: "subscribed",
			sig: &dbus.Signal{Path: DBusPath, Name: DBusInterface + ".Subscribed",
				Body: []interface{}{uint64(0x1000), []string{"functionAdded"}}},
			want: SubscriptionChange{Doc: 0x1000, Subscribed: true, Events: []string{"functionAdded"}},
			ok:   true,
		},
		{
			name: "unsubscribed",
			sig: &dbus.Signal{Path: DBusPath, Name: DBusInterface + ".Unsubscribed",
				Body: []interface{}{uint64(0x1000)}},
			want: SubscriptionChange{Doc: 0x1000},
			ok:   true,
		},
		{
			name: "other path",
			sig: &dbus.Signal{Path: "/elsewhere", Name: DBusInterface + ".Unsubscribed",
				Body: []interface{}{uint64(1)}},
		},
		{
			name: "bad handle",
			sig: &dbus.Signal{Path: DBusPath, Name: DBusInterface + ".Unsubscribed",
				Body: []interface{}{"x"}},
		},
		{
			name: "subscribed without events",
			sig: &dbus.Signal{Path: DBusPath, Name: DBusInterface + ".Subscribed",
				Body: []interface{}{uint64(1)}},
		},
		{
			name: "unrelated member",
			sig: &dbus.Signal{Path: DBusPath, Name: DBusInterface + ".Other",
				Body: []interface{}{uint64(1)}},
		},
		{name: "nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSignal(tt.sig)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
