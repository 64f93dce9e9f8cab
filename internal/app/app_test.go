package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/binjuice/internal/audio"
	"github.com/jmylchreest/binjuice/internal/audio/audiotest"
	"github.com/jmylchreest/binjuice/internal/config"
	"github.com/jmylchreest/binjuice/internal/dispatch"
	"github.com/jmylchreest/binjuice/internal/event"
	"github.com/jmylchreest/binjuice/internal/registry"
)

type nopSub struct{}

func (nopSub) Close() error { return nil }

type countingHost struct {
	mu    sync.Mutex
	masks map[registry.DocumentID][]event.Mask
}

func (h *countingHost) Subscribe(doc registry.DocumentID, mask event.Mask, _ dispatch.Notifier) (registry.Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.masks == nil {
		h.masks = make(map[registry.DocumentID][]event.Mask)
	}
	h.masks[doc] = append(h.masks[doc], mask)
	return nopSub{}, nil
}

func (h *countingHost) calls(doc registry.DocumentID) []event.Mask {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.masks[doc]
}

// setup writes a config mapping each kind to a generated WAV, plus the
// given extra [sounds] lines, and returns its path.
func setup(t *testing.T, kinds []event.Kind, extra string) string {
	t.Helper()
	dir := t.TempDir()

	sounds := ""
	for _, k := range kinds {
		p := filepath.Join(dir, k.String()+".wav")
		require.NoError(t, os.WriteFile(p, audiotest.WAV(8000, 80), 0644))
		sounds += fmt.Sprintf("%s = %q\n", k, p)
	}

	path := filepath.Join(dir, "binjuice.toml")
	content := "[audio]\nvolume = 80\n\n[sounds]\n" + sounds + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func fakeOutput(out *audiotest.Output, opened *int) func(*config.Config) (audio.Output, error) {
	return func(*config.Config) (audio.Output, error) {
		*opened++
		return out, nil
	}
}

func shutdownAfter(t *testing.T) {
	t.Cleanup(func() {
		_ = Shutdown(context.Background())
	})
}

func TestInit_PublishesAndPlaysStartSound(t *testing.T) {
	shutdownAfter(t)
	out := audiotest.NewOutput(44100, true)
	opened := 0

	a, err := Init(context.Background(), Options{
		ConfigPath: setup(t, []event.Kind{event.StartBinaryNinja, event.FunctionAdded}, ""),
		Host:       &countingHost{},
		OpenOutput: fakeOutput(out, &opened),
	})
	require.NoError(t, err)

	assert.Same(t, a, Current())
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, out.Played())
	assert.Equal(t, 80, a.Config().Audio.Volume)
	assert.Equal(t, 2, a.Sounds().Len())
	assert.Equal(t, event.MaskOf(event.FunctionAdded), a.Dispatcher().Mask())
}

func TestInit_MissingSoundPublishesNothing(t *testing.T) {
	shutdownAfter(t)
	out := audiotest.NewOutput(44100, true)
	opened := 0

	path := setup(t, []event.Kind{event.FunctionAdded},
		fmt.Sprintf("start_binary_ninja = %q\n", filepath.Join(t.TempDir(), "missing.wav")))

	a, err := Init(context.Background(), Options{
		ConfigPath: path,
		Host:       &countingHost{},
		OpenOutput: fakeOutput(out, &opened),
	})
	assert.Nil(t, a)

	var startErr *StartupError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, StageSounds, startErr.Stage)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var loadErr *audio.ResourceLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, event.StartBinaryNinja, loadErr.Kind)

	assert.Nil(t, Current())
	assert.Zero(t, opened)
	assert.Zero(t, out.Played())

	// Host signals are no-ops without an instance.
	AnalysisComplete(0x1000)
	DocumentClosed(0x1000)
}

func TestInit_StageErrors(t *testing.T) {
	shutdownAfter(t)

	t.Run("config", func(t *testing.T) {
		_, err := Init(context.Background(), Options{
			ConfigPath: filepath.Join(t.TempDir(), "none.toml"),
			Host:       &countingHost{},
		})
		var startErr *StartupError
		require.ErrorAs(t, err, &startErr)
		assert.Equal(t, StageConfig, startErr.Stage)
	})

	t.Run("host", func(t *testing.T) {
		_, err := Init(context.Background(), Options{ConfigPath: setup(t, nil, "")})
		var startErr *StartupError
		require.ErrorAs(t, err, &startErr)
		assert.Equal(t, StageHost, startErr.Stage)
	})

	t.Run("output", func(t *testing.T) {
		_, err := Init(context.Background(), Options{
			ConfigPath: setup(t, nil, ""),
			Host:       &countingHost{},
			OpenOutput: func(*config.Config) (audio.Output, error) {
				return nil, errors.New("no device")
			},
		})
		var startErr *StartupError
		require.ErrorAs(t, err, &startErr)
		assert.Equal(t, StageOutput, startErr.Stage)
	})

	assert.Nil(t, Current())
}

func TestInit_Twice(t *testing.T) {
	shutdownAfter(t)
	opened := 0
	opts := Options{
		ConfigPath: setup(t, nil, ""),
		Host:       &countingHost{},
		OpenOutput: fakeOutput(audiotest.NewOutput(44100, true), &opened),
	}

	first, err := Init(context.Background(), opts)
	require.NoError(t, err)

	second, err := Init(context.Background(), opts)
	assert.Nil(t, second)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	var startErr *StartupError
	require.ErrorAs(t, err, &startErr)
	assert.Equal(t, StageInit, startErr.Stage)
	assert.Same(t, first, Current())
	assert.Equal(t, 1, opened)
}

func TestAnalysisComplete_SubscribesOncePerDocument(t *testing.T) {
	shutdownAfter(t)
	host := &countingHost{}
	out := audiotest.NewOutput(44100, true)
	opened := 0

	_, err := Init(context.Background(), Options{
		ConfigPath: setup(t, []event.Kind{event.StartBinaryView, event.EndBinaryView, event.SymbolAdded}, ""),
		Host:       host,
		OpenOutput: fakeOutput(out, &opened),
	})
	require.NoError(t, err)

	AnalysisComplete(0x1000)
	AnalysisComplete(0x1000)
	AnalysisComplete(0x2000)

	require.Len(t, host.calls(0x1000), 1)
	require.Len(t, host.calls(0x2000), 1)
	assert.Equal(t, event.MaskOf(event.SymbolAdded), host.calls(0x1000)[0])

	DocumentClosed(0x1000)

	// Two start_binary_view plays and one end_binary_view.
	assert.Equal(t, 3, out.Played())

	var ep Entrypoints
	ep.AnalysisComplete(0x3000)
	assert.Len(t, host.calls(0x3000), 1)
}

func TestShutdown_ClearsInstance(t *testing.T) {
	shutdownAfter(t)
	out := audiotest.NewOutput(44100, true)
	opened := 0
	opts := Options{
		ConfigPath: setup(t, []event.Kind{event.EndBinaryNinja}, ""),
		Host:       &countingHost{},
		OpenOutput: fakeOutput(out, &opened),
	}

	_, err := Init(context.Background(), opts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, Shutdown(ctx))

	assert.Nil(t, Current())
	assert.True(t, out.Closed())
	assert.Equal(t, 1, out.Played())
	assert.NoError(t, Shutdown(ctx))

	again, err := Init(context.Background(), opts)
	require.NoError(t, err)
	assert.Same(t, again, Current())
	assert.Equal(t, 2, opened)
}
