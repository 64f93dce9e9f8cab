// Package audiotest provides fixtures for code that plays sounds: a
// generated WAV file and an in-memory Output.
package audiotest

import (
	"os"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// WAV returns a mono 16-bit PCM WAV file holding n samples of a sawtooth at
// rate. It panics if the file cannot be encoded.
func WAV(rate, n int) []byte {
	f, err := os.CreateTemp("", "audiotest-*.wav")
	if err != nil {
		panic(err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, beep.Take(n, sawtooth()), format); err != nil {
		panic(err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		panic(err)
	}
	return data
}

func sawtooth() beep.Streamer {
	i := 0
	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for j := range samples {
			v := float64(i%64)/128 - 0.25
			samples[j] = [2]float64{v, v}
			i++
		}
		return len(samples), true
	})
}

// Output records every stream submitted to it. With drain set, each stream
// is consumed on its own goroutine the way a real mixer would.
type Output struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	drain  bool
	played int
	closed bool
}

// NewOutput returns an Output running at rate.
func NewOutput(rate beep.SampleRate, drain bool) *Output {
	return &Output{rate: rate, drain: drain}
}

func (o *Output) SampleRate() beep.SampleRate {
	return o.rate
}

func (o *Output) Play(s beep.Streamer) {
	o.mu.Lock()
	o.played++
	o.mu.Unlock()

	if o.drain {
		go Drain(s)
	}
}

func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

// Played returns the number of streams submitted so far.
func (o *Output) Played() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.played
}

// Closed reports whether Close was called.
func (o *Output) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Drain streams s to exhaustion and returns the number of samples produced.
func Drain(s beep.Streamer) int {
	buf := make([][2]float64, 512)
	total := 0
	for {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
}
