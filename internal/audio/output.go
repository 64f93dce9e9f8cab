package audio

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Output is the audio device decoded streams are submitted to. Play must be
// safe for concurrent use and must not wait for the stream to finish; the
// device mixes overlapping streams itself.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Close() error
}

// Speaker is the default system output, backed by beep's speaker mixer.
// The speaker is process-global, so only one Speaker may be open at a time.
type Speaker struct {
	sampleRate beep.SampleRate
}

// OpenSpeaker initializes the default output device.
func OpenSpeaker(sampleRate beep.SampleRate, buffer time.Duration) (*Speaker, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(buffer)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}
	return &Speaker{sampleRate: sampleRate}, nil
}

// SampleRate returns the device rate every stream is resampled to.
func (s *Speaker) SampleRate() beep.SampleRate {
	return s.sampleRate
}

// Play adds the stream to the speaker mixer and returns immediately.
func (s *Speaker) Play(st beep.Streamer) {
	speaker.Play(st)
}

// Close stops all playback and releases the device.
func (s *Speaker) Close() error {
	speaker.Close()
	return nil
}
