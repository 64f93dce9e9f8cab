package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/jmylchreest/binjuice/internal/metrics"
)

// ErrUnknownFormat is returned for buffers that are not WAV, OGG or MP3.
var ErrUnknownFormat = errors.New("unrecognized audio format")

// DecodeError reports a sound that could not be decoded at playback time.
type DecodeError struct {
	Label string
	Size  int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode sound for %s (%d bytes): %v", e.Label, e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Player decodes sound buffers and submits them to an Output.
type Player struct {
	out     Output
	logger  *slog.Logger
	metrics *metrics.Metrics

	// Volume control (0.0 to 1.0), fixed for the player's lifetime
	volume float64
}

// NewPlayer creates a new audio player writing to out.
func NewPlayer(out Output, volume float64, m *metrics.Metrics, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		out:     out,
		logger:  logger,
		metrics: m,
		volume:  max(0, min(volume, 1)),
	}
}

// Play decodes res and submits it for playback without waiting. Decode
// failures are logged and counted, never returned.
func (p *Player) Play(res *Resource) {
	if res == nil {
		return
	}
	p.PlayBytes(res.Bytes(), res.Kind.String())
}

// PlayBytes decodes data and submits it for playback without waiting.
func (p *Player) PlayBytes(data []byte, label string) {
	if err := p.start(data, label, nil); err != nil {
		p.logger.Error("unable to play sound", "event", label, "size", len(data), "error", err)
	}
}

// PlayAndWait plays res and blocks until it has finished or ctx is done.
func (p *Player) PlayAndWait(ctx context.Context, res *Resource) error {
	if res == nil {
		return nil
	}

	done := make(chan struct{})
	label := res.Kind.String()
	if err := p.start(res.Bytes(), label, func() { close(done) }); err != nil {
		p.logger.Error("unable to play sound", "event", label, "size", res.Size(), "error", err)
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start decodes data and hands the stream to the output. onDone, if set,
// runs on the output's goroutine once the stream is drained.
func (p *Player) start(data []byte, label string, onDone func()) error {
	s, err := p.prepare(data)
	if err != nil {
		p.metrics.IncDecodeError(label)
		return &DecodeError{Label: label, Size: len(data), Err: err}
	}

	s = beep.Seq(s, beep.Callback(func() {
		if onDone != nil {
			onDone()
		}
	}))

	p.logger.Info("playing sound", "event", label, "size", len(data))
	p.metrics.IncPlayback(label)
	p.out.Play(s)
	return nil
}

// prepare decodes data completely and builds the playback chain. Nothing
// handed to the output can fail or panic afterwards.
func (p *Player) prepare(data []byte) (s beep.Streamer, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("playback chain panic: %v", r)
		}
	}()

	buffer, _, err := decode(data)
	if err != nil {
		return nil, err
	}
	s = buffer.Streamer(0, buffer.Len())

	// Resample if necessary
	if rate := p.out.SampleRate(); buffer.Format().SampleRate != rate {
		s = beep.Resample(4, buffer.Format().SampleRate, rate, s)
	}

	// Apply volume
	if p.volume < 1.0 {
		s = &effects.Volume{
			Streamer: s,
			Base:     2,
			Volume:   volumeToExponent(p.volume),
			Silent:   p.volume == 0,
		}
	}
	return s, nil
}

// maxSampleRate bounds the rate a sound may declare.
const maxSampleRate = 768000

// decode sniffs the container format and decodes all of data into memory.
// A decoder panic on damaged input is reported as a decode error, as is a
// declared format the output chain cannot handle.
func decode(data []byte) (buffer *beep.Buffer, container audioFormat, err error) {
	defer func() {
		if r := recover(); r != nil {
			buffer, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	container = sniff(data)
	switch container {
	case formatWAV:
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case formatVorbis:
		streamer, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case formatMP3:
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, container, ErrUnknownFormat
	}
	if err != nil {
		return nil, container, err
	}
	defer streamer.Close()

	if err := validateFormat(format); err != nil {
		return nil, container, err
	}

	buffer = beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, container, fmt.Errorf("failed to decode samples: %w", err)
	}
	return buffer, container, nil
}

func validateFormat(format beep.Format) error {
	if format.SampleRate <= 0 || format.SampleRate > maxSampleRate {
		return fmt.Errorf("invalid sample rate %d", format.SampleRate)
	}
	if format.NumChannels < 1 || format.NumChannels > 2 {
		return fmt.Errorf("unsupported channel count %d", format.NumChannels)
	}
	if format.Precision < 1 || format.Precision > 3 {
		return fmt.Errorf("unsupported precision %d", format.Precision)
	}
	return nil
}

// Info describes a decodable sound.
type Info struct {
	Container  string
	SampleRate beep.SampleRate
	Channels   int
	Length     time.Duration
}

// Probe decodes res completely and reports its format and length. It is
// used to validate sounds before anything is played.
func Probe(res *Resource) (Info, error) {
	data := res.Bytes()
	buffer, container, err := decode(data)
	if err != nil {
		return Info{}, &DecodeError{Label: res.Kind.String(), Size: len(data), Err: err}
	}

	format := buffer.Format()
	return Info{
		Container:  container.String(),
		SampleRate: format.SampleRate,
		Channels:   format.NumChannels,
		Length:     format.SampleRate.D(buffer.Len()),
	}, nil
}

type audioFormat int

const (
	formatUnknown audioFormat = iota
	formatWAV
	formatVorbis
	formatMP3
)

func (f audioFormat) String() string {
	switch f {
	case formatWAV:
		return "wav"
	case formatVorbis:
		return "ogg"
	case formatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

func sniff(data []byte) audioFormat {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return formatWAV
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return formatVorbis
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return formatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return formatMP3
	default:
		return formatUnknown
	}
}

// volumeToExponent converts a linear volume (0-1) to a base-2 gain exponent.
func volumeToExponent(volume float64) float64 {
	if volume <= 0 {
		return -10 // Effectively silent, Silent is set as well
	}
	return math.Log2(volume)
}
