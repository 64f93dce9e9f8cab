// Package audio loads the configured event sounds into memory and plays them.
// Sounds are held as raw, immutable byte buffers and decoded on every
// playback with the beep library (WAV, OGG/Vorbis and MP3), so one bad file
// only ever fails its own playback.
package audio
