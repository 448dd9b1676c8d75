package playback

import (
	"context"
	"encoding/binary"
	"errors"
	"time"
)

// Common errors
var (
	ErrBadWAV = errors.New("playback: malformed wav payload")
)

// Player turns one utterance's audio payload into audible playback and
// returns when playback completes or fails. Implementations are provided by
// the embedding application; Play must honor ctx cancellation.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

// ClockPlayer is the headless default: it decodes the WAV header, then holds
// the playback slot for the payload's real duration. Useful when the audio
// device lives in another process and only scheduling matters here.
type ClockPlayer struct{}

// Play blocks for the payload's duration or until ctx is cancelled.
func (ClockPlayer) Play(ctx context.Context, wav []byte) error {
	d, err := WAVDuration(wav)
	if err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WAVDuration computes the playback duration of a RIFF/WAVE payload from its
// fmt and data chunks. No third-party decoder is needed for timing alone.
func WAVDuration(b []byte) (time.Duration, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return 0, ErrBadWAV
	}

	var byteRate uint32
	var dataLen uint32
	haveFmt, haveData := false, false

	// Walk the chunk list; chunks are word-aligned.
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := binary.LittleEndian.Uint32(b[off+4 : off+8])
		body := off + 8
		if body+int(size) > len(b) {
			return 0, ErrBadWAV
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return 0, ErrBadWAV
			}
			byteRate = binary.LittleEndian.Uint32(b[body+8 : body+12])
			haveFmt = true
		case "data":
			dataLen = size
			haveData = true
		}

		off = body + int(size)
		if size%2 == 1 {
			off++
		}
		if haveFmt && haveData {
			break
		}
	}

	if !haveFmt || !haveData || byteRate == 0 {
		return 0, ErrBadWAV
	}
	return time.Duration(float64(dataLen) / float64(byteRate) * float64(time.Second)), nil
}
