package audio_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/podtalk/podtalk/pkg/audio"
)

func pcm(seconds, sampleRate, channels int) audio.Buffer {
	return audio.Buffer{
		Data:       bytes.Repeat([]byte{0x12, 0x34}, seconds*sampleRate*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

func TestEncodeDecodeWAV(t *testing.T) {
	t.Parallel()
	in := pcm(2, 16000, 1)

	out, err := audio.DecodeWAV(audio.EncodeWAV(in))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.SampleRate != 16000 || out.Channels != 1 {
		t.Errorf("format = %dHz/%dch", out.SampleRate, out.Channels)
	}
	if !bytes.Equal(out.Data, in.Data) {
		t.Error("PCM data does not survive the container round trip")
	}
	if out.Duration() != 2*time.Second {
		t.Errorf("duration = %s, want 2s", out.Duration())
	}
}

func TestDecodeWAV_Rejects(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not riff", []byte("OggS\x00\x00\x00\x00\x00\x00\x00\x00")},
		{"truncated header", []byte("RIFF\x04\x00\x00\x00WA")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := audio.DecodeWAV(tc.data); err == nil {
				t.Error("want decode error")
			}
		})
	}
}

func TestDecodeWAV_NonPCM(t *testing.T) {
	t.Parallel()
	// Flip the format tag to IEEE float (3).
	b := audio.EncodeWAV(pcm(1, 8000, 1))
	b[20] = 3

	if _, err := audio.DecodeWAV(b); !errors.Is(err, audio.ErrNotPCM) {
		t.Errorf("want ErrNotPCM, got %v", err)
	}
}

func TestSlice(t *testing.T) {
	t.Parallel()
	buf := pcm(10, 8000, 1)

	got := audio.Slice(buf, 2*time.Second, 5*time.Second)
	if got.Duration() != 3*time.Second {
		t.Errorf("duration = %s, want 3s", got.Duration())
	}

	// Bounds clamp to the buffer.
	got = audio.Slice(buf, 8*time.Second, time.Minute)
	if got.Duration() != 2*time.Second {
		t.Errorf("clamped duration = %s, want 2s", got.Duration())
	}

	// Reversed or out-of-range intervals yield empty buffers that still
	// carry the format.
	for _, iv := range [][2]time.Duration{
		{5 * time.Second, 2 * time.Second},
		{time.Minute, 2 * time.Minute},
	} {
		got = audio.Slice(buf, iv[0], iv[1])
		if !got.Empty() {
			t.Errorf("Slice(%s,%s) not empty", iv[0], iv[1])
		}
		if got.SampleRate != 8000 {
			t.Errorf("Slice(%s,%s) lost format", iv[0], iv[1])
		}
	}
}

func TestConcat(t *testing.T) {
	t.Parallel()
	a := pcm(1, 8000, 1)
	b := pcm(2, 8000, 1)

	out, err := audio.Concat(a, audio.Buffer{}, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	if out.Duration() != 3*time.Second {
		t.Errorf("duration = %s, want 3s", out.Duration())
	}

	if _, err := audio.Concat(a, pcm(1, 44100, 2)); err == nil {
		t.Error("want error for mismatched formats")
	}
}
