package episode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/podtalk/podtalk/pkg/audio"
)

// decodeSampleRate is the PCM rate episode audio is decoded to. 22.05 kHz
// mono keeps a 20-minute window around 50 MiB in memory while staying
// comfortably above what diarization and cloning need.
const decodeSampleRate = 22050

// FFmpegDecode shells out to ffmpeg to decode any enclosure format
// (mp3, m4a, ogg, wav) into mono 16-bit PCM. ffmpeg must be on PATH.
func FFmpegDecode(ctx context.Context, path string) (audio.Buffer, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return audio.Buffer{}, fmt.Errorf("ffmpeg not found on PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-ar", fmt.Sprint(decodeSampleRate),
		"-ac", "1",
		"-f", "s16le",
		"-loglevel", "error",
		"pipe:1",
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return audio.Buffer{}, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(errBuf.Bytes()))
	}
	if out.Len() == 0 {
		return audio.Buffer{}, fmt.Errorf("ffmpeg produced no audio for %s", path)
	}

	return audio.Buffer{
		Data:       out.Bytes(),
		SampleRate: decodeSampleRate,
		Channels:   1,
	}, nil
}
