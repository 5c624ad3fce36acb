// Package transcode launches ffmpeg to produce WAV audio for songs whose
// stored codec requires conversion before streaming. It is adapted from the
// teacher's internal/ffmpeg.Encoder.Stream: same exec.CommandContext/pipe
// plumbing, generalized to start mid-file and stop after a declared
// duration instead of always reading from the beginning.
package transcode

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

// Launcher starts ffmpeg processes that decode a source file to raw WAV on
// stdout.
type Launcher struct {
	// SampleRate and Channels describe the PCM format ffmpeg should emit.
	// 16-bit stereo at the song's native sample rate is assumed throughout
	// the pipeline (see catalog's transcode bitrate adjustment).
	SampleRate int
	Channels   int
	ffmpegPath string
}

// NewLauncher returns a Launcher invoking the given ffmpeg binary (or
// "ffmpeg" from PATH if empty).
func NewLauncher(sampleRate, channels int, ffmpegPath string) *Launcher {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Launcher{SampleRate: sampleRate, Channels: channels, ffmpegPath: ffmpegPath}
}

// Start launches ffmpeg against path, seeking to byteOffset (converted to a
// time offset using the configured PCM format) and stopping after
// durationMS milliseconds of input have been consumed. It returns a
// ReadCloser streaming WAV bytes on stdout; closing it terminates the
// process. A nil duration (durationMS <= 0) means "to the end of the file".
func (l *Launcher) Start(ctx context.Context, path string, byteOffset int64, durationMS int) (io.ReadCloser, error) {
	bytesPerSecond := l.SampleRate * l.Channels * 2 // 16-bit samples
	var seekSeconds float64
	if bytesPerSecond > 0 && byteOffset > 0 {
		seekSeconds = float64(byteOffset) / float64(bytesPerSecond)
	}

	args := []string{"-v", "quiet"}
	if seekSeconds > 0 {
		args = append(args, "-ss", formatSeconds(seekSeconds))
	}
	args = append(args, "-i", path)
	if durationMS > 0 {
		args = append(args, "-t", formatSeconds(time.Duration(durationMS*int(time.Millisecond)).Seconds()))
	}
	args = append(args,
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", l.SampleRate),
		"-ac", fmt.Sprintf("%d", l.Channels),
		"-vn",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, l.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transcode: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("transcode: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("transcode: start ffmpeg: %w", err)
	}

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := stderr.Read(buf)
			if n > 0 {
				slog.Debug("transcode: ffmpeg stderr", "output", string(buf[:n]))
			}
			if err != nil {
				return
			}
		}
	}()

	return &process{cmd: cmd, stdout: stdout}, nil
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.3f", s)
}

// process wraps a running ffmpeg command so the caller can read its stdout
// and release the process with a single Close.
type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func (p *process) Read(b []byte) (int, error) { return p.stdout.Read(b) }

func (p *process) Close() error {
	closeErr := p.stdout.Close()
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	waitErr := p.cmd.Wait()
	if closeErr != nil {
		return closeErr
	}
	if waitErr != nil && waitErr.Error() == "signal: killed" {
		return nil
	}
	return waitErr
}
