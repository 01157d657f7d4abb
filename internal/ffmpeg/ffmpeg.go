// Package ffmpeg shells out to ffprobe/ffmpeg for duration probing and for
// executing synthesized composition commands.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"strconv"

	"cuesens/internal/composer"
)

// probeOutput captures the single ffprobe field we care about.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the media duration in seconds, or 0 on any
// failure. Callers treat 0 as "unusable media" and reject the upload.
func ProbeDuration(filePath string) float64 {
	// ffprobe -v quiet -print_format json -show_format <input_file>
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		filePath,
	)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		log.Printf("ffprobe failed for %s: %v\nStderr: %s", filePath, err, stderr.String())
		return 0
	}

	var probed probeOutput
	if err := json.Unmarshal(out.Bytes(), &probed); err != nil {
		log.Printf("error unmarshalling ffprobe output for %s: %v", filePath, err)
		return 0
	}
	if probed.Format.Duration == "" {
		log.Printf("no duration in ffprobe output for %s", filePath)
		return 0
	}

	duration, err := strconv.ParseFloat(probed.Format.Duration, 64)
	if err != nil {
		log.Printf("error parsing ffprobe duration %q: %v", probed.Format.Duration, err)
		return 0
	}
	return duration
}

// Encoder runs composition commands through the ffmpeg binary.
type Encoder struct{}

// Encode executes the command, honoring ctx for cancellation and timeout.
// On failure the captured stderr is folded into the returned error so the
// diagnostic survives into the project's status message.
func (Encoder) Encode(ctx context.Context, cmd composer.Command) error {
	c := exec.CommandContext(ctx, "ffmpeg", cmd.Args...)

	var stderr bytes.Buffer
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("ffmpeg aborted: %w", ctxErr)
		}
		return fmt.Errorf("ffmpeg failed: %v\nStderr: %s", err, stderr.String())
	}

	log.Printf("Successfully rendered composition to '%s' (%d inputs)", cmd.OutputPath, len(cmd.Inputs))
	return nil
}
