// Package composer turns an edit plan into a deterministic ffmpeg
// invocation: one input per clip, a scale/crop/shift stage per placement
// and a chain of time-gated overlays onto the A-roll.
package composer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"cuesens/models"
)

// Entry pairs a placement with the local path of its downloaded clip.
type Entry struct {
	ClipPath  string
	Placement models.Placement
}

// Input describes one composition job.
type Input struct {
	ARollPath  string
	Entries    []Entry // plan order; re-sorted defensively by start time
	Width      int
	Height     int
	OutputPath string
}

// Command is the synthesized encoder invocation. Args is the complete
// argument list for the ffmpeg binary.
type Command struct {
	Args          []string
	Inputs        []string
	FilterComplex string
	OutputPath    string
}

// Build synthesizes the overlay filter graph for the given plan.
//
// Input 0 is always the A-roll; inputs 1..N are the clips in plan order.
// Each clip is scaled to fill the output frame (aspect preserved, then
// center-cropped, never letterboxed) and its timestamps shifted so it
// starts at the placement's position on the output timeline. Overlay
// stages chain strictly in plan order: each stage's output is the next
// stage's background, so reordering would break the graph. The audio is
// always the A-roll's own track; clips contribute no audio.
//
// Encoding parameters are fixed policy: H.264 ultrafast/crf 23, AAC,
// truncated to the shortest stream.
func Build(in Input) Command {
	entries := make([]Entry, len(in.Entries))
	copy(entries, in.Entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Placement.StartInARoll < entries[j].Placement.StartInARoll
	})

	inputs := make([]string, 0, len(entries)+1)
	inputs = append(inputs, in.ARollPath)
	for _, e := range entries {
		inputs = append(inputs, e.ClipPath)
	}

	var filterParts []string
	lastOut := "[0:v]"
	for i, e := range entries {
		idx := i + 1
		start := e.Placement.StartInARoll
		end := e.Placement.End()

		scaled := fmt.Sprintf("[v%d]", idx)
		out := fmt.Sprintf("[v%d_out]", idx)
		filterParts = append(filterParts, fmt.Sprintf(
			"[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setpts=PTS-STARTPTS+%s/TB%s",
			idx, in.Width, in.Height, in.Width, in.Height, sec(start), scaled,
		))
		filterParts = append(filterParts, fmt.Sprintf(
			"%s%soverlay=x=0:y=0:enable='between(t,%s,%s)'%s",
			lastOut, scaled, sec(start), sec(end), out,
		))
		lastOut = out
	}
	filterComplex := strings.Join(filterParts, ";")

	args := []string{"-y"}
	for _, input := range inputs {
		args = append(args, "-i", input)
	}
	if len(entries) > 0 {
		args = append(args, "-filter_complex", filterComplex, "-map", lastOut)
	} else {
		args = append(args, "-map", "0:v")
	}
	args = append(args,
		"-map", "0:a",
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "23",
		"-c:a", "aac",
		"-shortest",
		in.OutputPath,
	)

	return Command{
		Args:          args,
		Inputs:        inputs,
		FilterComplex: filterComplex,
		OutputPath:    in.OutputPath,
	}
}

// sec renders a timestamp for the filter graph without trailing zeros, so
// the same plan always yields byte-identical commands.
func sec(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
