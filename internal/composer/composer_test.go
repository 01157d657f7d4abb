package composer

import (
	"reflect"
	"strings"
	"testing"

	"cuesens/models"
)

func entry(path string, start, duration float64) Entry {
	return Entry{
		ClipPath: path,
		Placement: models.Placement{
			BRollID:      path,
			StartInARoll: start,
			Duration:     duration,
		},
	}
}

func TestBuildSinglePlacementFilterGraph(t *testing.T) {
	cmd := Build(Input{
		ARollPath:  "/work/aroll.mp4",
		Entries:    []Entry{entry("/work/clip_a.mp4", 2.5, 3)},
		Width:      720,
		Height:     1280,
		OutputPath: "/work/final.mp4",
	})

	wantFilter := "[1:v]scale=720:1280:force_original_aspect_ratio=increase,crop=720:1280,setpts=PTS-STARTPTS+2.5/TB[v1];" +
		"[0:v][v1]overlay=x=0:y=0:enable='between(t,2.5,5.5)'[v1_out]"
	if cmd.FilterComplex != wantFilter {
		t.Errorf("filter graph mismatch:\n got %s\nwant %s", cmd.FilterComplex, wantFilter)
	}
	if !reflect.DeepEqual(cmd.Inputs, []string{"/work/aroll.mp4", "/work/clip_a.mp4"}) {
		t.Errorf("unexpected inputs: %v", cmd.Inputs)
	}
	if cmd.OutputPath != "/work/final.mp4" {
		t.Errorf("unexpected output path: %s", cmd.OutputPath)
	}
}

func TestBuildChainsOverlaysInOrder(t *testing.T) {
	cmd := Build(Input{
		ARollPath: "aroll.mp4",
		Entries: []Entry{
			entry("clip_a.mp4", 0, 2),
			entry("clip_b.mp4", 10, 3),
			entry("clip_c.mp4", 20, 4),
		},
		Width:      720,
		Height:     1280,
		OutputPath: "final.mp4",
	})

	if len(cmd.Inputs) != 4 {
		t.Fatalf("expected 4 inputs, got %d", len(cmd.Inputs))
	}
	if got := strings.Count(cmd.FilterComplex, "overlay="); got != 3 {
		t.Errorf("expected 3 overlay stages, got %d", got)
	}
	// Each stage's background is the previous stage's output.
	for _, link := range []string{"[0:v][v1]overlay", "[v1_out][v2]overlay", "[v2_out][v3]overlay"} {
		if !strings.Contains(cmd.FilterComplex, link) {
			t.Errorf("missing chain link %q in %s", link, cmd.FilterComplex)
		}
	}
	if !containsPair(cmd.Args, "-map", "[v3_out]") {
		t.Errorf("final video map should be the last overlay output, args: %v", cmd.Args)
	}
}

func TestBuildResortsEntriesByStart(t *testing.T) {
	cmd := Build(Input{
		ARollPath: "aroll.mp4",
		Entries: []Entry{
			entry("late.mp4", 30, 2),
			entry("early.mp4", 5, 2),
		},
		Width:      720,
		Height:     1280,
		OutputPath: "final.mp4",
	})

	if !reflect.DeepEqual(cmd.Inputs, []string{"aroll.mp4", "early.mp4", "late.mp4"}) {
		t.Errorf("inputs should follow timeline order, got %v", cmd.Inputs)
	}
	if !strings.Contains(cmd.FilterComplex, "enable='between(t,5,7)'[v1_out]") {
		t.Errorf("first overlay should gate on the earlier placement: %s", cmd.FilterComplex)
	}
}

func TestBuildEmptyPlanPassesThroughARoll(t *testing.T) {
	cmd := Build(Input{
		ARollPath:  "aroll.mp4",
		Entries:    nil,
		Width:      720,
		Height:     1280,
		OutputPath: "final.mp4",
	})

	if cmd.FilterComplex != "" {
		t.Errorf("expected no filter graph, got %q", cmd.FilterComplex)
	}
	for _, arg := range cmd.Args {
		if arg == "-filter_complex" {
			t.Error("empty plan should not emit -filter_complex")
		}
	}
	if !containsPair(cmd.Args, "-map", "0:v") {
		t.Errorf("empty plan should map the A-roll video directly, args: %v", cmd.Args)
	}
}

func TestBuildFixedEncodingPolicy(t *testing.T) {
	cmd := Build(Input{
		ARollPath:  "aroll.mp4",
		Entries:    []Entry{entry("clip.mp4", 1, 1)},
		Width:      720,
		Height:     1280,
		OutputPath: "final.mp4",
	})

	if cmd.Args[0] != "-y" {
		t.Errorf("expected -y first, got %s", cmd.Args[0])
	}
	for _, pair := range [][2]string{
		{"-map", "0:a"},
		{"-c:v", "libx264"},
		{"-preset", "ultrafast"},
		{"-crf", "23"},
		{"-c:a", "aac"},
	} {
		if !containsPair(cmd.Args, pair[0], pair[1]) {
			t.Errorf("missing %s %s in args: %v", pair[0], pair[1], cmd.Args)
		}
	}
	sawShortest := false
	for _, arg := range cmd.Args {
		if arg == "-shortest" {
			sawShortest = true
		}
	}
	if !sawShortest {
		t.Errorf("missing -shortest in args: %v", cmd.Args)
	}
	if cmd.Args[len(cmd.Args)-1] != "final.mp4" {
		t.Errorf("output path must be the last argument, got %s", cmd.Args[len(cmd.Args)-1])
	}
}

func TestBuildDoesNotMutateCallerEntries(t *testing.T) {
	entries := []Entry{
		entry("late.mp4", 30, 2),
		entry("early.mp4", 5, 2),
	}
	Build(Input{ARollPath: "aroll.mp4", Entries: entries, Width: 720, Height: 1280, OutputPath: "final.mp4"})
	if entries[0].ClipPath != "late.mp4" {
		t.Error("Build must sort a copy, not the caller's slice")
	}
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
