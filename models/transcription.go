package models

// TranscriptSegment is a single timestamped span of speech. Segments are
// produced once by the transcription collaborator, ordered by start time,
// and immutable afterwards.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Window returns the length of the speech span in seconds.
func (s TranscriptSegment) Window() float64 {
	return s.End - s.Start
}

// ClipAnalysis is the description collaborator's verdict on one B-roll clip.
type ClipAnalysis struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Mood        string   `json:"mood"`
}

// PlaceholderAnalysis is the neutral result used when describing a clip
// fails. One bad clip must not block an entire footage library.
func PlaceholderAnalysis() ClipAnalysis {
	return ClipAnalysis{
		Description: "analysis failed",
		Keywords:    []string{},
		Mood:        "unknown",
	}
}
