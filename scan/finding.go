package scan

import "fmt"

// Kind classifies a Finding.
type Kind string

const (
	// KindMerge is a left/right candidate pair; see Finding.Merged.
	KindMerge Kind = "merge"
	// KindMarker is a formatting marker left in the raw text.
	KindMarker Kind = "marker"
	// KindStrayStop is a token consisting solely of stop marks.
	KindStrayStop Kind = "stray-stop"
)

// Finding is one anomaly candidate in a verse.
type Finding struct {
	Kind    Kind
	Surah   int
	Ayah    int
	Key     string
	Pattern string

	Raw        string
	Normalized string

	Left  string
	Span  string
	Right string

	// Offset is the rune offset of the match: in Normalized for merges and
	// stray stops, in Raw for markers.
	Offset     int
	SpanLength int
	Context    string
}

// Merged reports whether a merge candidate has no separator between its two
// halves.
func (f Finding) Merged() bool { return f.Kind == KindMerge && f.SpanLength == 0 }

func (f Finding) String() string {
	switch f.Kind {
	case KindMerge:
		state := "separated"
		if f.Merged() {
			state = "MERGED"
		}
		return fmt.Sprintf("%s %s [%s] span=%d at %d: %s", f.Key, state, f.Pattern, f.SpanLength, f.Offset, f.Context)
	default:
		return fmt.Sprintf("%s %s %q at %d: %s", f.Key, f.Kind, f.Left, f.Offset, f.Context)
	}
}

// Report is the outcome of scanning a source.
type Report struct {
	Scanned  int
	Findings []Finding
}

// Count returns the number of findings of kind.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, f := range r.Findings {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

// Merged returns the positive merge detections.
func (r *Report) Merged() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Merged() {
			out = append(out, f)
		}
	}
	return out
}
