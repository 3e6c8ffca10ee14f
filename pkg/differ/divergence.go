package differ

// Missing is the serialization of a side with no entity at a position.
const Missing = "missing"

// Reason classifies why a position diverged.
type Reason string

// Divergence reasons, in the order they are checked.
const (
	ReasonNone                 Reason = ""
	ReasonMissingPublished     Reason = "missing_published"
	ReasonMissingAuthoritative Reason = "missing_authoritative"
	ReasonID                   Reason = "id"
	ReasonNames                Reason = "names"
	ReasonMetadata             Reason = "metadata"
)

// Divergence is one disagreeing position between the authoritative (left)
// and published (right) sequences. Index is 1-based.
type Divergence struct {
	Index  int    `json:"index" yaml:"index"`
	Left   string `json:"left" yaml:"left"`
	Right  string `json:"right" yaml:"right"`
	Reason Reason `json:"reason" yaml:"reason"`
}

// Summary counts divergences by reason.
type Summary struct {
	Total   int            `json:"total" yaml:"total"`
	Reasons map[Reason]int `json:"reasons" yaml:"reasons"`
}

// Summarize counts divergences by reason.
func Summarize(divergences []Divergence) Summary {
	s := Summary{Total: len(divergences), Reasons: make(map[Reason]int)}
	for _, d := range divergences {
		s.Reasons[d.Reason]++
	}
	return s
}

// HasChanges reports whether any divergence was found.
func (s Summary) HasChanges() bool {
	return s.Total > 0
}
