package interview

import "strings"

// DecisionStatus is the normalized terminal verdict.
type DecisionStatus string

const (
	StatusHired    DecisionStatus = "hired"
	StatusNotHired DecisionStatus = "not_hired"
)

// Scores breaks the overall grade into its weighted components. Every value
// sits in [0,100]; the backend weighs technical depth 40%, communication 30%
// and problem solving 30% into the total.
type Scores struct {
	TechnicalDepth float64 `json:"technical_depth"`
	Communication  float64 `json:"communication"`
	ProblemSolving float64 `json:"problem_solving"`
	Total          float64 `json:"total"`
}

// Decision is the terminal artifact of a session. Once persisted it is
// authoritative: re-entering the interview must reproduce it unchanged.
type Decision struct {
	Status  DecisionStatus `json:"status"`
	Reasons string         `json:"reasons"`
	Scores  Scores         `json:"scores"`
}

// Hired reports whether the candidate got the offer.
func (d Decision) Hired() bool {
	return d.Status == StatusHired
}

// NormalizeStatus maps the status spellings seen on the wire ("hired",
// "not hired", "nothired", any casing) onto the two canonical values.
// Anything unrecognizable counts as not hired.
func NormalizeStatus(raw string) DecisionStatus {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, " ", "_")
	if s == string(StatusHired) {
		return StatusHired
	}
	return StatusNotHired
}

// FallbackDecision is the deterministic verdict used when the backend never
// supplies one: not hired, every score at the midpoint of the scale.
func FallbackDecision() Decision {
	return Decision{
		Status:  StatusNotHired,
		Reasons: "The interview could not be fully evaluated, so a default decision was recorded.",
		Scores: Scores{
			TechnicalDepth: 50,
			Communication:  50,
			ProblemSolving: 50,
			Total:          50,
		},
	}
}
