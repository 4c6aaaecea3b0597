package interview

// Speaker identifies which side of the interview produced a turn.
type Speaker string

const (
	SpeakerInterviewer Speaker = "interviewer"
	SpeakerCandidate   Speaker = "candidate"
)

// Turn is one exchange unit in the conversation. Turns are immutable once
// appended to the log; AudioURL is only set on interviewer turns that carry
// synthesized speech.
type Turn struct {
	Speaker   Speaker `json:"speaker"`
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
	AudioURL  string  `json:"audioUrl,omitempty"`
}
