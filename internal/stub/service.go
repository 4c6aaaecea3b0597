// Package stub is a deterministic stand-in for the interview backend. It
// speaks the same five HTTP contracts with scripted questions and a rule-based
// verdict, so the client can be developed and integration-tested without the
// real LLM/transcription stack.
package stub

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wangxuanyi/hireloop/client/internal/audio"
)

const openingMessage = "Hello! I'm excited to conduct your interview today. Let's get started with a simple question to build rapport."

// endSentinel matches the phrase the real backend reacts to.
const endSentinel = "end interview"

// questionsBeforeDecision is how many exchanges the scripted interviewer
// runs before it closes the interview on its own.
const questionsBeforeDecision = 6

var scriptedQuestions = []string{
	"Can you tell me about your current role and what you work on day to day?",
	"Which project on your resume are you most proud of, and why?",
	"Walk me through a technical decision you made that you would revisit today.",
	"How do you approach debugging a problem you have never seen before?",
	"Tell me about a time you disagreed with a teammate on a design. How was it resolved?",
	"If you had to scale your last system to ten times the load, where would it break first?",
}

// exchange is one stored question/answer pair, mirroring the summary wire
// format.
type exchange struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp"`
	AudioURL  string `json:"audio_url"`
}

// wireScores uses the backend's snake_case spelling.
type wireScores struct {
	TechnicalDepth float64 `json:"technical_depth"`
	Communication  float64 `json:"communication"`
	ProblemSolving float64 `json:"problem_solving"`
	Total          float64 `json:"total"`
}

// wireDecision deliberately uses the real backend's "not hired" spelling so
// clients must normalize it.
type wireDecision struct {
	Status  string     `json:"status"`
	Reasons string     `json:"reasons"`
	Scores  wireScores `json:"scores"`
}

// Service holds all interview state in memory, keyed by thread id.
type Service struct {
	mu        sync.Mutex
	threads   map[string][]exchange
	decisions map[string]*wireDecision
	audio     map[string][]byte
}

// NewService returns an empty stub backend.
func NewService() *Service {
	return &Service{
		threads:   make(map[string][]exchange),
		decisions: make(map[string]*wireDecision),
		audio:     make(map[string][]byte),
	}
}

// Open starts (or restarts) a session and returns the opening message with
// its audio.
func (s *Service) Open(resumeID string) (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[resumeID]; !ok {
		s.threads[resumeID] = nil
	}
	return openingMessage, s.synthesizeLocked(openingMessage)
}

// Exchange answers one candidate message on the thread. The returned
// decision is nil until the interview ends.
func (s *Service) Exchange(threadID, question string) (answer, audioURL string, decision *wireDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, ok := s.decisions[threadID]; ok {
		// The interview already concluded; repeat the verdict.
		answer = renderDecision(d)
		return answer, s.synthesizeLocked(answer), d
	}

	history := s.threads[threadID]
	ended := strings.EqualFold(strings.TrimSpace(question), endSentinel)

	if !ended && len(history) < questionsBeforeDecision {
		answer = fmt.Sprintf("Got it. %s", scriptedQuestions[len(history)%len(scriptedQuestions)])
		audioURL = s.synthesizeLocked(answer)
		s.threads[threadID] = append(history, exchange{
			Question:  question,
			Answer:    answer,
			Timestamp: time.Now().Format("03:04:05 PM"),
			AudioURL:  audioURL,
		})
		return answer, audioURL, nil
	}

	d := s.scoreLocked(threadID, question)
	s.decisions[threadID] = d
	answer = renderDecision(d)
	audioURL = s.synthesizeLocked(answer)
	s.threads[threadID] = append(history, exchange{
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now().Format("03:04:05 PM"),
		AudioURL:  audioURL,
	})
	return answer, audioURL, d
}

// Summary returns the stored conversation, plus the decision if the
// interview has concluded. An unknown thread gets the default all-50 verdict
// the real backend produces.
func (s *Service) Summary(resumeID string) (*wireDecision, []exchange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.threads[resumeID]
	if !ok || len(history) == 0 {
		if d, decided := s.decisions[resumeID]; decided {
			return d, nil
		}
		return &wireDecision{
			Status:  "not hired",
			Reasons: "No conversation history found to evaluate.",
			Scores:  wireScores{TechnicalDepth: 50, Communication: 50, ProblemSolving: 50, Total: 50},
		}, nil
	}

	out := make([]exchange, len(history))
	copy(out, history)
	return s.decisions[resumeID], out
}

// Audio returns previously synthesized speech by id.
func (s *Service) Audio(audioID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.audio[audioID]
	return data, ok
}

// scoreLocked grades the thread from the candidate's answer lengths. Fully
// deterministic: longer, steadier answers score higher, weighted 40/30/30
// like the real backend.
func (s *Service) scoreLocked(threadID, finalAnswer string) *wireDecision {
	words := 0
	turns := 0
	for _, e := range s.threads[threadID] {
		words += len(strings.Fields(e.Question))
		turns++
	}
	if !strings.EqualFold(strings.TrimSpace(finalAnswer), endSentinel) {
		words += len(strings.Fields(finalAnswer))
		turns++
	}

	avg := 0.0
	if turns > 0 {
		avg = float64(words) / float64(turns)
	}
	grade := func(scale float64) float64 {
		v := math.Round(40 + avg*scale)
		if v > 95 {
			v = 95
		}
		if v < 30 {
			v = 30
		}
		return v
	}

	scores := wireScores{
		TechnicalDepth: grade(2.0),
		Communication:  grade(2.4),
		ProblemSolving: grade(1.8),
	}
	scores.Total = math.Round((scores.TechnicalDepth*0.4+scores.Communication*0.3+scores.ProblemSolving*0.3)*100) / 100

	status := "not hired"
	reasons := "Answers were too brief to demonstrate depth. Expand on concrete decisions and trade-offs next time."
	if scores.Total >= 70 {
		status = "hired"
		reasons = "Consistent, substantive answers across technical and behavioural questions."
	}
	return &wireDecision{Status: status, Reasons: reasons, Scores: scores}
}

// synthesizeLocked fakes TTS with a short tone and returns its URL.
func (s *Service) synthesizeLocked(text string) string {
	id := uuid.NewString()
	s.audio[id] = toneFor(text)
	return "/audio/" + id
}

func renderDecision(d *wireDecision) string {
	verdict := "Not Hired"
	if d.Status == "hired" {
		verdict = "Hired"
	}
	return fmt.Sprintf(
		"Decision: %s. Reasons: %s Score: Technical Depth: %.0f/100, Communication: %.0f/100, Problem-Solving: %.0f/100, Total: %.0f/100.",
		verdict, d.Reasons, d.Scores.TechnicalDepth, d.Scores.Communication, d.Scores.ProblemSolving, d.Scores.Total)
}

// toneFor renders a short sine tone whose pitch depends on the text, so
// distinct responses sound distinct.
func toneFor(text string) []byte {
	freq := 330.0 + float64(len(text)%12)*55.0
	const rate = 16000
	samples := make([]float64, rate/4)
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	wav, err := audio.EncodeWAV(audio.Waveform{SampleRate: rate, Channels: 1, Samples: samples})
	if err != nil {
		return nil
	}
	return wav
}
