package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wangxuanyi/hireloop/client/internal/audio"
	"github.com/wangxuanyi/hireloop/client/internal/backend"
	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
	"github.com/wangxuanyi/hireloop/client/internal/store"
)

// EndSentinel ends the interview when either side's content equals it,
// case-insensitively.
const EndSentinel = "end interview"

// Phase is the orchestrator's lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInvalid
	PhaseStarting
	PhaseActive
	PhaseEnding
	PhaseAnalyzing
	PhaseConcluded
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInvalid:
		return "invalid"
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhaseEnding:
		return "ending"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseConcluded:
		return "concluded"
	default:
		return "unknown"
	}
}

// ErrNotActive rejects input outside the active phase, including while the
// decision is being computed.
var ErrNotActive = errors.New("session: interview is not accepting input")

// EventKind tags orchestrator events.
type EventKind int

const (
	EventPhase EventKind = iota
	EventTurn
	EventTick
	EventNotice
	EventDecision
)

// Event is one item of the single source of truth for what should be on
// screen.
type Event struct {
	Kind      EventKind
	Phase     Phase
	Turn      interview.Turn
	Remaining int
	Err       error
	Decision  *interview.Decision
}

// Backend is the slice of the HTTP client the orchestrator consumes.
type Backend interface {
	StartSession(ctx context.Context, resumeID string) (*backend.StartResponse, error)
	SendText(ctx context.Context, resumeID, question string) (*backend.ExchangeResponse, error)
	SendVoice(ctx context.Context, resumeID string, wav []byte) (*backend.ExchangeResponse, error)
	FetchSummary(ctx context.Context, resumeID string) (*backend.SummaryResponse, error)
	FetchAudio(ctx context.Context, audioURL string) ([]byte, error)
}

// VoiceRecorder is the capture cycle as the orchestrator sees it.
type VoiceRecorder interface {
	Start(ctx context.Context) error
	Stop() ([]byte, error)
	State() audio.State
}

// Config carries the per-session parameters.
type Config struct {
	ResumeID      string
	BudgetSeconds int
	Muted         bool
}

// Orchestrator composes clock, log, audio and resolver into the interview
// lifecycle state machine. All backend calls go through it and it is the
// single writer of the persisted session state.
type Orchestrator struct {
	cfg      Config
	backend  Backend
	store    store.Store
	recorder VoiceRecorder
	player   audio.Player
	resolver *Resolver
	log      *ConversationLog

	mu       sync.Mutex
	phase    Phase
	clock    *Clock
	decision *interview.Decision
	cancel   context.CancelFunc

	events chan Event
}

// New assembles an orchestrator. The recorder and player are injected
// capabilities so tests can substitute fakes.
func New(cfg Config, be Backend, st store.Store, rec VoiceRecorder, player audio.Player) *Orchestrator {
	if player == nil {
		player = audio.NopPlayer{}
	}
	return &Orchestrator{
		cfg:      cfg,
		backend:  be,
		store:    st,
		recorder: rec,
		player:   player,
		resolver: NewResolver(st, be),
		log:      NewConversationLog(),
		phase:    PhaseUninitialized,
		events:   make(chan Event, 64),
	}
}

// Events is the stream the UI renders from. Events are dropped rather than
// blocking the session when the consumer lags.
func (o *Orchestrator) Events() <-chan Event { return o.events }

// Phase reports the current lifecycle state.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Decision returns the terminal verdict once concluded.
func (o *Orchestrator) Decision() *interview.Decision {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.decision
}

// Turns snapshots the conversation log.
func (o *Orchestrator) Turns() []interview.Turn { return o.log.Snapshot() }

// Start validates the resume id and brings the session up. A persisted
// decision short-circuits everything, including the clock, straight to the
// concluded view. A failed session-start request leaves the session in a
// degraded active state from which the user may retry.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := interview.ValidateResumeID(o.cfg.ResumeID); err != nil {
		o.setPhase(PhaseInvalid)
		return err
	}

	if d, ok, err := o.store.GetDecision(ctx, o.cfg.ResumeID); err != nil {
		return err
	} else if ok {
		o.mu.Lock()
		o.decision = &d
		o.mu.Unlock()
		o.setPhase(PhaseConcluded)
		o.emit(Event{Kind: EventDecision, Decision: &d})
		return nil
	}

	o.setPhase(PhaseStarting)

	runCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.cancel = cancel
	o.mu.Unlock()

	o.restoreConversation(ctx)

	clock := NewClock(o.store)
	remaining, err := clock.Initialize(ctx, o.cfg.ResumeID, o.cfg.BudgetSeconds)
	if err != nil {
		cancel()
		return err
	}
	o.mu.Lock()
	o.clock = clock
	o.mu.Unlock()
	o.emit(Event{Kind: EventTick, Remaining: remaining})

	// Budget already exhausted before this process came up: there is no
	// session to run, only a decision to resolve.
	if remaining == 0 {
		o.conclude(ctx, nil)
		return nil
	}
	go o.watchClock(runCtx, clock)

	resp, err := o.backend.StartSession(ctx, o.cfg.ResumeID)
	if err != nil {
		// Degraded active: the banner shows the failure but the user can
		// still try to communicate.
		o.notice(err)
		o.setPhaseIf(PhaseStarting, PhaseActive)
		return nil
	}

	// The clock may have expired while the start request was in flight; a
	// conclusion in progress must never be regressed to active.
	if !o.setPhaseIf(PhaseStarting, PhaseActive) {
		return nil
	}

	opening := interview.Turn{
		Speaker:   interview.SpeakerInterviewer,
		Content:   resp.InitialMessage,
		Timestamp: displayTimestamp(time.Now()),
		AudioURL:  resp.AudioURL,
	}
	o.log.Append(opening)
	o.emit(Event{Kind: EventTurn, Turn: opening})
	o.play(runCtx, resp.AudioURL)

	return nil
}

// SendText submits one candidate message. The candidate turn is appended
// before the interviewer's reply regardless of both arriving from one
// request.
func (o *Orchestrator) SendText(ctx context.Context, content string) error {
	if err := o.requireActive(); err != nil {
		return err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("session: empty message")
	}

	candidate := interview.Turn{
		Speaker:   interview.SpeakerCandidate,
		Content:   content,
		Timestamp: displayTimestamp(time.Now()),
	}
	o.log.Append(candidate)
	o.emit(Event{Kind: EventTurn, Turn: candidate})

	resp, err := o.backend.SendText(ctx, o.cfg.ResumeID, content)
	if err != nil {
		o.notice(err)
		return err
	}

	o.appendReply(ctx, resp)
	o.checkEnd(ctx, content, resp)
	return nil
}

// StartRecording begins a voice-capture cycle. Device denial surfaces as a
// notice and is not retried automatically.
func (o *Orchestrator) StartRecording(ctx context.Context) error {
	if err := o.requireActive(); err != nil {
		return err
	}
	if err := o.recorder.Start(ctx); err != nil {
		o.notice(err)
		return err
	}
	return nil
}

// StopRecording finishes the capture cycle, encodes the recording and
// submits it as a voice turn. The transcribed candidate turn is appended
// strictly before the interviewer reply from the same response.
func (o *Orchestrator) StopRecording(ctx context.Context) error {
	wav, err := o.recorder.Stop()
	if err != nil {
		o.notice(err)
		return err
	}
	if err := o.requireActive(); err != nil {
		return err
	}

	resp, err := o.backend.SendVoice(ctx, o.cfg.ResumeID, wav)
	if err != nil {
		o.notice(err)
		return err
	}

	candidate := interview.Turn{
		Speaker:   interview.SpeakerCandidate,
		Content:   resp.Question,
		Timestamp: displayTimestamp(time.Now()),
	}
	interviewer := interview.Turn{
		Speaker:   interview.SpeakerInterviewer,
		Content:   resp.Answer,
		Timestamp: displayTimestamp(time.Now()),
		AudioURL:  resp.AudioURL,
	}
	o.log.AppendExchange(candidate, interviewer)
	o.emit(Event{Kind: EventTurn, Turn: candidate})
	o.emit(Event{Kind: EventTurn, Turn: interviewer})
	o.play(ctx, resp.AudioURL)

	o.checkEnd(ctx, resp.Question, resp)
	return nil
}

// EndInterview ends the session on the user's explicit request.
func (o *Orchestrator) EndInterview(ctx context.Context) error {
	if err := o.requireActive(); err != nil {
		return err
	}
	o.conclude(ctx, nil)
	return nil
}

// Reset tears down all in-memory state, clears the persisted keys, and
// re-enters starting with a freshly seeded clock and a fresh session-start
// call.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	if o.phase == PhaseInvalid {
		o.mu.Unlock()
		return interview.ErrInvalidResumeID
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.clock != nil {
		o.clock.Stop()
		o.clock = nil
	}
	o.decision = nil
	o.phase = PhaseUninitialized
	o.mu.Unlock()

	o.log.Clear()
	if err := o.store.ClearDecision(ctx, o.cfg.ResumeID); err != nil {
		return err
	}
	if err := o.store.ClearClock(ctx, o.cfg.ResumeID); err != nil {
		return err
	}
	return o.Start(ctx)
}

// Close cancels background work without touching persisted state.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.clock != nil {
		o.clock.Stop()
	}
}

// restoreConversation rebuilds the log from the backend's stored
// conversation after a restart, as long as no decision exists yet.
// Best-effort: a failed fetch just leaves the log empty.
func (o *Orchestrator) restoreConversation(ctx context.Context) {
	summary, err := o.backend.FetchSummary(ctx, o.cfg.ResumeID)
	if err != nil {
		log.Debug().Str("component", "session").Err(err).Msg("conversation restore skipped")
		return
	}
	if summary.DecisionModel() != nil {
		return
	}
	for _, entry := range summary.Conversation {
		candidate := interview.Turn{
			Speaker:   interview.SpeakerCandidate,
			Content:   entry.Question,
			Timestamp: entry.Timestamp,
		}
		interviewer := interview.Turn{
			Speaker:   interview.SpeakerInterviewer,
			Content:   entry.Answer,
			Timestamp: entry.Timestamp,
			AudioURL:  entry.AudioURL,
		}
		o.log.AppendExchange(candidate, interviewer)
	}
}

func (o *Orchestrator) appendReply(ctx context.Context, resp *backend.ExchangeResponse) {
	turn := interview.Turn{
		Speaker:   interview.SpeakerInterviewer,
		Content:   resp.Answer,
		Timestamp: displayTimestamp(time.Now()),
		AudioURL:  resp.AudioURL,
	}
	o.log.Append(turn)
	o.emit(Event{Kind: EventTurn, Turn: turn})
	o.play(ctx, resp.AudioURL)
}

// checkEnd applies the end-of-interview triggers: a non-null decision in the
// response, or either side's content matching the sentinel phrase.
func (o *Orchestrator) checkEnd(ctx context.Context, candidateContent string, resp *backend.ExchangeResponse) {
	if d := resp.DecisionModel(); d != nil {
		o.conclude(ctx, d)
		return
	}
	if matchesSentinel(candidateContent) || matchesSentinel(resp.Answer) {
		o.conclude(ctx, nil)
	}
}

// conclude drives ending -> analyzing -> concluded. Re-entrant calls are
// no-ops; the resolver's fast path guarantees the persisted decision is
// written once.
func (o *Orchestrator) conclude(ctx context.Context, preset *interview.Decision) {
	o.mu.Lock()
	if o.phase == PhaseEnding || o.phase == PhaseAnalyzing || o.phase == PhaseConcluded {
		o.mu.Unlock()
		return
	}
	o.phase = PhaseEnding
	clock := o.clock
	o.mu.Unlock()
	o.emit(Event{Kind: EventPhase, Phase: PhaseEnding})

	if clock != nil {
		clock.Stop()
	}
	o.setPhase(PhaseAnalyzing)

	d, err := o.resolver.ResolveWith(ctx, o.cfg.ResumeID, preset)
	if err != nil {
		// Only cancellation or a store failure lands here; the resolver
		// handles backend failure with the fallback decision.
		o.notice(err)
		return
	}

	o.mu.Lock()
	o.decision = &d
	o.mu.Unlock()
	o.setPhase(PhaseConcluded)
	o.emit(Event{Kind: EventDecision, Decision: &d})
}

func (o *Orchestrator) watchClock(ctx context.Context, clock *Clock) {
	for {
		select {
		case <-ctx.Done():
			return
		case remaining := <-clock.Ticks():
			o.emit(Event{Kind: EventTick, Remaining: remaining})
		case <-clock.Expired():
			o.emit(Event{Kind: EventTick, Remaining: 0})
			o.conclude(ctx, nil)
			return
		}
	}
}

// play fetches and plays synthesized speech asynchronously. Muted output or
// playback failure never affects the session.
func (o *Orchestrator) play(ctx context.Context, audioURL string) {
	if o.cfg.Muted || audioURL == "" {
		return
	}
	go func() {
		data, err := o.backend.FetchAudio(ctx, audioURL)
		if err != nil {
			log.Debug().Str("component", "session").Err(err).Msg("audio fetch failed")
			return
		}
		if err := o.player.Play(ctx, data); err != nil {
			log.Debug().Str("component", "session").Err(err).Msg("playback failed")
		}
	}()
}

func (o *Orchestrator) requireActive() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseActive {
		return ErrNotActive
	}
	return nil
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
	o.emit(Event{Kind: EventPhase, Phase: p})
}

// setPhaseIf transitions only when the phase is still the expected one, so a
// slow request result cannot overwrite a transition that happened meanwhile.
func (o *Orchestrator) setPhaseIf(expect, next Phase) bool {
	o.mu.Lock()
	if o.phase != expect {
		o.mu.Unlock()
		return false
	}
	o.phase = next
	o.mu.Unlock()
	o.emit(Event{Kind: EventPhase, Phase: next})
	return true
}

func (o *Orchestrator) notice(err error) {
	o.emit(Event{Kind: EventNotice, Err: err})
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
	}
}

func matchesSentinel(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), EndSentinel)
}
