// Package backend speaks the interview backend's HTTP contracts: session
// start, text turn, voice turn, summary, and audio fetch. The backend itself
// (LLM, transcription, scoring) is an opaque collaborator; this package only
// assumes the documented response shapes.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
)

// Client issues requests against one backend base URL. Every call is bounded
// by the configured timeout and aborts cleanly when it elapses.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

// New builds a client for the given base URL, e.g. "http://localhost:8000".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "backend: invalid base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("backend: base url %q must be absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{},
		timeout: timeout,
	}, nil
}

// StartResponse is the session-start payload.
type StartResponse struct {
	Message        string `json:"message"`
	InitialMessage string `json:"initial_message"`
	AudioURL       string `json:"audio_url,omitempty"`
	ResumeContext  string `json:"resume_context,omitempty"`
}

// ExchangeResponse is the shared shape of text and voice turns. Question
// echoes the candidate input (for voice, the server-side transcription);
// Decision is null until the interview ends.
type ExchangeResponse struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	AudioURL string        `json:"audio_url,omitempty"`
	Decision *wireDecision `json:"decision,omitempty"`
}

// SummaryEntry is one question/answer pair of the stored conversation.
type SummaryEntry struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Timestamp string `json:"timestamp,omitempty"`
	AudioURL  string `json:"audio_url,omitempty"`
}

// SummaryResponse reports the stored conversation and, once computed, the
// hiring decision.
type SummaryResponse struct {
	Decision     *wireDecision  `json:"decision"`
	Conversation []SummaryEntry `json:"conversation"`
}

// wireDecision carries the backend's decision spelling; the status string is
// normalized before it leaves this package.
type wireDecision struct {
	Status  string           `json:"status"`
	Reasons string           `json:"reasons"`
	Scores  interview.Scores `json:"scores"`
}

func (w *wireDecision) toModel() *interview.Decision {
	if w == nil {
		return nil
	}
	return &interview.Decision{
		Status:  interview.NormalizeStatus(w.Status),
		Reasons: w.Reasons,
		Scores:  w.Scores,
	}
}

// Decision converts the wire decision of an exchange, or nil.
func (r *ExchangeResponse) DecisionModel() *interview.Decision {
	return r.Decision.toModel()
}

// DecisionModel converts the wire decision of a summary, or nil.
func (r *SummaryResponse) DecisionModel() *interview.Decision {
	return r.Decision.toModel()
}

// StartSession opens a session for the resume id and returns the
// interviewer's opening message.
func (c *Client) StartSession(ctx context.Context, resumeID string) (*StartResponse, error) {
	var out StartResponse
	if err := c.doJSON(ctx, http.MethodPost, "/interview/"+resumeID, nil, &out); err != nil {
		return nil, err
	}
	if out.InitialMessage == "" {
		return nil, &TransportError{Op: "start", Detail: "response missing initial_message"}
	}
	return &out, nil
}

// SendText submits one text turn on the session thread.
func (c *Client) SendText(ctx context.Context, resumeID, question string) (*ExchangeResponse, error) {
	body := map[string]string{
		"question":  question,
		"thread_id": resumeID,
	}
	var out ExchangeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/chat/"+resumeID, body, &out); err != nil {
		return nil, err
	}
	if err := out.validate("chat"); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendVoice submits an encoded WAV recording as a multipart voice turn. The
// returned Question field holds the backend's transcription of the audio.
func (c *Client) SendVoice(ctx context.Context, resumeID string, wav []byte) (*ExchangeResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "recording.wav")
	if err != nil {
		return nil, errors.Wrap(err, "backend: build multipart")
	}
	if _, err := part.Write(wav); err != nil {
		return nil, errors.Wrap(err, "backend: write audio part")
	}
	if err := w.WriteField("thread_id", resumeID); err != nil {
		return nil, errors.Wrap(err, "backend: write thread_id")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "backend: close multipart")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/voice-chat/"+resumeID), &buf)
	if err != nil {
		return nil, errors.Wrap(err, "backend: voice request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out ExchangeResponse
	if err := c.send(req, "voice", &out); err != nil {
		return nil, err
	}
	if err := out.validate("voice"); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchSummary retrieves the stored conversation and decision, if any.
func (c *Client) FetchSummary(ctx context.Context, resumeID string) (*SummaryResponse, error) {
	var out SummaryResponse
	if err := c.doJSON(ctx, http.MethodGet, "/summary/"+resumeID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchAudio downloads synthesized speech. audioURL may be relative
// ("/audio/<id>") or absolute.
func (c *Client) FetchAudio(ctx context.Context, audioURL string) ([]byte, error) {
	ref, err := url.Parse(audioURL)
	if err != nil {
		return nil, errors.Wrap(err, "backend: invalid audio url")
	}
	target := c.baseURL.ResolveReference(ref).String()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "backend: audio request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify("audio", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeFailure("audio", resp)
	}
	return io.ReadAll(resp.Body)
}

func (r *ExchangeResponse) validate(op string) error {
	if r.Question == "" || r.Answer == "" {
		return &TransportError{Op: op, Detail: "response missing question or answer"}
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// doJSON performs one JSON round trip with the client timeout applied.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "backend: encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return errors.Wrapf(err, "backend: %s request", method)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, path, out)
}

func (c *Client) send(req *http.Request, op string, out any) error {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("component", "backend").
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeFailure(op, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Detail: fmt.Sprintf("malformed response body: %v", err)}
	}
	return nil
}

// decodeFailure turns a non-2xx response into a TransportError carrying the
// backend's detail string when one is present.
func decodeFailure(op string, resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Detail == "" {
		payload.Detail = http.StatusText(resp.StatusCode)
	}
	return &TransportError{Op: op, Status: resp.StatusCode, Detail: payload.Detail}
}
