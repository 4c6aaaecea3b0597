package stub

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wangxuanyi/hireloop/client/internal/audio"
)

const testResumeID = "1a2b3c4d-5e6f-4a7b-8c9d-0e1f2a3b4c5d"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(NewService()))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp
}

func TestStartRejectsMalformedResumeID(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	resp := doJSON(t, http.MethodPost, srv.URL+"/interview/not-a-uuid", nil, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["detail"] != "Invalid resume_id format. Must be a valid UUID." {
		t.Fatalf("detail = %q", body["detail"])
	}
}

func TestStartReturnsOpeningMessageWithAudio(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	resp := doJSON(t, http.MethodPost, srv.URL+"/interview/"+testResumeID, nil, &body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["initial_message"] != openingMessage {
		t.Fatalf("initial_message = %q", body["initial_message"])
	}
	if !strings.HasPrefix(body["audio_url"], "/audio/") {
		t.Fatalf("audio_url = %q", body["audio_url"])
	}
}

func TestChatRequiresQuestionAndThread(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	resp := doJSON(t, http.MethodPost, srv.URL+"/chat/"+testResumeID,
		map[string]string{"question": "hello"}, &body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if body["detail"] != "question and thread_id are required" {
		t.Fatalf("detail = %q", body["detail"])
	}
}

func TestChatScriptedFlowToDecision(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/interview/"+testResumeID, nil, nil)

	answer := "I spent the last two years building the ingestion pipeline, owning schema evolution and backfill tooling across three teams."
	for i := 0; i < questionsBeforeDecision; i++ {
		var out exchangeResponse
		resp := doJSON(t, http.MethodPost, srv.URL+"/chat/"+testResumeID,
			map[string]string{"question": answer, "thread_id": testResumeID}, &out)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("turn %d status = %d", i, resp.StatusCode)
		}
		if out.Decision != nil {
			t.Fatalf("turn %d carried a premature decision: %+v", i, out.Decision)
		}
		if !strings.HasPrefix(out.Answer, "Got it. ") {
			t.Fatalf("turn %d answer = %q", i, out.Answer)
		}
	}

	var last exchangeResponse
	doJSON(t, http.MethodPost, srv.URL+"/chat/"+testResumeID,
		map[string]string{"question": answer, "thread_id": testResumeID}, &last)
	if last.Decision == nil {
		t.Fatal("final turn carried no decision")
	}
	if last.Decision.Status != "hired" {
		t.Fatalf("status = %q for substantial answers", last.Decision.Status)
	}
	want := last.Decision.Scores.TechnicalDepth*0.4 +
		last.Decision.Scores.Communication*0.3 +
		last.Decision.Scores.ProblemSolving*0.3
	if math.Abs(last.Decision.Scores.Total-want) > 0.01 {
		t.Fatalf("total = %v, want weighted %v", last.Decision.Scores.Total, want)
	}
	if !strings.HasPrefix(last.Answer, "Decision: Hired.") {
		t.Fatalf("verdict text = %q", last.Answer)
	}
}

func TestChatSentinelEndsEarlyWithLowScores(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/interview/"+testResumeID, nil, nil)

	doJSON(t, http.MethodPost, srv.URL+"/chat/"+testResumeID,
		map[string]string{"question": "ok", "thread_id": testResumeID}, nil)

	var out exchangeResponse
	doJSON(t, http.MethodPost, srv.URL+"/chat/"+testResumeID,
		map[string]string{"question": "End Interview", "thread_id": testResumeID}, &out)

	if out.Decision == nil {
		t.Fatal("sentinel did not produce a decision")
	}
	if out.Decision.Status != "not hired" {
		t.Fatalf("status = %q for one-word answers", out.Decision.Status)
	}

	// Once decided, further exchanges repeat the verdict.
	var again exchangeResponse
	doJSON(t, http.MethodPost, srv.URL+"/chat/"+testResumeID,
		map[string]string{"question": "anything", "thread_id": testResumeID}, &again)
	if again.Decision == nil || again.Answer != out.Answer {
		t.Fatalf("repeat verdict mismatch: %q vs %q", again.Answer, out.Answer)
	}
}

func TestVoiceChatDecodesUploadedWAV(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/interview/"+testResumeID, nil, nil)

	samples := make([]float64, 16000) // one second of silence
	wav, err := audio.EncodeWAV(audio.Waveform{SampleRate: 16000, Channels: 1, Samples: samples})
	if err != nil {
		t.Fatalf("EncodeWAV err: %v", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "recording.wav")
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	if _, err := part.Write(wav); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.WriteField("thread_id", testResumeID); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	resp, err := http.Post(srv.URL+"/voice-chat/"+testResumeID, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("voice-chat: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var out exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Question != "[voice answer, 1.0 seconds of audio]" {
		t.Fatalf("transcription marker = %q", out.Question)
	}
	if out.Answer == "" {
		t.Fatal("empty interviewer answer")
	}
}

func TestVoiceChatRejectsGarbageAudio(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "noise.bin")
	part.Write([]byte("definitely not a wav"))
	mw.WriteField("thread_id", testResumeID)
	mw.Close()

	resp, err := http.Post(srv.URL+"/voice-chat/"+testResumeID, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("voice-chat: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSummaryUnknownThreadReturnsDefaultVerdict(t *testing.T) {
	srv := newTestServer(t)

	var out struct {
		Decision     *wireDecision `json:"decision"`
		Conversation []exchange    `json:"conversation"`
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/summary/"+testResumeID, nil, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out.Decision == nil || out.Decision.Status != "not hired" {
		t.Fatalf("decision = %+v", out.Decision)
	}
	if out.Decision.Scores.Total != 50 {
		t.Fatalf("default total = %v", out.Decision.Scores.Total)
	}
	if len(out.Conversation) != 0 {
		t.Fatalf("conversation = %+v", out.Conversation)
	}
}

func TestSummaryMidInterviewHasNullDecision(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/interview/"+testResumeID, nil, nil)
	doJSON(t, http.MethodPost, srv.URL+"/chat/"+testResumeID,
		map[string]string{"question": "my first answer", "thread_id": testResumeID}, nil)

	var out struct {
		Decision     *wireDecision `json:"decision"`
		Conversation []exchange    `json:"conversation"`
	}
	doJSON(t, http.MethodGet, srv.URL+"/summary/"+testResumeID, nil, &out)
	if out.Decision != nil {
		t.Fatalf("decision = %+v, want null mid-interview", out.Decision)
	}
	if len(out.Conversation) != 1 || out.Conversation[0].Question != "my first answer" {
		t.Fatalf("conversation = %+v", out.Conversation)
	}
}

func TestAudioRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	var started map[string]string
	doJSON(t, http.MethodPost, srv.URL+"/interview/"+testResumeID, nil, &started)

	resp, err := http.Get(srv.URL + started["audio_url"])
	if err != nil {
		t.Fatalf("fetch audio: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("content type = %q", ct)
	}

	var header [4]byte
	if _, err := io.ReadFull(resp.Body, header[:]); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(header[:]) != "RIFF" {
		t.Fatalf("body does not start with RIFF: %q", header)
	}
}

func TestAudioUnknownIDReturns404(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/audio/does-not-exist")
	if err != nil {
		t.Fatalf("fetch audio: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
