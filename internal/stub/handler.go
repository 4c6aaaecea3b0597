package stub

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wangxuanyi/hireloop/client/internal/audio"
	"github.com/wangxuanyi/hireloop/client/internal/model/interview"
	"github.com/wangxuanyi/hireloop/client/pkg/utils"
)

// Handler exposes the stub backend over the real backend's routes.
type Handler struct {
	svc *Service
}

// NewHandler wraps the service.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the five interview endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/interview/{resumeID}", h.handleStart)
	r.Post("/chat/{resumeID}", h.handleChat)
	r.Post("/voice-chat/{resumeID}", h.handleVoiceChat)
	r.Get("/summary/{resumeID}", h.handleSummary)
	r.Get("/audio/{audioID}", h.handleAudio)
}

// exchangeResponse mirrors the chat/voice wire shape; decision stays null
// until the interview ends.
type exchangeResponse struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	AudioURL string        `json:"audio_url"`
	Decision *wireDecision `json:"decision"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	resumeID, ok := h.requireResumeID(w, r)
	if !ok {
		return
	}

	message, audioURL := h.svc.Open(resumeID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":         "Interview session started",
		"initial_message": message,
		"audio_url":       audioURL,
	})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireResumeID(w, r); !ok {
		return
	}

	var payload struct {
		Question string `json:"question"`
		ThreadID string `json:"thread_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Question == "" || payload.ThreadID == "" {
		utils.RespondDetail(w, http.StatusBadRequest, "question and thread_id are required")
		return
	}

	answer, audioURL, decision := h.svc.Exchange(payload.ThreadID, payload.Question)
	utils.RespondJSON(w, http.StatusOK, exchangeResponse{
		Question: payload.Question,
		Answer:   answer,
		AudioURL: audioURL,
		Decision: decision,
	})
}

func (h *Handler) handleVoiceChat(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireResumeID(w, r); !ok {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	threadID := r.FormValue("thread_id")
	if threadID == "" {
		utils.RespondDetail(w, http.StatusBadRequest, "thread_id is required")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "failed to read audio file")
		return
	}
	wave, err := audio.DecodeWAV(data)
	if err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "failed to process audio file: "+err.Error())
		return
	}

	// No transcription model here; stand in with a deterministic marker the
	// interviewer script can still respond to.
	question := fmt.Sprintf("[voice answer, %.1f seconds of audio]", wave.Duration())

	answer, audioURL, decision := h.svc.Exchange(threadID, question)
	utils.RespondJSON(w, http.StatusOK, exchangeResponse{
		Question: question,
		Answer:   answer,
		AudioURL: audioURL,
		Decision: decision,
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	resumeID, ok := h.requireResumeID(w, r)
	if !ok {
		return
	}

	decision, conversation := h.svc.Summary(resumeID)
	if conversation == nil {
		conversation = []exchange{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"decision":     decision,
		"conversation": conversation,
	})
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	audioID := chi.URLParam(r, "audioID")
	data, ok := h.svc.Audio(audioID)
	if !ok {
		utils.RespondDetail(w, http.StatusNotFound, "Audio file not found")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) requireResumeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	resumeID := chi.URLParam(r, "resumeID")
	if err := interview.ValidateResumeID(resumeID); err != nil {
		utils.RespondDetail(w, http.StatusBadRequest, "Invalid resume_id format. Must be a valid UUID.")
		return "", false
	}
	return resumeID, true
}
