package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/briangreenhill/voicept/internal/fitness"
	"github.com/briangreenhill/voicept/internal/narration"
)

// stateResponse is a narration state plus its captions.
type stateResponse struct {
	narration.State
	Captions string `json:"captions,omitempty"`
}

func newStateResponse(st narration.State) stateResponse {
	return stateResponse{State: st, Captions: st.Captions()}
}

func (s *Server) handleGuideState(w http.ResponseWriter, r *http.Request) {
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, newStateResponse(h.Snapshot()))
}

func (s *Server) handleOpenDay(w http.ResponseWriter, r *http.Request) {
	day, ok := fitness.ParseDay(chi.URLParam(r, "day"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown day")
		return
	}
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	st, err := h.PlayDay(day)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, newStateResponse(st))
}

func (s *Server) handleOpenExercise(w http.ResponseWriter, r *http.Request) {
	day, ok := fitness.ParseDay(chi.URLParam(r, "day"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown day")
		return
	}
	exercise, err := strconv.Atoi(chi.URLParam(r, "exercise"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown exercise")
		return
	}
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	st, err := h.PlayExercise(day, exercise)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, newStateResponse(st))
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, "play")
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, "pause")
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.control(w, r, "close")
}

func (s *Server) control(w http.ResponseWriter, r *http.Request, action string) {
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	var (
		st  narration.State
		err error
	)
	switch action {
	case "play":
		st, err = h.Play()
	case "pause":
		st, err = h.Pause()
	default:
		st, err = h.Close()
	}
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newStateResponse(st))
}
