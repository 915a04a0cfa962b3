package routes

import (
	"encoding/json"
	"net/http"

	"github.com/briangreenhill/voicept/internal/fitness"
)

type profileResponse struct {
	Profile fitness.HealthProfile  `json:"profile"`
	Program fitness.WorkoutProgram `json:"program"`
}

const maxProfileBody = 64 << 10

func (s *Server) handleSubmitProfile(w http.ResponseWriter, r *http.Request) {
	var in fitness.ProfileInput
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProfileBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	h, ok := s.host(w, r)
	if !ok {
		return
	}
	profile, program, err := h.SubmitProfile(r.Context(), in)
	if err != nil {
		writeSessionError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, profileResponse{Profile: profile, Program: program})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	profile, err := h.Profile()
	if err != nil {
		writeError(w, http.StatusNotFound, "no health profile")
		return
	}
	program, err := h.Program()
	if err != nil {
		writeError(w, http.StatusNotFound, "no health profile")
		return
	}
	writeJSON(w, r, http.StatusOK, profileResponse{Profile: profile, Program: program})
}

func (s *Server) handleResetProfile(w http.ResponseWriter, r *http.Request) {
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	if err := h.Reset(r.Context()); err != nil {
		writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	h, ok := s.host(w, r)
	if !ok {
		return
	}
	program, err := h.Program()
	if err != nil {
		writeError(w, http.StatusNotFound, "no health profile")
		return
	}
	writeJSON(w, r, http.StatusOK, program)
}
