package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/voicept/internal/fitness"
	appmw "github.com/briangreenhill/voicept/internal/http/middleware"
	"github.com/briangreenhill/voicept/internal/narration"
	"github.com/briangreenhill/voicept/internal/session"
)

const sessionKey = "session_id"

type Server struct {
	Router   *chi.Mux
	Sess     *scs.SessionManager
	Sessions *session.Manager
	Logger   zerolog.Logger
}

type ServerOptions struct {
	Sess     *scs.SessionManager
	Sessions *session.Manager
	Logger   zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{Router: r, Sess: opts.Sess, Sessions: opts.Sessions, Logger: opts.Logger}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("Error writing health check response")
		}
	})

	r.Route("/api", func(api chi.Router) {
		// The websocket is hijacked, so it reads the session without saving it.
		api.With(s.loadSession, s.sessionToContext, appmw.RequireSession).Get("/guide/ws", s.handleGuideWS)

		api.Group(func(pr chi.Router) {
			pr.Use(s.Sess.LoadAndSave)
			pr.Use(s.ensureSession)
			pr.Use(s.sessionToContext)
			pr.Use(appmw.RequireSession)

			pr.Post("/profile", s.handleSubmitProfile)
			pr.Get("/profile", s.handleGetProfile)
			pr.Delete("/profile", s.handleResetProfile)
			pr.Get("/program", s.handleGetProgram)

			pr.Get("/guide", s.handleGuideState)
			pr.Post("/guide/days/{day}", s.handleOpenDay)
			pr.Post("/guide/days/{day}/exercises/{exercise}", s.handleOpenExercise)
			pr.Post("/guide/play", s.handlePlay)
			pr.Post("/guide/pause", s.handlePause)
			pr.Post("/guide/close", s.handleClose)
		})
	})

	return s
}

// ensureSession gives every browser a session id on first contact.
func (s *Server) ensureSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Sess.GetString(r.Context(), sessionKey) == "" {
			s.Sess.Put(r.Context(), sessionKey, uuid.NewString())
		}
		next.ServeHTTP(w, r)
	})
}

// loadSession reads the session cookie without wrapping the response writer.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(s.Sess.Cookie.Name); err == nil {
			token = cookie.Value
		}
		ctx, err := s.Sess.Load(r.Context(), token)
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("load session")
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.Sess.GetString(r.Context(), sessionKey); id != "" {
			r = r.WithContext(appmw.WithSessionID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) host(w http.ResponseWriter, r *http.Request) (*session.Host, bool) {
	h, err := s.Sessions.Get(r.Context(), appmw.SessionID(r.Context()))
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("load session host")
		writeError(w, http.StatusInternalServerError, "could not load session")
		return nil, false
	}
	return h, true
}

type errorResponse struct {
	Error  string               `json:"error"`
	Fields []fitness.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error writing response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// writeSessionError maps session errors to status codes. Messages are fixed
// strings; upstream detail stays in the logs.
func writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *fitness.ValidationError
	switch {
	case errors.As(err, &verr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "invalid health profile", Fields: verr.Fields})
	case errors.Is(err, session.ErrNoProfile):
		writeError(w, http.StatusConflict, "submit a health profile first")
	case errors.Is(err, session.ErrRestDay):
		writeError(w, http.StatusConflict, "no guidance is offered on a rest day")
	case errors.Is(err, session.ErrUnknownDay):
		writeError(w, http.StatusNotFound, "unknown day")
	case errors.Is(err, session.ErrUnknownExercise):
		writeError(w, http.StatusNotFound, "unknown exercise")
	case errors.Is(err, narration.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "session closed, retry")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("session request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
