package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/domain"
	"github.com/hamed0406/statechecker/internal/httpapi/middleware"
	"github.com/hamed0406/statechecker/internal/repo"
	"github.com/hamed0406/statechecker/internal/scheduler"
)

// Pinger reports whether the state store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusSource exposes what the scheduler saw last.
type StatusSource interface {
	Snapshot() []domain.Evaluation
	State() scheduler.State
}

// Limits are requests per minute and burst per client, for each key tier.
type Limits struct {
	PublicRPM   int
	PublicBurst int
	AdminRPM    int
	AdminBurst  int
}

type Server struct {
	Logger   *zap.Logger
	Registry repo.Registry
	Status   StatusSource
	// Health is pinged by /healthz when set.
	Health Pinger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Keys    middleware.Keys
	Limits  Limits
	Now     func() time.Time
}

func NewServer(l *zap.Logger, reg repo.Registry, status StatusSource) *Server {
	return &Server{
		Logger:   l,
		Registry: reg,
		Status:   status,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", s.handleHealth)
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.Limits.PublicRPM, s.Limits.PublicBurst))
		r.Use(middleware.RequireAny(s.Keys))
		r.Post("/v1/heartbeat", s.handleHeartbeat)
		r.Post("/v1/backupcheck", s.handleBackupCheck)
		r.Get("/api/status", s.handleStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(s.Limits.AdminRPM, s.Limits.AdminBurst))
		r.Use(middleware.RequireAdmin(s.Keys))
		r.Post("/api/tools", s.handleRegisterTool)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.Health.Ping(ctx); err != nil {
			s.Logger.Warn("health_store_unreachable", zap.Error(err))
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type heartbeatPayload struct {
	Name string `json:"name"`
}

func (p heartbeatPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
	)
}

// handleHeartbeat records an alive message. The receive time is stored, not
// anything the client claims.
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var p heartbeatPayload
	if !decode(w, r, &p) {
		return
	}
	err := s.Registry.TouchHeartbeat(r.Context(), p.Name, s.Now())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown tool")
		return
	case err != nil:
		s.Logger.Error("heartbeat_store_failed", zap.String("name", p.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store heartbeat")
		return
	}
	s.Logger.Debug("heartbeat_received", zap.String("name", p.Name))
	w.WriteHeader(http.StatusNoContent)
}

type toolPayload struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	FrequencyMinutes int    `json:"frequency_minutes"`
	ToleranceSeconds int    `json:"tolerance_seconds"`
}

func (p toolPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.FrequencyMinutes, validation.Required, validation.Min(1)),
		validation.Field(&p.ToleranceSeconds, validation.Min(0)),
	)
}

func (s *Server) handleRegisterTool(w http.ResponseWriter, r *http.Request) {
	var p toolPayload
	if !decode(w, r, &p) {
		return
	}
	h := domain.HeartbeatSubject{
		Name:             p.Name,
		Description:      p.Description,
		FrequencyMinutes: p.FrequencyMinutes,
		ToleranceSeconds: p.ToleranceSeconds,
		LastSeenAt:       s.Now(),
	}
	if err := s.Registry.RegisterHeartbeat(r.Context(), h); err != nil {
		s.Logger.Error("tool_register_failed", zap.String("name", p.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not register tool")
		return
	}
	s.Logger.Info("tool_registered",
		zap.String("name", p.Name),
		zap.Int("frequency_minutes", p.FrequencyMinutes),
	)
	writeJSON(w, http.StatusCreated, h)
}

type backupPayload struct {
	Name             string    `json:"name"`
	Token            string    `json:"token"`
	FrequencyMinutes int       `json:"frequency_minutes"`
	CreatedAt        time.Time `json:"created_at"`
	Checksum         string    `json:"checksum"`
	Description      string    `json:"description"`
}

func (p backupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.FrequencyMinutes, validation.Required, validation.Min(1)),
		validation.Field(&p.CreatedAt, validation.Required),
	)
}

// handleBackupCheck stores the newest artifact a backup job reports about
// itself. An older created_at than the stored one leaves the artifact as is.
func (s *Server) handleBackupCheck(w http.ResponseWriter, r *http.Request) {
	var p backupPayload
	if !decode(w, r, &p) {
		return
	}
	b := domain.BackupSubject{
		Name:                       p.Name,
		SourceToken:                p.Token,
		FrequencyMinutes:           p.FrequencyMinutes,
		MostRecentArtifactAt:       p.CreatedAt.UTC(),
		MostRecentArtifactChecksum: p.Checksum,
		Description:                p.Description,
	}
	if err := s.Registry.ReportBackup(r.Context(), b); err != nil {
		s.Logger.Error("backup_report_failed", zap.String("name", p.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store backup report")
		return
	}
	s.Logger.Debug("backup_reported", zap.String("name", p.Name), zap.Time("created_at", b.MostRecentArtifactAt))
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Tick        int                 `json:"tick"`
	LastTickAt  *time.Time          `json:"last_tick_at,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
	Evaluations []domain.Evaluation `json:"evaluations"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Status.State()
	resp := statusResponse{
		Tick:        st.Tick,
		LastError:   st.LastError,
		Evaluations: s.Status.Snapshot(),
	}
	if !st.LastTickAt.IsZero() {
		resp.LastTickAt = &st.LastTickAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return false
	}
	if err := v.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
