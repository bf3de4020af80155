// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/saas-backend/internal/auth"
	"github.com/carterperez-dev/templates/saas-backend/internal/core"
	"github.com/carterperez-dev/templates/saas-backend/internal/middleware"
	"github.com/carterperez-dev/templates/saas-backend/internal/user"
)

// SessionRevoker ends every session a user holds.
type SessionRevoker interface {
	EndAllSessions(
		ctx context.Context,
		userID string,
		reason auth.RevokeReason,
	) (int64, error)
}

type Impersonator interface {
	Impersonate(
		ctx context.Context,
		actor *middleware.AccessTokenClaims,
		targetID string,
	) (*auth.ImpersonationResponse, error)
	StopImpersonating(
		ctx context.Context,
		claims *middleware.AccessTokenClaims,
	) (*auth.AccessTokenResponse, error)
}

type UserModerator interface {
	Ban(
		ctx context.Context,
		actorID, targetID, reason string,
		expiresAt *time.Time,
	) (*user.User, error)
	Unban(ctx context.Context, targetID string) (*user.User, error)
	Stats(ctx context.Context) (*user.Stats, error)
}

type Handler struct {
	dbStats      func() sql.DBStats
	redisStats   func() *redis.PoolStats
	redisPing    func(ctx context.Context) error
	dbPing       func(ctx context.Context) error
	sessions     SessionRevoker
	impersonator Impersonator
	users        UserModerator
	userRoutes   func(r chi.Router)
	validator    *validator.Validate
	logger       *slog.Logger
}

// HandlerConfig wires the admin handler. Impersonation routes are only
// mounted when Impersonator is set; UserRoutes mounts further handlers
// under /admin/users.
type HandlerConfig struct {
	DBStats      func() sql.DBStats
	RedisStats   func() *redis.PoolStats
	RedisPing    func(ctx context.Context) error
	DBPing       func(ctx context.Context) error
	Sessions     SessionRevoker
	Impersonator Impersonator
	Users        UserModerator
	UserRoutes   func(r chi.Router)
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:      cfg.DBStats,
		redisStats:   cfg.RedisStats,
		redisPing:    cfg.RedisPing,
		dbPing:       cfg.DBPing,
		sessions:     cfg.Sessions,
		impersonator: cfg.Impersonator,
		users:        cfg.Users,
		userRoutes:   cfg.UserRoutes,
		validator:    validator.New(validator.WithRequiredStructEnabled()),
		logger:       slog.Default(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)

		// An impersonated token carries the target's role, so ending the
		// impersonation cannot sit behind the admin check.
		if h.impersonator != nil {
			r.Delete("/impersonation", h.StopImpersonating)
		}

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Get("/stats", h.GetSystemStats)
			r.Get("/stats/db", h.GetDatabaseStats)
			r.Get("/stats/redis", h.GetRedisStats)
			r.Get("/stats/runtime", h.GetRuntimeStats)

			r.Route("/users", func(r chi.Router) {
				r.Get("/stats", h.GetUserStats)
				r.Post("/{userID}/ban", h.BanUser)
				r.Delete("/{userID}/ban", h.UnbanUser)
				r.Delete("/{userID}/sessions", h.RevokeUserSessions)
				if h.impersonator != nil {
					r.Post("/{userID}/impersonate", h.Impersonate)
				}

				if h.userRoutes != nil {
					h.userRoutes(r)
				}
			})
		})
	})
}

func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.users.Stats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}

// BanUser suspends the target and revokes all of their sessions so the ban
// takes effect before the next token refresh.
func (h *Handler) BanUser(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	targetID := chi.URLParam(r, "userID")

	var req user.BanUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	banned, err := h.users.Ban(r.Context(), actorID, targetID, req.Reason, req.ExpiresAt)
	if err != nil {
		writeModerationError(w, err)
		return
	}

	ended, err := h.sessions.EndAllSessions(r.Context(), targetID, auth.RevokeBanned)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "ban session revocation failed",
			"target_id", targetID,
			"error", err,
		)
		core.InternalServerError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user banned",
		"audit", true,
		"actor_id", actorID,
		"target_id", targetID,
		"sessions_ended", ended,
	)

	core.OK(w, user.ToUserResponse(banned))
}

func (h *Handler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	unbanned, err := h.users.Unban(r.Context(), targetID)
	if err != nil {
		writeModerationError(w, err)
		return
	}

	core.OK(w, user.ToUserResponse(unbanned))
}

func (h *Handler) RevokeUserSessions(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userID")

	ended, err := h.sessions.EndAllSessions(r.Context(), targetID, auth.RevokeAdmin)
	if err != nil {
		writeModerationError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "user sessions revoked",
		"audit", true,
		"actor_id", middleware.GetUserID(r.Context()),
		"target_id", targetID,
		"sessions_ended", ended,
	)

	core.NoContent(w)
}

func (h *Handler) Impersonate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetClaims(r.Context())
	targetID := chi.URLParam(r, "userID")

	resp, err := h.impersonator.Impersonate(r.Context(), actor, targetID)
	if err != nil {
		writeImpersonationError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "impersonation started",
		"audit", true,
		"actor_id", actor.UserID,
		"target_id", targetID,
		"expires_at", resp.Token.ExpiresAt,
	)

	core.Created(w, resp)
}

func (h *Handler) StopImpersonating(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	resp, err := h.impersonator.StopImpersonating(r.Context(), claims)
	if err != nil {
		writeImpersonationError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "impersonation ended",
		"audit", true,
		"actor_id", claims.ImpersonatedBy,
		"target_id", claims.UserID,
	)

	core.OK(w, resp)
}

func writeImpersonationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "")
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, auth.ErrImpersonationDenied):
		core.Forbidden(w, "this user cannot be impersonated by you")
	case errors.Is(err, auth.ErrNotImpersonating):
		core.BadRequest(w, "not an impersonated session")
	case errors.Is(err, core.ErrForbidden), errors.Is(err, auth.ErrUserBanned):
		core.Forbidden(w, "impersonating admin no longer has access")
	default:
		core.InternalServerError(w, err)
	}
}

func writeModerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "this user cannot be moderated by you")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, "ban reason is required and expiry must be in the future")
	default:
		core.InternalServerError(w, err)
	}
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealthy := true
	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			dbHealthy = false
		}
	}

	redisHealthy := true
	if h.redisPing != nil {
		if err := h.redisPing(ctx); err != nil {
			redisHealthy = false
		}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := SystemStatsResponse{
		Database: DatabaseStatus{
			Healthy: dbHealthy,
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: redisHealthy,
			Stats:   h.getRedisStats(),
		},
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
			MemAlloc:     memStats.Alloc,
			MemSys:       memStats.Sys,
			NumGC:        memStats.NumGC,
		},
	}

	core.OK(w, response)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getDBStats())
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.getRedisStats())
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	response := RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}

	core.OK(w, response)
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
		MaxIdleClosed:      stats.MaxIdleClosed,
		MaxIdleTimeClosed:  stats.MaxIdleTimeClosed,
		MaxLifetimeClosed:  stats.MaxLifetimeClosed,
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxIdleTimeClosed  int64  `json:"max_idle_time_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
	StaleConns uint32 `json:"stale_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
