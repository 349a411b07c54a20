package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/deadlockdevs/warden/automod/engine"
	"github.com/deadlockdevs/warden/automod/mutestore"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	slogecho "github.com/samber/slog-echo"
)

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
	Version string `json:"version,omitempty"`
}

type MuteListResponse struct {
	Mutes []mutestore.MuteEntry `json:"mutes"`
}

type WarnRecordView struct {
	ActorID string `json:"actor,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason"`
	At      string `json:"at"`
}

type WarnListResponse struct {
	GuildID string           `json:"guildId"`
	UserID  string           `json:"userId"`
	Count   int              `json:"count"`
	Warns   []WarnRecordView `json:"warns"`
}

// Admin endpoints backing the operator tooling. Read-mostly; the only mutation is a settings reload.
type adminAPI struct {
	engine *engine.Engine
	mutes  interface {
		List(guildID string) []mutestore.MuteEntry
	}
	reload func() *engine.Settings
	// defaults to the global prometheus registry
	registerer prometheus.Registerer
}

func (s *Server) newAdminHandler(password string) http.Handler {
	api := &adminAPI{
		engine: s.engine,
		mutes:  s.ledger,
		reload: s.ReloadSettings,
	}
	return api.echo(s.logger, password)
}

func (a *adminAPI) echo(logger *slog.Logger, password string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "warden_admin",
		Registerer: a.registerer,
	}))
	e.Use(middleware.BodyLimit("64K"))

	e.GET("/_health", a.HandleHealthCheck)

	authed := e.Group("/admin")
	if password != "" {
		authed.Use(middleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(password)) == 1, nil
		}))
	}
	authed.GET("/settings", a.HandleGetSettings)
	authed.POST("/settings/reload", a.HandleReloadSettings)
	authed.GET("/mutes", a.HandleListMutes)
	authed.GET("/warns/:guild/:user", a.HandleListWarns)
	return e
}

func (a *adminAPI) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, GenericStatus{Daemon: "warden", Status: "ok", Version: versioninfo.Short()})
}

func (a *adminAPI) HandleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, a.engine.Settings())
}

func (a *adminAPI) HandleReloadSettings(c echo.Context) error {
	settings := a.reload()
	return c.JSON(http.StatusOK, settings)
}

// Armed mutes, soonest expiry first. Optional "guild" query parameter filters to one guild.
func (a *adminAPI) HandleListMutes(c echo.Context) error {
	return c.JSON(http.StatusOK, MuteListResponse{Mutes: a.mutes.List(c.QueryParam("guild"))})
}

func (a *adminAPI) HandleListWarns(c echo.Context) error {
	guildID := c.Param("guild")
	userID := c.Param("user")
	warns, err := a.engine.Warnings(c.Request().Context(), guildID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read warns").SetInternal(err)
	}
	out := WarnListResponse{GuildID: guildID, UserID: userID, Count: len(warns), Warns: []WarnRecordView{}}
	for _, w := range warns {
		out.Warns = append(out.Warns, WarnRecordView{
			ActorID: w.ActorID,
			Rule:    w.Rule,
			Reason:  w.Reason,
			At:      time.UnixMilli(w.At).UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Serves until the context is cancelled, then shuts down gracefully.
func runHTTPServer(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
	}()
	logger.Info("starting admin server", "bind", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
