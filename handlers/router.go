package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studentform/studentform/backend/go-services/internal/query"
	"github.com/studentform/studentform/backend/go-services/internal/ratelimit"
	"github.com/studentform/studentform/backend/go-services/internal/sessions"
	"github.com/studentform/studentform/backend/go-services/internal/submission"
	"github.com/studentform/studentform/backend/go-services/pkg/middleware"
)

// Deps are the services the HTTP surface is built from. Archive and
// Throttle are optional.
type Deps struct {
	Submissions  *submission.Service
	Query        *query.Service
	Sessions     *sessions.Service
	Passwords    *sessions.PasswordVerifier
	LoginLimiter *ratelimit.Limiter
	Archive      Archiver
	Throttle     gin.HandlerFunc
	Ready        map[string]Pinger

	AllowPublic     bool
	Debug           bool
	CORSAllowOrigin string
	TrustedProxies  []string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(d.CORSAllowOrigin))

	var extra []gin.HandlerFunc
	if d.Throttle != nil {
		extra = append(extra, d.Throttle)
	}

	api := r.Group("/api")
	NewSubmitHandler(d.Submissions, d.Debug).Register(api)
	NewResponsesHandler(d.Query, d.Sessions, d.AllowPublic, d.Debug).Register(api, extra...)
	NewExportHandler(d.Query, d.Sessions, d.Archive, d.Debug).Register(api, extra...)
	NewAuthHandler(d.Sessions, d.Passwords, d.LoginLimiter, d.Debug).Register(api)

	RegisterHealth(r, d.Ready)
	RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r, nil
}
