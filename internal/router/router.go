package router

import (
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/rosterhq/oncall-api/internal/handler"
	"github.com/rosterhq/oncall-api/internal/middleware"
)

// phonePattern accepts E.164-style numbers: optional +, 7 to 15 digits.
var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
	}
}

// Handler registers routes on a group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit rate.Limit
	RateBurst int
}

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware
	base   *handler.Handler

	authH   Handler
	viewH   Handler
	adminHs []Handler

	config Config
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	base *handler.Handler,
	authH Handler,
	viewH Handler,
	config Config,
	adminHandlers ...Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine:  gin.New(),
		auth:    auth,
		base:    base,
		authH:   authH,
		viewH:   viewH,
		adminHs: adminHandlers,
		config:  config,
	}
}

// Setup wires middleware and routes. Mutating and privileged-read
// operations all sit behind the admin auth check; only the login
// endpoint, the public view, health, and metrics are open.
func (r *Router) Setup() {
	registerValidations()

	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.Recovery())

	if r.config.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(r.config.RateLimit, r.config.RateBurst)
		r.engine.Use(limiter.RateLimit())
	}

	r.engine.GET("/healthz", r.base.HealthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := r.engine.Group("/api/v1")
	r.authH.RegisterRoutes(public)
	r.viewH.RegisterRoutes(public)

	admin := r.engine.Group("/api/v1")
	admin.Use(r.auth.Authenticate())
	for _, h := range r.adminHs {
		h.RegisterRoutes(admin)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
