package router

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"tleenotes/internal/auth"
	"tleenotes/internal/config"
	"tleenotes/internal/handler"
	"tleenotes/internal/middleware"
	"tleenotes/internal/model"
)

// Handlers groups everything Register mounts.
type Handlers struct {
	Notes  *handler.NoteHandler
	Auth   *handler.AuthHandler
	Users  *handler.UserHandler
	Health *handler.HealthHandler
}

// Security carries what the secured groups need to authenticate requests.
type Security struct {
	JWT        *auth.JWTService
	Principals middleware.PrincipalLoader
}

// New builds an echo instance with the global middleware chain. HTTP
// request metrics register with reg.
func New(cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)

	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowCredentials: cfg.CORS.AllowCredentials,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderOrigin},
	}))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "notes_http",
		Registerer: reg,
	}))
	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil || v.Status >= 500 {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

// Register wires routes.
func Register(e *echo.Echo, h Handlers, sec Security) {
	e.GET("/healthz", h.Health.Liveness)
	e.GET("/healthz/ready", h.Health.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authenticated := []echo.MiddlewareFunc{
		middleware.JWT(sec.JWT),
		middleware.LoadPrincipal(sec.Principals),
	}
	managers := []echo.MiddlewareFunc{
		middleware.JWT(sec.JWT),
		middleware.LoadPrincipal(sec.Principals),
		middleware.RBAC(model.RoleAdmin, model.RoleManager),
	}

	// Notes are public; bulk import is restricted.
	notes := e.Group("/notes")
	notes.POST("", h.Notes.CreateOrUpdate)
	notes.GET("", h.Notes.List)
	notes.GET("/all", h.Notes.ListAll)
	notes.POST("/import", h.Notes.Import, managers...)
	notes.GET("/:identifier", h.Notes.Get)
	notes.PUT("/:id", h.Notes.Update)
	notes.DELETE("/:id", h.Notes.Delete)
	notes.DELETE("/identifier/:identifier", h.Notes.DeleteByIdentifier)

	authGroup := e.Group("/auth")
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)
	authGroup.POST("/bootstrap", h.Auth.Bootstrap)
	authGroup.GET("/me", h.Auth.Me, authenticated...)

	users := e.Group("/users", managers...)
	users.POST("", h.Users.CreateUser)
	users.GET("", h.Users.ListUsers)
	users.GET("/:id", h.Users.GetUser)
	users.PUT("/:id", h.Users.UpdateUser)
	users.DELETE("/:id", h.Users.DeleteUser)
}
