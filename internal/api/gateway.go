package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/api/jobs"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/api/records"
	"github.com/vladqvarvar-create/Crossaut-fire/internal/http/websocket"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"
)

var log = logger.Get("API")

const banner = "🤖 Telegram Speech Recognition Bot is running!"

type (
	RestConfig struct {
		// HostAddr is the bind address. Hosting platforms inject the port
		// via the PORT env var; see config.go for how it folds in here.
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:10000"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// StatusReporter surfaces process-level state for the health endpoint.
	StatusReporter interface {
		BotUsername() string
		Provisioned() bool
		StartedAt() time.Time
	}

	healthDto struct {
		Status        string `json:"status"`
		BotUsername   string `json:"bot_username"`
		Provisioned   bool   `json:"provisioned"`
		UptimeSeconds int64  `json:"uptime_seconds"`
	}

	// RestGateway is a thin wrapper around the echo HTTP router. It's sole
	// responsibility is to expose the liveness banner, the REST resources,
	// and the websocket activity feed.
	RestGateway struct {
		*broadcaster
		config           *RestConfig
		ec               *echo.Echo
		socket           *websocket.SocketHub
		status           StatusReporter
		jobsController   controller
		recordController controller
	}
)

// NewRestGateway constructs the echo router and populates it with the
// routes defined by the controllers.
func NewRestGateway(config *RestConfig, jobService jobs.Service, recordStore records.Store, status StatusReporter) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:      newBroadcaster(socket, jobService),
		config:           config,
		ec:               ec,
		socket:           socket,
		status:           status,
		jobsController:   jobs.New(validate, jobService),
		recordController: records.New(validate, recordStore),
	}

	gateway.bindSocketCommands()

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())

	// Liveness banner probed by the hosting platform.
	ec.GET("/", func(ec echo.Context) error {
		return ec.String(http.StatusOK, banner)
	})

	ec.GET("/api/v1/health", gateway.health)
	ec.GET("/api/v1/activity/ws", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	gateway.jobsController.SetRoutes(ec.Group("/api/v1/jobs"))
	gateway.recordController.SetRoutes(ec.Group("/api/v1/history"))

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

func (gateway *RestGateway) health(ec echo.Context) error {
	return ec.JSON(http.StatusOK, healthDto{
		Status:        "ok",
		BotUsername:   gateway.status.BotUsername(),
		Provisioned:   gateway.status.Provisioned(),
		UptimeSeconds: int64(time.Since(gateway.status.StartedAt()).Seconds()),
	})
}
