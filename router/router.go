package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dineflow/customer-gateway/controllers"
	"github.com/dineflow/customer-gateway/middlewares"
	"github.com/dineflow/customer-gateway/push"
	"github.com/dineflow/customer-gateway/services"
	"github.com/dineflow/customer-gateway/store"
	"github.com/dineflow/customer-gateway/upstream"
)

// Deps is everything the routes need, wired once in main.
type Deps struct {
	DB       *gorm.DB
	Store    *store.Store
	Client   *upstream.Client
	Resolver *services.Resolver
	Waitlist *services.Waitlist
	Flow     *services.Flow
	Registry *services.Registry
	Hub      *push.Hub
}

func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	flowCtrl := controllers.NewFlowController(deps.Store, deps.Flow, deps.Resolver, deps.Registry)
	waitlistCtrl := controllers.NewWaitlistController(deps.Store, deps.Waitlist, deps.Registry)
	sessionCtrl := controllers.NewSessionController(deps.Store, deps.Registry)
	wsCtrl := controllers.NewWSController(deps.Hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Everything below is per-device state.
	device := r.Group("/")
	device.Use(middlewares.DeviceIdentity())
	{
		device.POST("/scan/:slug", flowCtrl.Scan)
		device.POST("/flows/:service_type", flowCtrl.StartFlow)

		device.GET("/session", sessionCtrl.GetSession)
		device.DELETE("/session", sessionCtrl.ResetSession)

		device.GET("/waitlist", waitlistCtrl.Status)
		device.DELETE("/waitlist", waitlistCtrl.Leave)

		device.GET("/ws", wsCtrl.Connect)
	}

	// Joining is rate limited separately; a queue spot is contended state.
	join := r.Group("/")
	join.Use(middlewares.DeviceIdentity(), middlewares.NewStrictRateLimiter())
	{
		join.POST("/waitlist", waitlistCtrl.Join)
	}

	return r
}
