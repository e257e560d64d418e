package api

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/faregate/faregate"
	"github.com/faregate/faregate/api/middleware"
	"github.com/faregate/faregate/config"
)

// Api is the gin-backed tap intake adapter. It converts inbound requests
// into tap events, invokes the ledger engine and maps typed outcomes onto
// HTTP responses. It never touches balances itself.
type Api struct {
	faregate *faregate.Faregate
	router   *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/taps", a.RecordTap)
	router.POST("/taps/queue", a.QueueTap)

	router.POST("/accounts", a.CreateAccount)
	router.GET("/accounts", a.GetAllAccounts)
	router.GET("/accounts/:id", a.GetAccount)
	router.GET("/accounts/:id/records", a.GetLedgerRecords)

	router.GET("/transfers/:id", a.GetFareTransfer)

	return a.router
}

func NewAPI(f *faregate.Faregate) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{faregate: f, router: r}
}
