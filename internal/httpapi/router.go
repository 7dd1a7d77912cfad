package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/binarymachines/bxlogic/internal/common"
	"github.com/binarymachines/bxlogic/internal/config"
	"github.com/binarymachines/bxlogic/internal/httpapi/handlers"
	"github.com/binarymachines/bxlogic/internal/httpapi/middleware"
	"github.com/binarymachines/bxlogic/internal/metrics"
	"github.com/binarymachines/bxlogic/internal/sms"
	"github.com/binarymachines/bxlogic/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, sender sms.Sender, pub handlers.JobEventPublisher, stats *metrics.Collector, reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, rds, sender, pub, stats)

	r.GET("/ping", h.Ping)

	// couriers
	r.POST("/courier", h.CreateCourier)
	r.POST("/courier-status", h.SetCourierStatus)
	r.GET("/couriers", h.ListCouriers)

	// jobs
	r.POST("/job", h.CreateJob)
	r.GET("/jobstatus", h.GetJobStatus)
	r.POST("/joblog", h.AppendJobLog)
	r.GET("/joblog", h.GetJobLog)

	// bidding
	r.GET("/bidders", h.ListBidders)
	r.GET("/bidstat", h.GetBidStatus)
	r.POST("/award", h.Award)

	// Twilio webhook
	r.POST("/sms", h.InboundSMS)

	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	return r
}
