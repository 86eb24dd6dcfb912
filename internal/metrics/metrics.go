// Package metrics exposes Prometheus counters for the account flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	EventRegister     = "register"
	EventVerify       = "verify_email"
	EventLogin        = "login"
	EventResetIssue   = "reset_issue"
	EventResetConsume = "reset_consume"

	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder is what services report to. Nop discards everything.
type Recorder interface {
	RecordAuthEvent(event, result string)
	RecordPendingSwept(count int64)
}

type Nop struct{}

func (Nop) RecordAuthEvent(string, string) {}
func (Nop) RecordPendingSwept(int64)       {}

type Collector struct {
	authEvents   *prometheus.CounterVec
	pendingSwept prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "icec_auth_events_total",
			Help: "Account flow outcomes by event and result.",
		}, []string{"event", "result"}),
		pendingSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "icec_pending_registrations_swept_total",
			Help: "Expired pending registrations removed by the cleanup job.",
		}),
	}
	reg.MustRegister(c.authEvents, c.pendingSwept)
	return c
}

func (c *Collector) RecordAuthEvent(event, result string) {
	c.authEvents.WithLabelValues(event, result).Inc()
}

func (c *Collector) RecordPendingSwept(count int64) {
	if count > 0 {
		c.pendingSwept.Add(float64(count))
	}
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewServer serves /metrics on its own listener so the counters stay off the
// public API port.
func NewServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(Handler(gatherer)))
	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
