package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the dispatch core's Prometheus instruments.
type Collector struct {
	commandsTotal *prometheus.CounterVec
	parseFailures prometheus.Counter
	bidsTotal     prometheus.Counter
	awardsTotal   prometheus.Counter
	smsSent       prometheus.Counter
	sweepRuns     prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bxlogic_commands_total",
			Help: "Inbound commands dispatched, by command family.",
		}, []string{"family"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bxlogic_parse_failures_total",
			Help: "Inbound messages that matched no command family.",
		}),
		bidsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bxlogic_bids_total",
			Help: "Job bids recorded.",
		}),
		awardsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bxlogic_awards_total",
			Help: "Bidding windows closed with an award.",
		}),
		smsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bxlogic_sms_sent_total",
			Help: "Outbound SMS messages sent.",
		}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bxlogic_sweep_runs_total",
			Help: "Bidding-window sweep passes executed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			c.commandsTotal,
			c.parseFailures,
			c.bidsTotal,
			c.awardsTotal,
			c.smsSent,
			c.sweepRuns,
		)
	}
	return c
}

func (c *Collector) CommandDispatched(family string) { c.commandsTotal.WithLabelValues(family).Inc() }
func (c *Collector) ParseFailed()                    { c.parseFailures.Inc() }
func (c *Collector) BidRecorded()                    { c.bidsTotal.Inc() }
func (c *Collector) WindowAwarded()                  { c.awardsTotal.Inc() }
func (c *Collector) SMSSent()                        { c.smsSent.Inc() }
func (c *Collector) SweepCompleted()                 { c.sweepRuns.Inc() }
