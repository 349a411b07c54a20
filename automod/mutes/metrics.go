package mutes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeMutes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "automod_mutes_active",
	Help: "Number of mutes currently armed in the expiry scheduler",
})

var expiredMutes = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_mutes_expired_total",
	Help: "Number of mutes lifted by the expiry scheduler",
})

var unmuteFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_unmute_failures_total",
	Help: "Number of best-effort timeout removals which failed",
})
