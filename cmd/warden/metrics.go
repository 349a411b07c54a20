package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var settingsReloads = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_settings_reloads",
	Help: "Number of automod settings reloads, by result",
}, []string{"result"})

var mutesRestored = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_mutes_restored",
	Help: "Number of unexpired mutes re-armed at startup",
})
