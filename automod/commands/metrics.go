package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_commands",
	Help: "Number of moderation commands handled, by command and result.",
}, []string{"command", "result"})
