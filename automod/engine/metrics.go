package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messageProcessDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "automod_message_duration_sec",
	Help: "Total duration of automod message processing",
})

var messageProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_messages_processed",
	Help: "Number of messages processed, by result",
}, []string{"result"})

var messageErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_message_errors",
	Help: "Number of messages which failed processing",
})

var violationCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_violations",
	Help: "Number of rule violations detected",
}, []string{"rule", "severity"})

var directiveCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_directives",
	Help: "Number of escalation outcomes, by directive kind and requested severity",
}, []string{"kind", "severity"})

var quotaExceededCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "automod_removal_quota_exceeded",
	Help: "Number of automated removals blocked by the daily quota",
})

var auditErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "automod_audit_errors",
	Help: "Number of audit notifications which failed delivery",
}, []string{"notifier"})
