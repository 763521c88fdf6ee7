package attendance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "staffattend",
	Subsystem: "recorder",
	Name:      "records_total",
	Help:      "Attendance record attempts by outcome (created, already_marked, invalid, failed).",
}, []string{"outcome"})
