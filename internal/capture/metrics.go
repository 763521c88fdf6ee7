package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staffattend",
		Subsystem: "capture",
		Name:      "attempts_total",
		Help:      "Capture attempts by outcome.",
	}, []string{"outcome"})

	galleryReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staffattend",
		Subsystem: "capture",
		Name:      "gallery_reloads_total",
		Help:      "Gallery refresh attempts by result.",
	}, []string{"result"})
)
