package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staffattend",
		Subsystem: "matcher",
		Name:      "results_total",
		Help:      "Identification attempts by result.",
	}, []string{"result"})

	galleryDescriptors = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "staffattend",
		Subsystem: "matcher",
		Name:      "gallery_descriptors",
		Help:      "Descriptors in the loaded gallery.",
	})
)
