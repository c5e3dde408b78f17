package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 是引擎的 Prometheus 指标。每个 Engine 持有自己的实例，
// 注册到调用方提供的 Registerer 上（nil 时不注册）。
type Metrics struct {
	Recommendations *prometheus.CounterVec
	Fallbacks       *prometheus.CounterVec
	Verdicts        *prometheus.CounterVec
	RebuildSeconds  *prometheus.HistogramVec
}

// NewMetrics 创建指标并注册。
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		Recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedrank_recommendations_total",
			Help: "Recommendation requests served, by strategy",
		}, []string{"strategy"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedrank_fallbacks_total",
			Help: "Degraded results served, by reason",
		}, []string{"reason"}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedrank_moderation_verdicts_total",
			Help: "Moderation verdicts, by suggested action",
		}, []string{"action"}),
		RebuildSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feedrank_rebuild_seconds",
			Help:    "Duration of snapshot rebuild stages",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.Recommendations, m.Fallbacks, m.Verdicts, m.RebuildSeconds)
	}
	return m
}
