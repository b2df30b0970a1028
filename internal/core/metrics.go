// AngelaMos | 2026
// metrics.go

package core

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry          *prometheus.Registry
	CardResolutions   *prometheus.CounterVec
	WalletSaves       *prometheus.CounterVec
	AuthEvents        *prometheus.CounterVec
	ImageUploads      *prometheus.CounterVec
	ThemeApplications prometheus.Counter
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		Registry: reg,
		CardResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "card_resolutions_total",
			Help:      "Public card resolutions by resulting state and theme.",
		}, []string{"state", "theme"}),
		WalletSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_saves_total",
			Help:      "Wallet save attempts by outcome.",
		}, []string{"outcome"}),
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Session change events published by type.",
		}, []string{"type"}),
		ImageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_uploads_total",
			Help:      "Profile image uploads by kind and result.",
		}, []string{"kind", "result"}),
		ThemeApplications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "theme_applications_total",
			Help:      "Themes applied by users.",
		}),
	}

	reg.MustRegister(
		m.CardResolutions,
		m.WalletSaves,
		m.AuthEvents,
		m.ImageUploads,
		m.ThemeApplications,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
