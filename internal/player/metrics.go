package player

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	playTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radio_player_play_total",
			Help: "Total playback start attempts by result.",
		},
		[]string{"result"},
	)
	stopTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radio_player_stop_total",
			Help: "Total playback stops by reason.",
		},
		[]string{"reason"},
	)
	restartTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radio_player_restart_total",
			Help: "Total automatic stream restarts.",
		},
	)
	playingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radio_player_playing",
			Help: "1 while a station is playing, 0 otherwise.",
		},
	)
)
