package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Generation metrics
	ActiveGenerations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "novelvoice_active_generations",
		Help: "Number of audio generation tasks currently running",
	})

	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelvoice_generations_total",
		Help: "Total number of generation tasks by outcome",
	}, []string{"outcome"}) // outcome: "complete", "failed", "cancelled"

	GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "novelvoice_generation_duration_seconds",
		Help:    "Wall time of generation tasks in seconds",
		Buckets: []float64{10, 30, 60, 120, 300, 600, 1800, 3600},
	})

	// Script metrics
	ScriptCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelvoice_script_cache_lookups_total",
		Help: "Script cache lookups by result",
	}, []string{"result"}) // result: "hit", "miss"

	ScriptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novelvoice_script_failures_total",
		Help: "Segments skipped after exhausting script generation attempts",
	})

	LLMLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "novelvoice_llm_latency_seconds",
		Help:    "Voice script LLM call latency in seconds",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
	})

	// Synthesis metrics
	UtterancesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelvoice_utterances_total",
		Help: "Synthesized utterances by status",
	}, []string{"status"}) // status: "ok", "skipped"

	AudioBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novelvoice_audio_bytes_written_total",
		Help: "Total MP3 bytes flushed to chapter audio files",
	})

	// Delivery metrics
	StreamBytesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novelvoice_stream_bytes_sent_total",
		Help: "Total audio bytes sent to playback clients",
	})

	HLSConversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novelvoice_hls_conversions_total",
		Help: "HLS transcoder runs by outcome",
	}, []string{"mode", "outcome"}) // mode: "base", "incremental"
)

// ObserveLLM records one LLM call latency
func ObserveLLM(start time.Time) {
	LLMLatency.Observe(time.Since(start).Seconds())
}
