package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture metrics
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_service_active_sessions",
		Help: "Number of connected voice sessions",
	})

	captureSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_capture_sessions_total",
		Help: "Total number of capture sessions by outcome",
	}, []string{"outcome"}) // completed, permission_denied, device_unavailable

	captureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_service_capture_duration_seconds",
		Help:    "Duration of microphone capture sessions in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	// Transcription metrics
	transcriptionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_transcription_requests_total",
		Help: "Total number of transcription requests",
	}, []string{"status"})

	transcriptionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_service_transcription_latency_seconds",
		Help:    "Transcription round-trip latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	emptyTranscripts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_service_empty_transcripts_total",
		Help: "Successful transcriptions that contained no speech",
	})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_synthesis_requests_total",
		Help: "Total number of speech synthesis requests",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_service_synthesis_latency_seconds",
		Help:    "Synthesis round-trip latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	// Playback metrics
	activePlayback = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_service_active_playback",
		Help: "Whether an item is currently playing (0 or 1 per process invariant)",
	})

	playbackStarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_service_playback_starts_total",
		Help: "Total number of playback streams started",
	})

	playbackErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voice_service_playback_errors_total",
		Help: "Mid-stream playback failures (absorbed, not surfaced)",
	})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_service_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_service_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" (capture) or "out" (playback)
)

// Metrics tracks per-session timings for a single voice session
type Metrics struct {
	sessionID          string
	captureStartTime   time.Time
	transcribeStart    time.Time
	synthesisStartTime time.Time
	mu                 sync.Mutex
}

// NewSessionMetrics creates a new metrics tracker for a voice session
func NewSessionMetrics(sessionID string) *Metrics {
	activeSessions.Inc()
	return &Metrics{sessionID: sessionID}
}

// RecordSessionEnd records the end of a voice session
func (m *Metrics) RecordSessionEnd() {
	activeSessions.Dec()
}

// RecordCaptureStart records the start of a capture session
func (m *Metrics) RecordCaptureStart() {
	m.mu.Lock()
	m.captureStartTime = time.Now()
	m.mu.Unlock()
}

// RecordCaptureEnd records a completed capture session
func (m *Metrics) RecordCaptureEnd() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.captureStartTime.IsZero() {
		captureDuration.Observe(time.Since(m.captureStartTime).Seconds())
		m.captureStartTime = time.Time{}
	}
	captureSessions.WithLabelValues("completed").Inc()
}

// RecordCaptureFailure records a capture session that never started
func (m *Metrics) RecordCaptureFailure(outcome string) {
	captureSessions.WithLabelValues(outcome).Inc()
}

// RecordTranscriptionStart records the start of a transcription request
func (m *Metrics) RecordTranscriptionStart() {
	m.mu.Lock()
	m.transcribeStart = time.Now()
	m.mu.Unlock()
}

// RecordTranscriptionEnd records the end of a transcription request
func (m *Metrics) RecordTranscriptionEnd(success, empty bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.transcribeStart.IsZero() {
		transcriptionLatency.Observe(time.Since(m.transcribeStart).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	transcriptionRequests.WithLabelValues(status).Inc()

	if success && empty {
		emptyTranscripts.Inc()
	}
}

// RecordSynthesisStart records the start of a synthesis request
func (m *Metrics) RecordSynthesisStart() {
	m.mu.Lock()
	m.synthesisStartTime = time.Now()
	m.mu.Unlock()
}

// RecordSynthesisEnd records the end of a synthesis request
func (m *Metrics) RecordSynthesisEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.synthesisStartTime.IsZero() {
		synthesisLatency.Observe(time.Since(m.synthesisStartTime).Seconds())
	}

	status := "success"
	if !success {
		status = "error"
	}
	synthesisRequests.WithLabelValues(status).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *Metrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// RecordPlaybackStart records a freshly started playback stream
func RecordPlaybackStart() {
	playbackStarts.Inc()
	activePlayback.Set(1)
}

// RecordPlaybackStop records that no item is playing anymore
func RecordPlaybackStop() {
	activePlayback.Set(0)
}

// RecordPlaybackError records an absorbed mid-stream playback failure
func RecordPlaybackError() {
	playbackErrors.Inc()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
