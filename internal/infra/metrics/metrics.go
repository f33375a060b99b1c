package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	DebatesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "debates_created_total",
		Help: "Количество созданных вызовов на дебаты",
	})
	ArgumentsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "debate_arguments_total",
		Help: "Количество принятых аргументов",
	})
	VotesCast = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "debate_votes_total",
		Help: "Количество голосов по вариантам",
	}, []string{"choice"})
	VotingClosed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "debates_voting_closed_total",
		Help: "Количество закрытых окон голосования",
	})
	TrustRecalcs = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trust_recalculations_total",
		Help: "Количество пересчётов оценки доверия",
	})
	FactCheckVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "factcheck_verdicts_total",
		Help: "Количество применённых вердиктов по статусам",
	}, []string{"status"})
	FactCheckDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "factcheck_duration_seconds",
		Help:    "Время выполнения проверки фактов",
		Buckets: prometheus.DefBuckets,
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		DebatesCreated,
		ArgumentsSubmitted,
		VotesCast,
		VotingClosed,
		TrustRecalcs,
		FactCheckVerdicts,
		FactCheckDuration,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// IncDebateCreated увеличивает счётчик созданных дебатов.
func IncDebateCreated() {
	DebatesCreated.Inc()
}

// IncArgumentSubmitted увеличивает счётчик аргументов.
func IncArgumentSubmitted() {
	ArgumentsSubmitted.Inc()
}

// IncVoteCast увеличивает счётчик голосов для варианта.
func IncVoteCast(choice string) {
	VotesCast.WithLabelValues(choice).Inc()
}

// IncVotingClosed увеличивает счётчик закрытых голосований.
func IncVotingClosed() {
	VotingClosed.Inc()
}

// IncTrustRecalc увеличивает счётчик пересчётов доверия.
func IncTrustRecalc() {
	TrustRecalcs.Inc()
}

// ObserveFactCheck записывает длительность проверки и статус вердикта.
func ObserveFactCheck(status string, start time.Time) {
	FactCheckDuration.Observe(time.Since(start).Seconds())
	if status == "" {
		status = "unknown"
	}
	FactCheckVerdicts.WithLabelValues(status).Inc()
}
