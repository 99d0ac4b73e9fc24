package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/lotline/sentinel/internal/domain/fraud"
	"github.com/lotline/sentinel/internal/domain/risk"
)

// Config holds everything the service reads from the environment
type Config struct {
	DatabaseURL string
	RedisURL    string // optional; empty disables the dedup fast path
	RabbitMQURL string
	HTTPAddr    string
	JWTSecret   string

	Fraud fraud.DetectorConfig
	Gate  risk.GateConfig
}

// Load reads the environment (after applying .env files) and validates the
// result. A single bad value fails the whole load so the process refuses to
// start on a misconfigured threshold instead of detecting with it.
func Load() (*Config, error) {
	return load(true)
}

// LoadWorker reads the subset the relay worker needs. The worker serves no
// HTTP and validates no tokens, so JWT_SECRET is not required.
func LoadWorker() (*Config, error) {
	return load(false)
}

func load(api bool) (*Config, error) {
	// Local overrides .env
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var errs []error

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
		HTTPAddr:    envString("HTTP_ADDR", ":8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		Fraud:       fraud.DefaultDetectorConfig(),
		Gate: risk.GateConfig{
			RequireGuarantorForHighRisk: true,
			GuarantorMaxAgeDays:         90,
		},
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}
	if cfg.RabbitMQURL == "" {
		errs = append(errs, errors.New("RABBITMQ_URL is not set"))
	}
	if api && cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not set"))
	}

	cfg.Fraud.AlertThreshold = envInt("FRAUD_ALERT_THRESHOLD", cfg.Fraud.AlertThreshold, &errs)
	cfg.Fraud.DedupWindow = envSeconds("FRAUD_DEDUP_WINDOW_SECONDS", cfg.Fraud.DedupWindow, &errs)

	cfg.Fraud.RapidWindow = envSeconds("FRAUD_RAPID_WINDOW_SECONDS", cfg.Fraud.RapidWindow, &errs)
	cfg.Fraud.RapidMinBids = envInt("FRAUD_RAPID_MIN_BIDS", cfg.Fraud.RapidMinBids, &errs)
	cfg.Fraud.RapidBaseScore = envInt("FRAUD_RAPID_BASE_SCORE", cfg.Fraud.RapidBaseScore, &errs)
	cfg.Fraud.RapidStepScore = envInt("FRAUD_RAPID_STEP_SCORE", cfg.Fraud.RapidStepScore, &errs)
	cfg.Fraud.RapidMaxScore = envInt("FRAUD_RAPID_MAX_SCORE", cfg.Fraud.RapidMaxScore, &errs)

	cfg.Fraud.DominanceWindow = envSeconds("FRAUD_DOMINANCE_WINDOW_SECONDS", cfg.Fraud.DominanceWindow, &errs)
	cfg.Fraud.DominanceMinTotal = envInt("FRAUD_DOMINANCE_MIN_TOTAL", cfg.Fraud.DominanceMinTotal, &errs)
	cfg.Fraud.DominanceRatio = envFloat("FRAUD_DOMINANCE_RATIO", cfg.Fraud.DominanceRatio, &errs)
	cfg.Fraud.DominanceScore = envInt("FRAUD_DOMINANCE_SCORE", cfg.Fraud.DominanceScore, &errs)

	cfg.Fraud.NewAccountMaxAge = envHours("FRAUD_NEW_ACCOUNT_MAX_AGE_HOURS", cfg.Fraud.NewAccountMaxAge, &errs)
	cfg.Fraud.NewAccountStartPriceFactor = envInt64("FRAUD_NEW_ACCOUNT_START_PRICE_FACTOR", cfg.Fraud.NewAccountStartPriceFactor, &errs)
	cfg.Fraud.NewAccountMinAmount = envInt64("FRAUD_NEW_ACCOUNT_MIN_AMOUNT", cfg.Fraud.NewAccountMinAmount, &errs)
	cfg.Fraud.NewAccountScore = envInt("FRAUD_NEW_ACCOUNT_SCORE", cfg.Fraud.NewAccountScore, &errs)

	cfg.Fraud.DuopolyWindow = envSeconds("FRAUD_DUOPOLY_WINDOW_SECONDS", cfg.Fraud.DuopolyWindow, &errs)
	cfg.Fraud.DuopolyMinTotal = envInt("FRAUD_DUOPOLY_MIN_TOTAL", cfg.Fraud.DuopolyMinTotal, &errs)
	cfg.Fraud.DuopolyMaxBids = envInt("FRAUD_DUOPOLY_MAX_BIDS", cfg.Fraud.DuopolyMaxBids, &errs)
	cfg.Fraud.DuopolyPairRatio = envFloat("FRAUD_DUOPOLY_PAIR_RATIO", cfg.Fraud.DuopolyPairRatio, &errs)
	cfg.Fraud.DuopolyScore = envInt("FRAUD_DUOPOLY_SCORE", cfg.Fraud.DuopolyScore, &errs)

	cfg.Fraud.AlternatingRecentBids = envInt("FRAUD_ALTERNATING_RECENT_BIDS", cfg.Fraud.AlternatingRecentBids, &errs)
	cfg.Fraud.AlternatingMinSwitches = envInt("FRAUD_ALTERNATING_MIN_SWITCHES", cfg.Fraud.AlternatingMinSwitches, &errs)
	cfg.Fraud.AlternatingScore = envInt("FRAUD_ALTERNATING_SCORE", cfg.Fraud.AlternatingScore, &errs)

	cfg.Fraud.BaselineWindow = envSeconds("FRAUD_BASELINE_WINDOW_SECONDS", cfg.Fraud.BaselineWindow, &errs)
	cfg.Fraud.BaselineMinBids = envInt("FRAUD_BASELINE_MIN_BIDS", cfg.Fraud.BaselineMinBids, &errs)
	cfg.Fraud.BaselineMaxBids = envInt("FRAUD_BASELINE_MAX_BIDS", cfg.Fraud.BaselineMaxBids, &errs)
	cfg.Fraud.BaselineSpikeFactor = envFloat("FRAUD_BASELINE_SPIKE_FACTOR", cfg.Fraud.BaselineSpikeFactor, &errs)
	cfg.Fraud.BaselineMinIncrement = envInt64("FRAUD_BASELINE_MIN_INCREMENT", cfg.Fraud.BaselineMinIncrement, &errs)
	cfg.Fraud.BaselineSpikeScore = envInt("FRAUD_BASELINE_SPIKE_SCORE", cfg.Fraud.BaselineSpikeScore, &errs)

	cfg.Fraud.HistoricalMaxAuctions = envInt("FRAUD_HISTORICAL_MAX_AUCTIONS", cfg.Fraud.HistoricalMaxAuctions, &errs)
	cfg.Fraud.HistoricalMinPoints = envInt("FRAUD_HISTORICAL_MIN_POINTS", cfg.Fraud.HistoricalMinPoints, &errs)
	cfg.Fraud.HistoricalSpikeFactor = envFloat("FRAUD_HISTORICAL_SPIKE_FACTOR", cfg.Fraud.HistoricalSpikeFactor, &errs)
	cfg.Fraud.HistoricalMinIncrement = envInt64("FRAUD_HISTORICAL_MIN_INCREMENT", cfg.Fraud.HistoricalMinIncrement, &errs)
	cfg.Fraud.HistoricalSpikeScore = envInt("FRAUD_HISTORICAL_SPIKE_SCORE", cfg.Fraud.HistoricalSpikeScore, &errs)
	cfg.Fraud.HistoricalStartRatioLow = envFloat("FRAUD_HISTORICAL_START_RATIO_LOW", cfg.Fraud.HistoricalStartRatioLow, &errs)
	cfg.Fraud.HistoricalStartRatioHigh = envFloat("FRAUD_HISTORICAL_START_RATIO_HIGH", cfg.Fraud.HistoricalStartRatioHigh, &errs)

	cfg.Gate.RequireGuarantorForHighRisk = envBool("GATE_REQUIRE_GUARANTOR", cfg.Gate.RequireGuarantorForHighRisk, &errs)
	cfg.Gate.GuarantorMaxAgeDays = envInt("GATE_GUARANTOR_MAX_AGE_DAYS", cfg.Gate.GuarantorMaxAgeDays, &errs)

	if err := cfg.Fraud.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Gate.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64, errs *[]error) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64, errs *[]error) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func envBool(key string, fallback bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func envSeconds(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return time.Duration(v) * time.Second
}

func envHours(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return time.Duration(v) * time.Hour
}
