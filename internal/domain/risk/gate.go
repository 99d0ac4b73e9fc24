package risk

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// GateConfig tunes the publish gate
type GateConfig struct {
	// RequireGuarantorForHighRisk is the global enable flag; when false the
	// gate always allows
	RequireGuarantorForHighRisk bool
	// GuarantorMaxAgeDays bounds how old an ASSIGNED guarantor request may be
	GuarantorMaxAgeDays int
}

// Validate checks the gate config at startup
func (c GateConfig) Validate() error {
	if c.GuarantorMaxAgeDays < 0 {
		return fmt.Errorf("gate config: guarantor max age days must not be negative")
	}
	return nil
}

// GateDecision is the outcome of a publish-gate evaluation
type GateDecision struct {
	Allowed      bool
	RiskLevel    Level
	RiskScore    int
	RiskReasons  []ReasonCode
	BlockMessage string
}

// Gate decides whether a seller may publish a new listing given their
// current risk snapshot. It holds no state and may run with arbitrary
// concurrency.
type Gate struct {
	cfg        GateConfig
	profiles   ProfileSource
	guarantors GuarantorLookup
	logger     *slog.Logger
}

// NewGate creates a publish gate
func NewGate(cfg GateConfig, profiles ProfileSource, guarantors GuarantorLookup, logger *slog.Logger) *Gate {
	return &Gate{
		cfg:        cfg,
		profiles:   profiles,
		guarantors: guarantors,
		logger:     logger,
	}
}

// Snapshot recomputes the user's risk snapshot from live counts
func (g *Gate) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	counts, err := g.profiles.ProfileCounts(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load profile counts: %w", err)
	}
	return EvaluateSnapshot(counts), nil
}

// EvaluatePublish allows the publish unless the seller's risk level is HIGH,
// the gating policy is enabled, and no recent guarantor assignment exists.
// A failure to reach the guarantor lookup fails closed: the publish is
// denied, not waved through.
func (g *Gate) EvaluatePublish(ctx context.Context, sellerID int64) (GateDecision, error) {
	snapshot, err := g.Snapshot(ctx, sellerID)
	if err != nil {
		return GateDecision{}, err
	}

	decision := GateDecision{
		Allowed:     true,
		RiskLevel:   snapshot.Level,
		RiskScore:   snapshot.Score,
		RiskReasons: snapshot.Reasons,
	}

	if !g.cfg.RequireGuarantorForHighRisk || snapshot.Level != LevelHigh {
		return decision, nil
	}

	assigned, err := g.guarantors.HasAssigned(ctx, sellerID, g.cfg.GuarantorMaxAgeDays)
	if err != nil {
		g.logger.Warn("guarantor lookup failed, denying publish", "seller_id", sellerID, "error", err)
		assigned = false
	}
	if assigned {
		return decision, nil
	}

	decision.Allowed = false
	decision.BlockMessage = blockMessage(snapshot.Score, snapshot.Reasons)
	return decision, nil
}

func blockMessage(score int, reasons []ReasonCode) string {
	factors := "no details"
	if len(reasons) > 0 {
		labels := make([]string, len(reasons))
		for i, code := range reasons {
			labels[i] = code.Label()
		}
		factors = strings.Join(labels, ", ")
	}
	return fmt.Sprintf(
		"Publishing is temporarily restricted: high seller risk profile (score=%d). Factors: %s. "+
			"An assigned guarantor is required to publish; please request a guarantor.",
		score, factors,
	)
}
