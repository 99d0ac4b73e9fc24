package risk

// Level bands a risk score
type Level string

const (
	LevelLow    Level = "LOW"
	LevelMedium Level = "MEDIUM"
	LevelHigh   Level = "HIGH"
)

// ReasonCode identifies a contributing factor in a risk snapshot
type ReasonCode string

const (
	ReasonActiveBlacklist        ReasonCode = "ACTIVE_BLACKLIST"
	ReasonOpenFraudSignal        ReasonCode = "OPEN_FRAUD_SIGNAL"
	ReasonComplaintsAgainst3Plus ReasonCode = "COMPLAINTS_AGAINST_3PLUS"
	ReasonComplaintsAgainst      ReasonCode = "COMPLAINTS_AGAINST"
	ReasonRemovedBids3Plus       ReasonCode = "REMOVED_BIDS_3PLUS"
	ReasonRemovedBids            ReasonCode = "REMOVED_BIDS"
)

var reasonLabels = map[ReasonCode]string{
	ReasonActiveBlacklist:        "active blacklist entry",
	ReasonOpenFraudSignal:        "open fraud signal",
	ReasonComplaintsAgainst3Plus: "3+ complaints against the user",
	ReasonComplaintsAgainst:      "complaints against the user",
	ReasonRemovedBids3Plus:       "3+ removed bids",
	ReasonRemovedBids:            "removed bids",
}

// Label returns the human-readable label for the code
func (c ReasonCode) Label() string {
	if label, ok := reasonLabels[c]; ok {
		return label
	}
	return string(c)
}

// Snapshot is a point-in-time trust score derived from lagging violation
// counts. It is recomputed on every call and never persisted.
type Snapshot struct {
	Score   int
	Level   Level
	Reasons []ReasonCode
}

// ProfileCounts are the live inputs to a snapshot
type ProfileCounts struct {
	ComplaintsAgainst  int
	OpenFraudSignals   int
	HasActiveBlacklist bool
	RemovedBids        int
	Verified           bool
}

// EvaluateSnapshot converts violation counts into a 0-100 score, a band and
// an ordered reason list. Scoring is additive, then clamped. The verified
// discount applies only to an otherwise-clean profile: it never offsets an
// active blacklist entry or an open fraud signal.
func EvaluateSnapshot(p ProfileCounts) Snapshot {
	score := 0
	var reasons []ReasonCode

	if p.HasActiveBlacklist {
		score += 60
		reasons = append(reasons, ReasonActiveBlacklist)
	}

	if p.OpenFraudSignals > 0 {
		score += 40
		reasons = append(reasons, ReasonOpenFraudSignal)
	}

	if p.ComplaintsAgainst >= 3 {
		score += 30
		reasons = append(reasons, ReasonComplaintsAgainst3Plus)
	} else if p.ComplaintsAgainst >= 1 {
		score += 15
		reasons = append(reasons, ReasonComplaintsAgainst)
	}

	if p.RemovedBids >= 3 {
		score += 15
		reasons = append(reasons, ReasonRemovedBids3Plus)
	} else if p.RemovedBids >= 1 {
		score += 8
		reasons = append(reasons, ReasonRemovedBids)
	}

	if p.Verified && !p.HasActiveBlacklist && p.OpenFraudSignals == 0 {
		score -= 10
		if score < 0 {
			score = 0
		}
	}
	if score > 100 {
		score = 100
	}

	level := LevelLow
	switch {
	case score >= 70:
		level = LevelHigh
	case score >= 35:
		level = LevelMedium
	}

	return Snapshot{Score: score, Level: level, Reasons: reasons}
}
