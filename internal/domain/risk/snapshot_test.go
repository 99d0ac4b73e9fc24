package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateSnapshot(t *testing.T) {
	tests := []struct {
		name        string
		counts      ProfileCounts
		wantScore   int
		wantLevel   Level
		wantReasons []ReasonCode
	}{
		{
			name:      "clean profile",
			counts:    ProfileCounts{},
			wantScore: 0,
			wantLevel: LevelLow,
		},
		{
			name:        "three complaints alone",
			counts:      ProfileCounts{ComplaintsAgainst: 3},
			wantScore:   30,
			wantLevel:   LevelLow,
			wantReasons: []ReasonCode{ReasonComplaintsAgainst3Plus},
		},
		{
			name:        "verified discount on complaints-only profile",
			counts:      ProfileCounts{ComplaintsAgainst: 3, Verified: true},
			wantScore:   20,
			wantLevel:   LevelLow,
			wantReasons: []ReasonCode{ReasonComplaintsAgainst3Plus},
		},
		{
			name:        "single complaint",
			counts:      ProfileCounts{ComplaintsAgainst: 1},
			wantScore:   15,
			wantLevel:   LevelLow,
			wantReasons: []ReasonCode{ReasonComplaintsAgainst},
		},
		{
			name:        "open fraud signal",
			counts:      ProfileCounts{OpenFraudSignals: 2},
			wantScore:   40,
			wantLevel:   LevelMedium,
			wantReasons: []ReasonCode{ReasonOpenFraudSignal},
		},
		{
			name:        "verified never offsets an open signal",
			counts:      ProfileCounts{OpenFraudSignals: 1, Verified: true},
			wantScore:   40,
			wantLevel:   LevelMedium,
			wantReasons: []ReasonCode{ReasonOpenFraudSignal},
		},
		{
			name:        "verified never offsets a blacklist entry",
			counts:      ProfileCounts{HasActiveBlacklist: true, Verified: true},
			wantScore:   60,
			wantLevel:   LevelMedium,
			wantReasons: []ReasonCode{ReasonActiveBlacklist},
		},
		{
			name:        "blacklist plus open signal is high",
			counts:      ProfileCounts{HasActiveBlacklist: true, OpenFraudSignals: 1},
			wantScore:   100,
			wantLevel:   LevelHigh,
			wantReasons: []ReasonCode{ReasonActiveBlacklist, ReasonOpenFraudSignal},
		},
		{
			name: "everything at once clamps to 100",
			counts: ProfileCounts{
				HasActiveBlacklist: true,
				OpenFraudSignals:   3,
				ComplaintsAgainst:  5,
				RemovedBids:        4,
			},
			wantScore: 100,
			wantLevel: LevelHigh,
			wantReasons: []ReasonCode{
				ReasonActiveBlacklist,
				ReasonOpenFraudSignal,
				ReasonComplaintsAgainst3Plus,
				ReasonRemovedBids3Plus,
			},
		},
		{
			name:        "removed bids tiers",
			counts:      ProfileCounts{RemovedBids: 2},
			wantScore:   8,
			wantLevel:   LevelLow,
			wantReasons: []ReasonCode{ReasonRemovedBids},
		},
		{
			name:        "three removed bids",
			counts:      ProfileCounts{RemovedBids: 3},
			wantScore:   15,
			wantLevel:   LevelLow,
			wantReasons: []ReasonCode{ReasonRemovedBids3Plus},
		},
		{
			name:      "verified discount floors at zero",
			counts:    ProfileCounts{RemovedBids: 1, Verified: true},
			wantScore: 0,
			wantLevel: LevelLow,
			// The reason stays even when the discount cancels the score
			wantReasons: []ReasonCode{ReasonRemovedBids},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := EvaluateSnapshot(tt.counts)

			assert.Equal(t, tt.wantScore, snapshot.Score)
			assert.Equal(t, tt.wantLevel, snapshot.Level)
			assert.Equal(t, tt.wantReasons, snapshot.Reasons)
		})
	}
}

// Adding a violation must never lower the score for an unverified profile
func TestEvaluateSnapshot_Monotonic(t *testing.T) {
	base := ProfileCounts{ComplaintsAgainst: 1}
	withSignal := ProfileCounts{ComplaintsAgainst: 1, OpenFraudSignals: 1}
	withBlacklist := ProfileCounts{ComplaintsAgainst: 1, OpenFraudSignals: 1, HasActiveBlacklist: true}

	s0 := EvaluateSnapshot(base).Score
	s1 := EvaluateSnapshot(withSignal).Score
	s2 := EvaluateSnapshot(withBlacklist).Score

	assert.Less(t, s0, s1)
	assert.Less(t, s1, s2)
}

func TestLevelBands(t *testing.T) {
	// 15+8 = 23 LOW, 40 MEDIUM boundary at 35, 60+15 = 75 HIGH boundary at 70
	assert.Equal(t, LevelLow, EvaluateSnapshot(ProfileCounts{ComplaintsAgainst: 1, RemovedBids: 1}).Level)
	assert.Equal(t, LevelMedium, EvaluateSnapshot(ProfileCounts{OpenFraudSignals: 1}).Level)
	assert.Equal(t, LevelHigh, EvaluateSnapshot(ProfileCounts{HasActiveBlacklist: true, RemovedBids: 3}).Level)
}
