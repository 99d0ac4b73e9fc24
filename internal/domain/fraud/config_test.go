package fraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDetectorConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DetectorConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *DetectorConfig) {},
		},
		{
			name:    "zero alert threshold",
			mutate:  func(c *DetectorConfig) { c.AlertThreshold = 0 },
			wantErr: "alert threshold",
		},
		{
			name:    "negative dedup window",
			mutate:  func(c *DetectorConfig) { c.DedupWindow = -time.Minute },
			wantErr: "dedup window",
		},
		{
			name:    "rapid cap below base",
			mutate:  func(c *DetectorConfig) { c.RapidMaxScore = c.RapidBaseScore - 1 },
			wantErr: "rapid max score",
		},
		{
			name:    "dominance ratio above one",
			mutate:  func(c *DetectorConfig) { c.DominanceRatio = 1.5 },
			wantErr: "dominance ratio",
		},
		{
			name:    "duopoly fetch bound below judge threshold",
			mutate:  func(c *DetectorConfig) { c.DuopolyMaxBids = c.DuopolyMinTotal - 1 },
			wantErr: "duopoly max bids",
		},
		{
			name:    "alternating chain too short to alternate",
			mutate:  func(c *DetectorConfig) { c.AlternatingRecentBids = 3 },
			wantErr: "alternating recent bids",
		},
		{
			name:    "baseline factor of one flags everything",
			mutate:  func(c *DetectorConfig) { c.BaselineSpikeFactor = 1.0 },
			wantErr: "baseline spike factor",
		},
		{
			name:    "inverted historical band",
			mutate:  func(c *DetectorConfig) { c.HistoricalStartRatioLow = 3.0 },
			wantErr: "historical start ratio high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultDetectorConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
