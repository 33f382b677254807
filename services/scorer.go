package services

// Match-performance scoring: maps one player's statline from a finished
// match to zero or more style activations. Rules are evaluated
// independently, so a single performance can trigger several styles.

// Style names as seeded in the catalog.
const (
	StyleClinicalFinisher = "Clinical Finisher"
	StyleSpeedster        = "Speedster"
	StyleBallWinner       = "Ball Winner"
	StylePlaymaker        = "Playmaker"
)

// PlayerStatline is one player's per-match statistics as delivered by the
// stats provider.
type PlayerStatline struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	MatchID    string `json:"match_id"`
	Gameweek   int    `json:"gameweek"`
	Season     string `json:"season"`

	Goals              int     `json:"goals"`
	Assists            int     `json:"assists"`
	PassAccuracy       float64 `json:"pass_accuracy"` // percent, 0-100
	SuccessfulDribbles int     `json:"successful_dribbles"`
	Tackles            int     `json:"tackles"`
	Interceptions      int     `json:"interceptions"`
	KeyPasses          int     `json:"key_passes"`
	MinutesPlayed      int     `json:"minutes_played"`
}

// StyleMatch is one triggered rule: which style fired, for how many
// points, and how confident the rule is in the classification.
type StyleMatch struct {
	StyleName  string
	Points     int64
	Confidence float64
}

// EvaluatePerformance applies the activation rules to a statline.
// Thresholds are strict (>), and point arithmetic stays in integers.
// A statline matching no rule returns an empty slice, not an error.
func EvaluatePerformance(st PlayerStatline) []StyleMatch {
	var matches []StyleMatch

	if st.Goals > 0 {
		matches = append(matches, StyleMatch{
			StyleName:  StyleClinicalFinisher,
			Points:     int64(st.Goals) * 10,
			Confidence: 0.9,
		})
	}

	if st.PassAccuracy > 85 && st.SuccessfulDribbles > 3 {
		matches = append(matches, StyleMatch{
			StyleName:  StyleSpeedster,
			Points:     5,
			Confidence: 0.7,
		})
	}

	if st.Tackles+st.Interceptions > 5 {
		matches = append(matches, StyleMatch{
			StyleName:  StyleBallWinner,
			Points:     int64(st.Tackles+st.Interceptions) * 2,
			Confidence: 0.8,
		})
	}

	if st.Assists > 0 || st.KeyPasses > 3 {
		matches = append(matches, StyleMatch{
			StyleName:  StylePlaymaker,
			Points:     int64(st.Assists)*8 + int64(st.KeyPasses)*2,
			Confidence: 0.85,
		})
	}

	return matches
}

// RarityBonus converts a rule's raw points into the bonus portion awarded
// on top, per the matched card's rarity multiplier. Truncates toward zero.
func RarityBonus(points int64, multiplier float64) int64 {
	if multiplier <= 1.0 {
		return 0
	}
	return int64(float64(points) * (multiplier - 1.0))
}
