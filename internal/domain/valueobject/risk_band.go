package valueobject

import "fmt"

// RiskBand is an operator-facing bucket of the fraud probability. It is
// informational only; the decision is made by the threshold alone.
type RiskBand struct {
	value string
}

var (
	RiskBandLow      = RiskBand{value: "LOW"}
	RiskBandMedium   = RiskBand{value: "MEDIUM"}
	RiskBandHigh     = RiskBand{value: "HIGH"}
	RiskBandCritical = RiskBand{value: "CRITICAL"}
)

// RiskBandFromString reconstructs a RiskBand from its string representation.
func RiskBandFromString(s string) (RiskBand, error) {
	switch s {
	case "LOW":
		return RiskBandLow, nil
	case "MEDIUM":
		return RiskBandMedium, nil
	case "HIGH":
		return RiskBandHigh, nil
	case "CRITICAL":
		return RiskBandCritical, nil
	default:
		return RiskBand{}, fmt.Errorf("invalid risk band: %s", s)
	}
}

// RiskBandFromProbability buckets p. MEDIUM starts at the 0.20 decision
// threshold so every flagged transaction is at least MEDIUM.
func RiskBandFromProbability(p float64) RiskBand {
	switch {
	case p >= 0.90:
		return RiskBandCritical
	case p >= 0.60:
		return RiskBandHigh
	case p >= 0.20:
		return RiskBandMedium
	default:
		return RiskBandLow
	}
}

func (r RiskBand) String() string {
	return r.value
}

// IsZero returns true if the RiskBand has not been set.
func (r RiskBand) IsZero() bool {
	return r.value == ""
}
