package valueobject

import "fmt"

// Label is the binary fraud decision.
type Label int

const (
	LabelLegit Label = 0
	LabelFraud Label = 1
)

// LabelFromInt validates a raw 0/1 value.
func LabelFromInt(v int) (Label, error) {
	switch Label(v) {
	case LabelLegit, LabelFraud:
		return Label(v), nil
	default:
		return 0, fmt.Errorf("invalid label: %d", v)
	}
}

// IsFraud reports whether the label flags the transaction.
func (l Label) IsFraud() bool {
	return l == LabelFraud
}

// Int returns the label as 0 or 1.
func (l Label) Int() int {
	return int(l)
}
