package evaluate

import "fmt"

// Decision is the outcome of the registration gate.
type Decision struct {
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Register  bool    `json:"register"`
}

// Gate approves registration when value <= threshold.
func Gate(value, threshold float64) Decision {
	return Decision{
		Value:     value,
		Threshold: threshold,
		Register:  value <= threshold,
	}
}

func (d Decision) String() string {
	if d.Register {
		return fmt.Sprintf("%g <= %g, registering model", d.Value, d.Threshold)
	}
	return fmt.Sprintf("%g > %g, model not registered", d.Value, d.Threshold)
}

// ApprovalStatus is the registry state a registered model starts in.
type ApprovalStatus string

const (
	PendingManualApproval ApprovalStatus = "PendingManualApproval"
	Approved              ApprovalStatus = "Approved"
	Rejected              ApprovalStatus = "Rejected"
)

// Validate checks the status is one the registry accepts.
func (s ApprovalStatus) Validate() error {
	switch s {
	case PendingManualApproval, Approved, Rejected:
		return nil
	default:
		return fmt.Errorf("invalid approval status: %q (valid: PendingManualApproval, Approved, Rejected)", s)
	}
}
