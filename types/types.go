package types

// RelayState represents the lifecycle state of an L2 to L1 withdrawal as seen from L1
type RelayState string

const (
	// NotProven - Withdrawal has no proven record on L1 yet and must be proven to start the challenge period
	NotProven RelayState = "NOT_PROVEN"

	// InChallengePeriod - Withdrawal is proven and is undergoing the challenge period
	InChallengePeriod RelayState = "IN_CHALLENGE_PERIOD"

	// ReadyToFinalize - Withdrawal is proven and the challenge period has elapsed
	ReadyToFinalize RelayState = "READY_TO_FINALIZE"

	// Relayed - Withdrawal has been finalized on L1
	Relayed RelayState = "RELAYED"
)

func (s RelayState) String() string {
	return string(s)
}

// Valid reports whether s is one of the known relay states.
func (s RelayState) Valid() bool {
	switch s {
	case NotProven, InChallengePeriod, ReadyToFinalize, Relayed:
		return true
	}
	return false
}
