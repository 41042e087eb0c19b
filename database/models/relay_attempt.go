package models

import "time"

// RelayAttempt records one relay step taken for a withdrawal.
type RelayAttempt struct {
	WithdrawalHash   string    `json:"withdrawal_hash" bson:"withdrawal_hash"`
	TxHash           string    `json:"tx_hash,omitempty" bson:"tx_hash,omitempty"`
	Network          string    `json:"network" bson:"network"`
	Action           string    `json:"action" bson:"action"`
	State            string    `json:"state" bson:"state"`
	L1TxHash         string    `json:"l1_tx_hash,omitempty" bson:"l1_tx_hash,omitempty"`
	BlockNumber      uint64    `json:"block_number,omitempty" bson:"block_number,omitempty"`
	GasUsed          uint64    `json:"gas_used,omitempty" bson:"gas_used,omitempty"`
	SecondsRemaining uint64    `json:"seconds_remaining,omitempty" bson:"seconds_remaining,omitempty"`
	Error            string    `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}
