package models

import (
	"time"

	"github.com/lightlink-network/withdrawal-relayer/crossdomain"
)

// Withdrawal is a registry record of an L2 withdrawal, keyed by the hash of
// the L2 transaction that initiated it. The intent fields hold either a
// bridge transfer or a raw message.
type Withdrawal struct {
	TxHash                   string `json:"tx_hash" bson:"tx_hash"`
	Network                  string `json:"network" bson:"network"`
	crossdomain.IntentFields `bson:",inline"`
	WithdrawalHash           string    `json:"withdrawal_hash,omitempty" bson:"withdrawal_hash,omitempty"`
	CreatedAt                time.Time `json:"created_at" bson:"created_at,omitempty"`
	UpdatedAt                time.Time `json:"updated_at" bson:"updated_at"`
}
