package optimism

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
)

// OutputRoot computes the version 0 output root of an L2 block:
// keccak256(version ++ stateRoot ++ messagePasserStorageRoot ++ blockHash).
func OutputRoot(header *types.Header, messagePasserStorageRoot common.Hash) common.Hash {
	return ComputeOutputRoot(header.Root, messagePasserStorageRoot, header.Hash())
}

func ComputeOutputRoot(stateRoot, messagePasserStorageRoot, blockHash common.Hash) common.Hash {
	var version [32]byte
	return crypto.Keccak256Hash(version[:], stateRoot[:], messagePasserStorageRoot[:], blockHash[:])
}

// WithdrawalProof fetches the storage proof of a withdrawal slot in the
// L2ToL1MessagePasser at the given block and verifies it against the block's
// state root. It returns the trie nodes as expected by the OptimismPortal and
// the storage root of the message passer.
func (c *Client) WithdrawalProof(ctx context.Context, slot common.Hash, header *types.Header) ([][]byte, common.Hash, error) {
	p, err := c.GetProof(ctx, c.Opts.L2ToL1MessagePasserAddress, []string{slot.String()}, header.Number)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("failed to get withdrawal proof: %w", err)
	}
	if len(p.StorageProof) != 1 {
		return nil, common.Hash{}, errors.New("invalid amount of storage proofs")
	}
	if v := p.StorageProof[0].Value; v == nil || v.Sign() == 0 {
		return nil, common.Hash{}, fmt.Errorf("withdrawal slot %s is not set at block %s", slot.Hex(), header.Number)
	}
	if err := VerifyProof(header.Root, p); err != nil {
		return nil, common.Hash{}, err
	}

	trieNodes := make([][]byte, len(p.StorageProof[0].Proof))
	for i, s := range p.StorageProof[0].Proof {
		trieNodes[i] = common.FromHex(s)
	}
	return trieNodes, p.StorageHash, nil
}

// VerifyProof checks the account proof against stateRoot and every storage
// proof against the account's storage root.
func VerifyProof(stateRoot common.Hash, proof *gethclient.AccountResult) error {
	value, err := verify(stateRoot, crypto.Keccak256(proof.Address[:]), proof.AccountProof)
	if err != nil {
		return fmt.Errorf("failed to verify account proof: %w", err)
	}
	if value == nil {
		return fmt.Errorf("account %s not found in state", proof.Address.Hex())
	}

	var account types.StateAccount
	if err := rlp.DecodeBytes(value, &account); err != nil {
		return fmt.Errorf("failed to decode account: %w", err)
	}
	if account.Root != proof.StorageHash {
		return fmt.Errorf("storage root mismatch: account has %s, proof has %s", account.Root.Hex(), proof.StorageHash.Hex())
	}

	for _, sp := range proof.StorageProof {
		key := common.HexToHash(sp.Key)
		value, err := verify(proof.StorageHash, crypto.Keccak256(key[:]), sp.Proof)
		if err != nil {
			return fmt.Errorf("failed to verify storage proof of %s: %w", key.Hex(), err)
		}

		var stored []byte
		if value != nil {
			if err := rlp.DecodeBytes(value, &stored); err != nil {
				return fmt.Errorf("failed to decode storage value: %w", err)
			}
		}
		expected := sp.Value
		if expected == nil {
			expected = new(big.Int)
		}
		if !bytes.Equal(stored, expected.Bytes()) {
			return fmt.Errorf("storage value mismatch for %s", key.Hex())
		}
	}
	return nil
}

func verify(root common.Hash, key []byte, nodes []string) ([]byte, error) {
	db := memorydb.New()
	for _, node := range nodes {
		b := common.FromHex(node)
		if err := db.Put(crypto.Keccak256(b), b); err != nil {
			return nil, err
		}
	}
	return trie.VerifyProof(root, key, db)
}
