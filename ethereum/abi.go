package ethereum

const optimismPortalABI = `[
	{
		"inputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
		"name": "provenWithdrawals",
		"outputs": [
			{"internalType": "bytes32", "name": "outputRoot", "type": "bytes32"},
			{"internalType": "uint128", "name": "timestamp", "type": "uint128"},
			{"internalType": "uint128", "name": "l2OutputIndex", "type": "uint128"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "bytes32", "name": "", "type": "bytes32"}],
		"name": "finalizedWithdrawals",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "nonce", "type": "uint256"},
					{"internalType": "address", "name": "sender", "type": "address"},
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "uint256", "name": "value", "type": "uint256"},
					{"internalType": "uint256", "name": "gasLimit", "type": "uint256"},
					{"internalType": "bytes", "name": "data", "type": "bytes"}
				],
				"internalType": "struct Types.WithdrawalTransaction",
				"name": "_tx",
				"type": "tuple"
			},
			{"internalType": "uint256", "name": "_l2OutputIndex", "type": "uint256"},
			{
				"components": [
					{"internalType": "bytes32", "name": "version", "type": "bytes32"},
					{"internalType": "bytes32", "name": "stateRoot", "type": "bytes32"},
					{"internalType": "bytes32", "name": "messagePasserStorageRoot", "type": "bytes32"},
					{"internalType": "bytes32", "name": "latestBlockhash", "type": "bytes32"}
				],
				"internalType": "struct Types.OutputRootProof",
				"name": "_outputRootProof",
				"type": "tuple"
			},
			{"internalType": "bytes[]", "name": "_withdrawalProof", "type": "bytes[]"}
		],
		"name": "proveWithdrawalTransaction",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"components": [
					{"internalType": "uint256", "name": "nonce", "type": "uint256"},
					{"internalType": "address", "name": "sender", "type": "address"},
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "uint256", "name": "value", "type": "uint256"},
					{"internalType": "uint256", "name": "gasLimit", "type": "uint256"},
					{"internalType": "bytes", "name": "data", "type": "bytes"}
				],
				"internalType": "struct Types.WithdrawalTransaction",
				"name": "_tx",
				"type": "tuple"
			}
		],
		"name": "finalizeWithdrawalTransaction",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const l2OutputOracleABI = `[
	{
		"inputs": [],
		"name": "FINALIZATION_PERIOD_SECONDS",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "latestOutputIndex",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "_l2OutputIndex", "type": "uint256"}],
		"name": "getL2Output",
		"outputs": [
			{
				"components": [
					{"internalType": "bytes32", "name": "outputRoot", "type": "bytes32"},
					{"internalType": "uint128", "name": "timestamp", "type": "uint128"},
					{"internalType": "uint128", "name": "l2BlockNumber", "type": "uint128"}
				],
				"internalType": "struct Types.OutputProposal",
				"name": "",
				"type": "tuple"
			}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`
