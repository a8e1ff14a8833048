package consensus

const (
	// CoinbaseMaturity coinbase transaction outputs can only be spent after this number of new blocks
	CoinbaseMaturity = 100

	// MaxTxSigOpsCount the maximum allowed number of signature check operations per transaction
	MaxTxSigOpsCount = 20000

	// MaxStandardTxSigOps is the policy limit for relayed transactions.
	MaxStandardTxSigOps = MaxTxSigOpsCount / 5

	// MinTxSize is the smallest serialized transaction accepted since the
	// magnetic anomaly upgrade.
	MinTxSize = 100
)

// Flags for nSequence and nLockTime locks
const (
	// LocktimeVerifySequence interprets sequence numbers as relative lock-time constraints
	LocktimeVerifySequence = 1 << 0

	// LocktimeMedianTimePast uses the median time past of the previous
	// block for time based nLockTime
	LocktimeMedianTimePast = 1 << 1

	StandardLockTimeVerifyFlags = LocktimeVerifySequence | LocktimeMedianTimePast
)
