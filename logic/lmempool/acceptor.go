package lmempool

import (
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/logic/lscript"
	"github.com/floweethehub/thehub-sub000/logic/ltx"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/consensus"
	"github.com/floweethehub/thehub-sub000/model/dsproof"
	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/amount"
)

// OrphanProofFailScore is the misbehaviour charged to a peer whose orphan
// proof did not validate once the transaction it waited for arrived.
const OrphanProofFailScore = 1

type Status int

const (
	StatusAccepted Status = iota
	StatusRejected
	StatusDoubleSpend
)

var statusStrings = [...]string{"accepted", "rejected", "double-spend"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusStrings) {
		return "unknown"
	}
	return statusStrings[s]
}

// Penalty asks the caller to punish a peer.
type Penalty struct {
	PeerID int64
	Score  int
}

// AcceptResult is the outcome of offering a transaction to the pool. Err
// carries the reason for both rejections and double spends, ProofID is
// only set for double spends.
type AcceptResult struct {
	Status    Status
	Err       error
	ProofID   int
	Penalties []Penalty
}

func rejected(err error) *AcceptResult {
	return &AcceptResult{Status: StatusRejected, Err: err, ProofID: mempool.NoDSProof}
}

// Limits bound the packages a new transaction may join. Sizes are in bytes.
type Limits struct {
	AncestorCount   int
	AncestorSize    int64
	DescendantCount int
	DescendantSize  int64
	MaxPoolSize     int64
	MinRelayFee     util.FeeRate
}

func DefaultLimits() Limits {
	return Limits{
		AncestorCount:   25,
		AncestorSize:    101 * 1000,
		DescendantCount: 25,
		DescendantSize:  101 * 1000,
		MaxPoolSize:     300 * 1000 * 1000,
		MinRelayFee:     util.NewFeeRate(1000),
	}
}

type Config struct {
	Chain    *chain.Chain
	Pool     *mempool.TxMempool
	Proofs   *dsproof.Storage
	Coins    utxo.CoinsView
	Verifier *lscript.Verifier
	Limits   Limits
}

// TxAcceptor validates transactions against the chain tip and admits them
// to the pool. It takes the chain lock before the pool lock.
type TxAcceptor struct {
	chain    *chain.Chain
	pool     *mempool.TxMempool
	proofs   *dsproof.Storage
	coins    utxo.CoinsView
	verifier *lscript.Verifier
	limits   Limits
}

func NewTxAcceptor(cfg Config) *TxAcceptor {
	a := &TxAcceptor{
		chain:    cfg.Chain,
		pool:     cfg.Pool,
		proofs:   cfg.Proofs,
		coins:    cfg.Coins,
		verifier: cfg.Verifier,
		limits:   cfg.Limits,
	}
	if a.verifier == nil {
		a.verifier = lscript.NewVerifier()
	}
	if a.limits == (Limits{}) {
		a.limits = DefaultLimits()
	}
	if a.proofs != nil {
		a.pool.SetProofRemover(a.proofs)
	}
	return a
}

func (a *TxAcceptor) Pool() *mempool.TxMempool {
	return a.pool
}

func (a *TxAcceptor) Proofs() *dsproof.Storage {
	return a.proofs
}

func (a *TxAcceptor) Chain() *chain.Chain {
	return a.chain
}

// AcceptTx admits a locally created transaction.
func (a *TxAcceptor) AcceptTx(txn *tx.Tx) *AcceptResult {
	return a.AcceptTxFromNetwork(txn, -1)
}

// AcceptTxFromNetwork admits txn relayed by peerID. A transaction that
// spends an output already spent in the pool is not admitted, a proof of
// the double spend is attached to the pool transaction instead and its id
// returned so the caller can relay the proof.
func (a *TxAcceptor) AcceptTxFromNetwork(txn *tx.Tx, peerID int64) *AcceptResult {
	return a.accept(txn, peerID, 0)
}

// accept admits txn with its entry time set to acceptTime, or the pool
// clock when zero.
func (a *TxAcceptor) accept(txn *tx.Tx, peerID int64, acceptTime int64) *AcceptResult {
	if err := txn.CheckRegularTransaction(); err != nil {
		return rejected(err)
	}

	// subscribers hear about the outcome once both locks are released
	notifier := a.chain.Notifier()
	notifier.Hold()
	defer notifier.Release()
	a.chain.Lock()
	defer a.chain.Unlock()

	var notify []func()
	a.pool.LockQueued()
	result := a.acceptWithoutLock(txn, acceptTime, &notify)
	if result.Status == StatusAccepted {
		result.Penalties = a.rescueOrphanProofsWithoutLock(txn, &notify)
		a.pool.TrimToSizeWithoutLock(a.limits.MaxPoolSize, false)
		if a.pool.FindTxWithoutLock(txn.GetHash()) == nil {
			result = rejected(errcode.NewWithDesc(errcode.TooMinFeeRate, "mempool full"))
		} else {
			notify = append(notify, func() { notifier.SyncTransaction(txn) })
		}
	}
	a.pool.UnlockQueued()

	for _, fn := range notify {
		fn()
	}
	if result.Status == StatusAccepted {
		log.Print("mempool", "debug", "accepted tx %s from peer %d, pool size %d",
			txn.GetHash().String(), peerID, a.pool.Size())
	} else {
		log.Print("mempool", "debug", "tx %s from peer %d %s: %v",
			txn.GetHash().String(), peerID, result.Status, result.Err)
	}
	CheckMempool(a.pool, a.chain, a.coins)
	return result
}

func (a *TxAcceptor) acceptWithoutLock(txn *tx.Tx, acceptTime int64, notify *[]func()) *AcceptResult {
	hash := txn.GetHash()
	if err := ltx.ContextualCheckTransactionForCurrentBlock(txn, a.chain,
		consensus.StandardLockTimeVerifyFlags); err != nil {
		return rejected(err)
	}
	if a.pool.FindTxWithoutLock(hash) != nil {
		return rejected(errcode.NewWithDesc(errcode.AlreadHaveTx, "txn-already-in-mempool"))
	}

	view := mempool.NewCoinsViewMemPool(a.coins, a.pool)
	for _, in := range txn.GetIns() {
		if view.GetCoin(in.PreviousOutPoint) == nil {
			return rejected(errcode.NewWithDesc(errcode.MissParent, "missing input %s", in.PreviousOutPoint.String()))
		}
	}
	for _, in := range txn.GetIns() {
		if spender := a.pool.HasSpentOutWithoutLock(in.PreviousOutPoint); spender != nil {
			return a.doubleSpendWithoutLock(spender, txn, notify)
		}
	}

	entry, err := a.newEntryWithoutLock(txn, view, acceptTime)
	if err != nil {
		return rejected(err)
	}
	ancestors, err := a.pool.CalculateMemPoolAncestorsWithoutLock(txn, a.limits.AncestorCount,
		a.limits.AncestorSize, a.limits.DescendantCount, a.limits.DescendantSize, true)
	if err != nil {
		return rejected(err)
	}
	// scripts last, they are the expensive part
	if err := a.verifier.VerifyTransaction(txn, view, script.StandardScriptVerifyFlags); err != nil {
		return rejected(errcode.NewWithDesc(errcode.RejectTx, "mandatory-script-verify-flag-failed (%v)", err))
	}
	if err := a.pool.AddTxWithoutLock(entry, ancestors); err != nil {
		return rejected(err)
	}
	return &AcceptResult{Status: StatusAccepted, ProofID: mempool.NoDSProof}
}

// newEntryWithoutLock runs the checks that need the inputs resolved and
// builds the pool entry.
func (a *TxAcceptor) newEntryWithoutLock(txn *tx.Tx, view utxo.CoinsView, acceptTime int64) (*mempool.TxEntry, error) {
	lp, err := ltx.CalculateLockPoints(txn, a.chain, view, consensus.StandardLockTimeVerifyFlags)
	if err != nil {
		return nil, err
	}
	if !ltx.CheckSequenceLocks(a.chain, lp) {
		return nil, errcode.NewWithDesc(errcode.Nomature, "non-BIP68-final")
	}

	spendHeight := a.chain.TipHeight() + 1
	fee, err := ltx.CheckInputsMoney(txn, view, spendHeight)
	if err != nil {
		return nil, err
	}

	sigOps := txn.GetSigOpCount()
	if sigOps > consensus.MaxStandardTxSigOps {
		return nil, errcode.NewWithDesc(errcode.RejectTx, "bad-txns-too-many-sigops: %d", sigOps)
	}

	size := txn.SerializeSize()
	_, modFee := a.pool.ApplyDeltasWithoutLock(txn.GetHash(), 0, int64(fee))
	minFee := a.pool.GetMinFeeWithoutLock(a.limits.MaxPoolSize)
	if need := minFee.GetFee(size); modFee < need {
		return nil, errcode.NewWithDesc(errcode.TooMinFeeRate, "mempool min fee not met %d < %d", modFee, need)
	}
	if need := a.limits.MinRelayFee.GetFee(size); modFee < need {
		return nil, errcode.NewWithDesc(errcode.TooMinFeeRate, "min relay fee not met %d < %d", modFee, need)
	}

	var inChainValue amount.Amount
	var priority float64
	spendsCoinbase := false
	for _, in := range txn.GetIns() {
		coin := view.GetCoin(in.PreviousOutPoint)
		if coin.IsMempoolCoin() {
			continue
		}
		if coin.IsCoinBase() {
			spendsCoinbase = true
		}
		inChainValue += coin.GetAmount()
		priority += float64(coin.GetAmount()) * float64(spendHeight-coin.GetHeight())
	}
	if modSize := mempool.CalculateModifiedSize(txn, size); modSize > 0 {
		priority /= float64(modSize)
	}

	if acceptTime == 0 {
		acceptTime = a.pool.Clock().Now().Unix()
	}
	return mempool.NewTxEntry(txn, int64(fee), acceptTime, priority, a.chain.TipHeight(),
		inChainValue, spendsCoinbase, sigOps, *lp), nil
}

// doubleSpendWithoutLock builds, or reuses, the proof that existing and txn
// spend the same output and attaches it to existing.
func (a *TxAcceptor) doubleSpendWithoutLock(existing *mempool.TxEntry, txn *tx.Tx, notify *[]func()) *AcceptResult {
	conflict := errcode.NewWithDesc(errcode.DoubleSpend, "txn-mempool-conflict with %s", existing.Tx.GetHash().String())
	if existing.HasDSProof() {
		return &AcceptResult{Status: StatusDoubleSpend, Err: conflict, ProofID: existing.GetDSProof()}
	}
	if a.proofs == nil {
		return rejected(conflict)
	}

	proof, err := dsproof.Create(existing.Tx, txn)
	if err != nil {
		log.Print("mempool", "debug", "no proof for double spend of %s: %v", existing.Tx.GetHash().String(), err)
		return rejected(conflict)
	}
	if validity := proof.Validate(a.pool, a.coins, a.verifier); validity != dsproof.Valid {
		log.Print("mempool", "debug", "proof %s for %s is %s", proof.GetHash().String(),
			existing.Tx.GetHash().String(), validity)
		return rejected(conflict)
	}

	id, _ := a.proofs.Add(proof)
	a.pool.SetDSProofWithoutLock(existing.Tx.GetHash(), id)
	first, proofBytes := existing.Tx, proof.Bytes()
	*notify = append(*notify, func() {
		notifier := a.chain.Notifier()
		notifier.DoubleSpendFound(first, txn)
		notifier.DoubleSpendProofFound(first, id, proofBytes)
	})
	log.Print("mempool", "info", "double spend of %s by %s, proof %d", first.GetHash().String(),
		txn.GetHash().String(), id)
	return &AcceptResult{Status: StatusDoubleSpend, Err: conflict, ProofID: id}
}

// rescueOrphanProofsWithoutLock tries the orphan proofs waiting on an input
// of txn, which was just admitted. The first one to validate is attached,
// all others are dropped. Peers that sent only failing proofs are
// penalised.
func (a *TxAcceptor) rescueOrphanProofsWithoutLock(txn *tx.Tx, notify *[]func()) []Penalty {
	if a.proofs == nil {
		return nil
	}
	var penalties []Penalty
	hash := txn.GetHash()
	claimed := false
	for _, in := range txn.GetIns() {
		var matching []dsproof.OrphanRef
		for _, ref := range a.proofs.FindOrphans(in.PreviousOutPoint) {
			proof := a.proofs.Lookup(ref.ProofID)
			if proof != nil && *proof.OutPoint() == *in.PreviousOutPoint {
				matching = append(matching, ref)
			}
		}
		if len(matching) == 0 {
			continue
		}

		var failed []dsproof.OrphanRef
		for i, ref := range matching {
			proof := a.proofs.Lookup(ref.ProofID)
			if claimed || proof.Validate(a.pool, a.coins, a.verifier) != dsproof.Valid {
				if !claimed {
					failed = append(failed, ref)
				}
				a.proofs.Remove(ref.ProofID)
				continue
			}
			a.proofs.ClaimOrphan(ref.ProofID)
			a.pool.SetDSProofWithoutLock(hash, ref.ProofID)
			claimed = true
			id, proofBytes := ref.ProofID, proof.Bytes()
			*notify = append(*notify, func() {
				a.chain.Notifier().DoubleSpendProofFound(txn, id, proofBytes)
			})
			log.Print("mempool", "info", "orphan proof %d claimed by %s", id, hash.String())
			for _, rest := range matching[i+1:] {
				a.proofs.Remove(rest.ProofID)
			}
			break
		}
		if !claimed {
			for _, ref := range failed {
				penalties = append(penalties, Penalty{PeerID: ref.PeerID, Score: OrphanProofFailScore})
			}
		}
	}
	return penalties
}
