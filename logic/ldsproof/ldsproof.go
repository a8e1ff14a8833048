// Package ldsproof handles double spend proofs received from peers.
package ldsproof

import (
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/logic/lscript"
	"github.com/floweethehub/thehub-sub000/model/chain"
	"github.com/floweethehub/thehub-sub000/model/dsproof"
	"github.com/floweethehub/thehub-sub000/model/mempool"
	"github.com/floweethehub/thehub-sub000/model/tx"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/util"
)

// InvalidProofScore is the misbehaviour charged for a proof that fails
// validation.
const InvalidProofScore = 10

type ProofResult struct {
	Validity dsproof.Validity
	// ProofID is the storage id, mempool.NoDSProof when the proof was
	// not stored.
	ProofID int
	// Tx is the pool transaction the proof was attached to. Only then
	// should the proof be relayed.
	Tx    *tx.Tx
	Score int
	Err   error
}

type Config struct {
	Chain    *chain.Chain
	Pool     *mempool.TxMempool
	Proofs   *dsproof.Storage
	Coins    utxo.CoinsView
	Verifier dsproof.ScriptVerifier
}

type Handler struct {
	chain    *chain.Chain
	pool     *mempool.TxMempool
	proofs   *dsproof.Storage
	coins    utxo.CoinsView
	verifier dsproof.ScriptVerifier
}

func NewHandler(cfg Config) *Handler {
	h := &Handler{
		chain:    cfg.Chain,
		pool:     cfg.Pool,
		proofs:   cfg.Proofs,
		coins:    cfg.Coins,
		verifier: cfg.Verifier,
	}
	if h.verifier == nil {
		h.verifier = lscript.NewVerifier()
	}
	return h
}

// AddDoubleSpendProof validates a proof sent by peerID. A valid proof is
// attached to the pool transaction it concerns, unless that transaction
// already has one. Proofs that can not be checked yet are kept as orphans
// until the missing transaction shows up.
func (h *Handler) AddDoubleSpendProof(proof *dsproof.DoubleSpendProof, peerID int64) *ProofResult {
	hash := proof.GetHash()
	result := &ProofResult{ProofID: mempool.NoDSProof}

	if h.proofs.IsRecentlyRejectedProof(hash) {
		result.Validity = dsproof.Invalid
		result.Err = errcode.NewWithDesc(errcode.DSProofMalformed, "proof %s recently rejected", hash)
		return result
	}
	if _, id := h.proofs.LookupByHash(hash); id != -1 {
		result.Validity = dsproof.Valid
		result.ProofID = id
		return result
	}
	if err := proof.CheckSanity(); err != nil {
		h.proofs.MarkProofRejected(hash)
		result.Validity = dsproof.Invalid
		result.Score = InvalidProofScore
		result.Err = err
		return result
	}

	notifier := h.chain.Notifier()
	notifier.Hold()
	defer notifier.Release()
	h.chain.Lock()
	defer h.chain.Unlock()
	h.pool.LockQueued()
	result.Validity = proof.Validate(h.pool, h.coins, h.verifier)
	switch result.Validity {
	case dsproof.Valid:
		spender := h.pool.GetSpender(proof.OutPoint())
		entry := h.pool.FindTxWithoutLock(spender.GetHash())
		if entry.HasDSProof() {
			// one proof per transaction is enough
			result.ProofID = entry.GetDSProof()
			break
		}
		result.ProofID, _ = h.proofs.Add(proof)
		h.pool.SetDSProofWithoutLock(spender.GetHash(), result.ProofID)
		result.Tx = spender
	case dsproof.MissingTransaction, dsproof.MissingUTXO:
		result.ProofID, _ = h.proofs.AddOrphan(proof, peerID)
	default:
		h.proofs.MarkProofRejected(hash)
		result.Score = InvalidProofScore
		result.Err = errcode.NewWithDesc(errcode.DSProofMalformed, "proof %s does not validate", hash)
	}
	h.pool.UnlockQueued()

	if result.Tx != nil {
		notifier.DoubleSpendProofFound(result.Tx, result.ProofID, proof.Bytes())
	}
	log.Print("dsproof", "debug", "proof %s from peer %d is %s, id %d", hash, peerID, result.Validity, result.ProofID)
	return result
}

// Lookup returns the proof with the given hash, nil when unknown.
func (h *Handler) Lookup(proofHash util.Hash) *dsproof.DoubleSpendProof {
	proof, _ := h.proofs.LookupByHash(proofHash)
	return proof
}

func (h *Handler) Exists(proofHash util.Hash) bool {
	return h.proofs.Exists(proofHash)
}

// ProofForTx returns the proof attached to the pool transaction txid.
func (h *Handler) ProofForTx(txid util.Hash) *dsproof.DoubleSpendProof {
	entry := h.pool.FindTx(txid)
	if entry == nil || !entry.HasDSProof() {
		return nil
	}
	return h.proofs.Lookup(entry.GetDSProof())
}
