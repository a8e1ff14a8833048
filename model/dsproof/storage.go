package dsproof

import (
	"math"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/floweethehub/thehub-sub000/util/bloom"
)

const (
	DefaultOrphanRetention    = 90 * time.Second
	DefaultRejectFilterItems  = 120000
	DefaultRejectFilterFPRate = 0.000001
)

type StorageConfig struct {
	OrphanRetention    time.Duration
	RejectFilterItems  uint32
	RejectFilterFPRate float64
	Clock              clock.Clock
}

// OrphanRef names an orphan proof and the peer that sent it.
type OrphanRef struct {
	ProofID int
	PeerID  int64
}

type orphan struct {
	peerID int64
	added  time.Time
}

// Storage keeps the known proofs under integer ids. Orphans are proofs whose
// output could not be resolved yet, they are bucketed by the cheap hash of
// that output and dropped after the retention window.
type Storage struct {
	lock sync.Mutex

	proofs       map[int]*DoubleSpendProof
	hashToID     map[util.Hash]int
	orphans      map[int]orphan
	prevOutIndex map[uint64][]int
	nextID       int

	recentRejects *bloom.RollingFilter
	retention     time.Duration
	clock         clock.Clock
}

func NewStorage(cfg StorageConfig) *Storage {
	s := &Storage{
		proofs:       make(map[int]*DoubleSpendProof),
		hashToID:     make(map[util.Hash]int),
		orphans:      make(map[int]orphan),
		prevOutIndex: make(map[uint64][]int),
		retention:    cfg.OrphanRetention,
		clock:        cfg.Clock,
	}
	if s.retention <= 0 {
		s.retention = DefaultOrphanRetention
	}
	if s.clock == nil {
		s.clock = clock.NewDefaultClock()
	}
	items, fpRate := cfg.RejectFilterItems, cfg.RejectFilterFPRate
	if items == 0 {
		items = DefaultRejectFilterItems
	}
	if fpRate <= 0 {
		fpRate = DefaultRejectFilterFPRate
	}
	s.recentRejects = bloom.NewRollingFilter(items, fpRate)
	return s
}

// Add stores proof unless an identical one is known and returns its id.
func (s *Storage) Add(proof *DoubleSpendProof) (id int, isNew bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.add(proof)
}

func (s *Storage) add(proof *DoubleSpendProof) (int, bool) {
	hash := proof.GetHash()
	if id, ok := s.hashToID[hash]; ok {
		return id, false
	}
	for {
		if _, used := s.proofs[s.nextID]; !used {
			break
		}
		if s.nextID == math.MaxInt32 {
			s.nextID = 0
		} else {
			s.nextID++
		}
	}
	id := s.nextID
	s.proofs[id] = proof
	s.hashToID[hash] = id
	return id, true
}

// AddOrphan stores a proof that can not be validated yet.
func (s *Storage) AddOrphan(proof *DoubleSpendProof, peerID int64) (int, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	id, isNew := s.add(proof)
	if !isNew {
		return id, false
	}
	s.orphans[id] = orphan{peerID: peerID, added: s.clock.Now()}
	cheap := proof.OutPoint().CheapHash()
	s.prevOutIndex[cheap] = append(s.prevOutIndex[cheap], id)
	log.Print("dsproof", "debug", "orphan proof %d for %s from peer %d", id, proof.OutPoint().String(), peerID)
	return id, true
}

// FindOrphans lists the orphans bucketed with prevout, they stay orphans
// until claimed or removed.
func (s *Storage) FindOrphans(prevout *outpoint.OutPoint) []OrphanRef {
	s.lock.Lock()
	defer s.lock.Unlock()
	ids := s.prevOutIndex[prevout.CheapHash()]
	ret := make([]OrphanRef, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.orphans[id]; ok {
			ret = append(ret, OrphanRef{ProofID: id, PeerID: o.peerID})
		}
	}
	return ret
}

// ClaimOrphan turns an orphan into a regular proof.
func (s *Storage) ClaimOrphan(id int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if proof, ok := s.proofs[id]; ok {
		s.dropOrphan(id, proof)
	}
}

func (s *Storage) dropOrphan(id int, proof *DoubleSpendProof) {
	if _, ok := s.orphans[id]; !ok {
		return
	}
	delete(s.orphans, id)
	cheap := proof.OutPoint().CheapHash()
	bucket := s.prevOutIndex[cheap]
	for i, other := range bucket {
		if other == id {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(s.prevOutIndex, cheap)
	} else {
		s.prevOutIndex[cheap] = bucket
	}
}

// Remove forgets proof id in every index.
func (s *Storage) Remove(id int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.remove(id)
}

func (s *Storage) remove(id int) {
	proof, ok := s.proofs[id]
	if !ok {
		return
	}
	s.dropOrphan(id, proof)
	delete(s.hashToID, proof.GetHash())
	delete(s.proofs, id)
}

func (s *Storage) Lookup(id int) *DoubleSpendProof {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.proofs[id]
}

// LookupByHash returns the proof with the given content hash and its id,
// id is -1 when it is unknown.
func (s *Storage) LookupByHash(hash util.Hash) (*DoubleSpendProof, int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	id, ok := s.hashToID[hash]
	if !ok {
		return nil, -1
	}
	return s.proofs[id], id
}

func (s *Storage) Exists(hash util.Hash) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.hashToID[hash]
	return ok
}

func (s *Storage) IsOrphan(id int) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.orphans[id]
	return ok
}

// PeriodicCleanup drops the orphans older than the retention window and
// returns how many went.
func (s *Storage) PeriodicCleanup() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	cutoff := s.clock.Now().Add(-s.retention)
	var expired []int
	for id, o := range s.orphans {
		if !o.added.After(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.remove(id)
	}
	if len(expired) > 0 {
		log.Print("dsproof", "debug", "expired %d orphan proofs", len(expired))
	}
	return len(expired)
}

func (s *Storage) IsRecentlyRejectedProof(hash util.Hash) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.recentRejects.ContainsHash(&hash)
}

func (s *Storage) MarkProofRejected(hash util.Hash) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.recentRejects.InsertHash(&hash)
}

// NewBlockFound forgets the rejections, they were judged against the
// previous UTXO set.
func (s *Storage) NewBlockFound() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.recentRejects.Reset()
}

func (s *Storage) Size() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.proofs)
}

func (s *Storage) OrphanCount() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.orphans)
}
