// Package inflight keeps track of which blocks have been requested from
// which peers.
package inflight

import (
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/tendermint/thinrelay/types"
)

// Index records the blocks in flight per peer. It is safe for concurrent use.
type Index struct {
	mtx    sync.RWMutex
	byPeer map[types.NodeID]map[chainhash.Hash]struct{}
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{byPeer: make(map[types.NodeID]map[chainhash.Hash]struct{})}
}

// MarkInFlight records that hash was requested from peer.
func (idx *Index) MarkInFlight(peer types.NodeID, hash chainhash.Hash) {
	idx.mtx.Lock()
	defer idx.mtx.Unlock()

	blocks, ok := idx.byPeer[peer]
	if !ok {
		blocks = make(map[chainhash.Hash]struct{})
		idx.byPeer[peer] = blocks
	}
	blocks[hash] = struct{}{}
}

// Erase forgets that hash was requested from peer.
func (idx *Index) Erase(peer types.NodeID, hash chainhash.Hash) {
	idx.mtx.Lock()
	defer idx.mtx.Unlock()

	blocks, ok := idx.byPeer[peer]
	if !ok {
		return
	}
	delete(blocks, hash)
	if len(blocks) == 0 {
		delete(idx.byPeer, peer)
	}
}

// IsInFlight reports whether hash is in flight from peer.
func (idx *Index) IsInFlight(peer types.NodeID, hash chainhash.Hash) bool {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	_, ok := idx.byPeer[peer][hash]
	return ok
}

// PeersFor returns the peers hash is in flight from, sorted.
func (idx *Index) PeersFor(hash chainhash.Hash) []types.NodeID {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	var peers []types.NodeID
	for peer, blocks := range idx.byPeer {
		if _, ok := blocks[hash]; ok {
			peers = append(peers, peer)
		}
	}
	return types.SortNodeIDs(peers)
}

// Count returns the number of blocks in flight from peer.
func (idx *Index) Count(peer types.NodeID) int {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	return len(idx.byPeer[peer])
}

// Clear forgets every block in flight from peer.
func (idx *Index) Clear(peer types.NodeID) {
	idx.mtx.Lock()
	defer idx.mtx.Unlock()

	delete(idx.byPeer, peer)
}
