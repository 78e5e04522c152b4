package store

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/orderedcode"
	dbm "github.com/tendermint/tm-db"
)

/*
TxStore is a simple low level store for transactions the node holds outside
its relay cache, and for the headers of blocks it already has.

There are two types of information stored:
  - Transaction: the serialized transaction, keyed by its hash
  - Block header: the serialized header of every block handed to the node

TxStore is safe for concurrent use to the extent the underlying DB is.
*/
type TxStore struct {
	db dbm.DB
}

// NewTxStore returns a new TxStore with the given DB.
func NewTxStore(db dbm.DB) *TxStore {
	return &TxStore{db}
}

// SaveTx persists tx.
func (ts *TxStore) SaveTx(tx *wire.MsgTx) error {
	var buf bytes.Buffer
	buf.Grow(tx.SerializeSize())
	if err := tx.Serialize(&buf); err != nil {
		return fmt.Errorf("serializing tx %v: %w", tx.TxHash(), err)
	}
	hash := tx.TxHash()
	return ts.db.Set(txKey(hash), buf.Bytes())
}

// LoadTx returns the transaction with the given hash, or nil if there is
// none.
func (ts *TxStore) LoadTx(hash chainhash.Hash) (*wire.MsgTx, error) {
	bz, err := ts.db.Get(txKey(hash))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, nil
	}

	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(bz)); err != nil {
		return nil, fmt.Errorf("decoding tx %v: %w", hash, err)
	}
	if got := tx.TxHash(); got != hash {
		return nil, fmt.Errorf("stored tx %v has hash %v", hash, got)
	}
	return tx, nil
}

// HasTx reports whether the transaction with the given hash is stored.
func (ts *TxStore) HasTx(hash chainhash.Hash) (bool, error) {
	return ts.db.Has(txKey(hash))
}

// DeleteTx removes the transaction with the given hash. Deleting an absent
// transaction is not an error.
func (ts *TxStore) DeleteTx(hash chainhash.Hash) error {
	return ts.db.Delete(txKey(hash))
}

// FindTx looks a transaction up for thin block reassembly. Unreadable
// entries are treated as absent.
func (ts *TxStore) FindTx(hash *chainhash.Hash) *wire.MsgTx {
	tx, err := ts.LoadTx(*hash)
	if err != nil {
		return nil
	}
	return tx
}

// SaveBlockHeader records that the node has the block with the given
// header.
func (ts *TxStore) SaveBlockHeader(header *wire.BlockHeader) error {
	var buf bytes.Buffer
	if err := header.Serialize(&buf); err != nil {
		return fmt.Errorf("serializing header %v: %w", header.BlockHash(), err)
	}
	return ts.db.Set(blockHeaderKey(header.BlockHash()), buf.Bytes())
}

// LoadBlockHeader returns the header of the block with the given hash, or
// nil if the block is unknown.
func (ts *TxStore) LoadBlockHeader(hash chainhash.Hash) (*wire.BlockHeader, error) {
	bz, err := ts.db.Get(blockHeaderKey(hash))
	if err != nil {
		return nil, err
	}
	if len(bz) == 0 {
		return nil, nil
	}

	header := new(wire.BlockHeader)
	if err := header.Deserialize(bytes.NewReader(bz)); err != nil {
		return nil, fmt.Errorf("decoding header %v: %w", hash, err)
	}
	return header, nil
}

// HasBlock reports whether the node has the block with the given hash.
func (ts *TxStore) HasBlock(hash chainhash.Hash) (bool, error) {
	return ts.db.Has(blockHeaderKey(hash))
}

// TxHashes returns the hashes of every stored transaction in key order.
func (ts *TxStore) TxHashes() ([]chainhash.Hash, error) {
	start, err := orderedcode.Append(nil, prefixTx)
	if err != nil {
		return nil, err
	}
	end, err := orderedcode.Append(nil, prefixTx+1)
	if err != nil {
		return nil, err
	}

	iter, err := ts.db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var hashes []chainhash.Hash
	for ; iter.Valid(); iter.Next() {
		hash, err := decodeTxKey(iter.Key())
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, hash)
	}
	return hashes, iter.Error()
}

//---------------------------------- KEY ENCODING -----------------------------------------

const (
	// prefixes are unique across all thinrelay db's
	prefixTx          = int64(0)
	prefixBlockHeader = int64(1)
)

func txKey(hash chainhash.Hash) []byte {
	key, err := orderedcode.Append(nil, prefixTx, string(hash[:]))
	if err != nil {
		panic(err)
	}
	return key
}

func blockHeaderKey(hash chainhash.Hash) []byte {
	key, err := orderedcode.Append(nil, prefixBlockHeader, string(hash[:]))
	if err != nil {
		panic(err)
	}
	return key
}

func decodeTxKey(key []byte) (chainhash.Hash, error) {
	var (
		prefix int64
		raw    string
	)
	remaining, err := orderedcode.Parse(string(key), &prefix, &raw)
	if err != nil {
		return chainhash.Hash{}, err
	}
	if len(remaining) != 0 {
		return chainhash.Hash{}, fmt.Errorf("expected complete key but got remainder: %s", remaining)
	}
	if prefix != prefixTx {
		return chainhash.Hash{}, fmt.Errorf("incorrect prefix. Expected %v, got %v", prefixTx, prefix)
	}
	var hash chainhash.Hash
	if err := hash.SetBytes([]byte(raw)); err != nil {
		return chainhash.Hash{}, err
	}
	return hash, nil
}
