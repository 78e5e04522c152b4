package store

import (
	"sort"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/tendermint/thinrelay/internal/test/factory"
)

func TestTxStoreSaveLoad(t *testing.T) {
	ts := NewTxStore(dbm.NewMemDB())
	tx := factory.MakeTx(1)
	hash := tx.TxHash()

	got, err := ts.LoadTx(hash)
	require.NoError(t, err)
	require.Nil(t, got)

	has, err := ts.HasTx(hash)
	require.NoError(t, err)
	require.False(t, has)

	require.NoError(t, ts.SaveTx(tx))

	got, err = ts.LoadTx(hash)
	require.NoError(t, err)
	require.Equal(t, hash, got.TxHash())

	has, err = ts.HasTx(hash)
	require.NoError(t, err)
	require.True(t, has)

	require.Equal(t, hash, ts.FindTx(&hash).TxHash())

	require.NoError(t, ts.DeleteTx(hash))
	require.Nil(t, ts.FindTx(&hash))

	// deleting twice is fine
	require.NoError(t, ts.DeleteTx(hash))
}

func TestTxStoreCorruptEntry(t *testing.T) {
	db := dbm.NewMemDB()
	ts := NewTxStore(db)
	hash := factory.MakeTx(2).TxHash()

	require.NoError(t, db.Set(txKey(hash), []byte{0x01, 0x02}))

	_, err := ts.LoadTx(hash)
	require.Error(t, err)
	assert.Nil(t, ts.FindTx(&hash))
}

func TestTxStoreWrongHash(t *testing.T) {
	db := dbm.NewMemDB()
	ts := NewTxStore(db)

	other := factory.MakeTx(3)
	require.NoError(t, ts.SaveTx(other))
	otherHash := other.TxHash()
	bz, err := db.Get(txKey(otherHash))
	require.NoError(t, err)

	hash := factory.MakeTx(4).TxHash()
	require.NoError(t, db.Set(txKey(hash), bz))

	_, err = ts.LoadTx(hash)
	require.Error(t, err)
}

func TestTxStoreTxHashes(t *testing.T) {
	ts := NewTxStore(dbm.NewMemDB())
	txs := factory.MakeTxs(10, 5)
	for _, tx := range txs {
		require.NoError(t, ts.SaveTx(tx))
	}
	block := factory.MakeBlock(1, 2)
	require.NoError(t, ts.SaveBlockHeader(&block.Header))

	hashes, err := ts.TxHashes()
	require.NoError(t, err)

	want := factory.TxHashes(txs)
	sort.Slice(want, func(i, j int) bool {
		return string(want[i][:]) < string(want[j][:])
	})
	require.Equal(t, want, hashes)
}

func TestTxStoreBlockHeaders(t *testing.T) {
	ts := NewTxStore(dbm.NewMemDB())
	block := factory.MakeBlock(5, 3)
	hash := block.BlockHash()

	has, err := ts.HasBlock(hash)
	require.NoError(t, err)
	require.False(t, has)

	header, err := ts.LoadBlockHeader(hash)
	require.NoError(t, err)
	require.Nil(t, header)

	require.NoError(t, ts.SaveBlockHeader(&block.Header))

	has, err = ts.HasBlock(hash)
	require.NoError(t, err)
	require.True(t, has)

	header, err = ts.LoadBlockHeader(hash)
	require.NoError(t, err)
	require.Equal(t, hash, header.BlockHash())

	// a tx with the same hash bytes lives under a different prefix
	var asTx chainhash.Hash
	copy(asTx[:], hash[:])
	has, err = ts.HasTx(asTx)
	require.NoError(t, err)
	require.False(t, has)
}

func TestKeyEncoding(t *testing.T) {
	hash := factory.MakeTx(7).TxHash()
	got, err := decodeTxKey(txKey(hash))
	require.NoError(t, err)
	require.Equal(t, hash, got)

	_, err = decodeTxKey(blockHeaderKey(hash))
	require.Error(t, err)
}
