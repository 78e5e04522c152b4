package commands

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/wire"

	"github.com/tendermint/thinrelay/version"
)

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimSpace(s))
}

func decodeTx(s string) (*wire.MsgTx, error) {
	bz, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("decoding tx hex: %w", err)
	}
	tx := new(wire.MsgTx)
	if err := tx.Deserialize(bytes.NewReader(bz)); err != nil {
		return nil, fmt.Errorf("decoding tx: %w", err)
	}
	return tx, nil
}

func decodeBlock(s string) (*wire.MsgBlock, error) {
	bz, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("decoding block hex: %w", err)
	}
	block := new(wire.MsgBlock)
	if err := block.Deserialize(bytes.NewReader(bz)); err != nil {
		return nil, fmt.Errorf("decoding block: %w", err)
	}
	return block, nil
}

func decodeMerkleBlock(s string) (*wire.MsgMerkleBlock, error) {
	bz, err := decodeHex(s)
	if err != nil {
		return nil, fmt.Errorf("decoding merkleblock hex: %w", err)
	}
	msg := new(wire.MsgMerkleBlock)
	if err := msg.BtcDecode(bytes.NewReader(bz), version.ThinBlockProtocol, wire.BaseEncoding); err != nil {
		return nil, fmt.Errorf("decoding merkleblock: %w", err)
	}
	return msg, nil
}

func encodeBlock(block *wire.MsgBlock) (string, error) {
	var buf bytes.Buffer
	if err := block.Serialize(&buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// readTxs decodes the hex transactions given directly and those listed one
// per line in path, if set. Blank lines and lines starting with # are
// skipped.
func readTxs(direct []string, path string) ([]*wire.MsgTx, error) {
	lines := append([]string(nil), direct...)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), wire.MaxBlockPayload*2)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, line)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	txs := make([]*wire.MsgTx, 0, len(lines))
	for i, line := range lines {
		tx, err := decodeTx(line)
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
