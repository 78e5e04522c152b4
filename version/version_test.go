package version

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func TestThinBlockProtocolSupportsBloomFilters(t *testing.T) {
	require.GreaterOrEqual(t, ThinBlockProtocol, wire.BIP0037Version)
	require.LessOrEqual(t, ThinBlockProtocol, wire.ProtocolVersion)
}
