package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeIDValidate(t *testing.T) {
	testCases := []struct {
		name  string
		id    string
		valid bool
	}{
		{"ipv4", "10.0.0.1:8333", true},
		{"ipv6", "[::1]:18333", true},
		{"empty", "", false},
		{"no port", "10.0.0.1", false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewNodeID(tc.id)
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestSortNodeIDs(t *testing.T) {
	ids := SortNodeIDs([]NodeID{"10.0.0.3:8333", "10.0.0.1:8333", "10.0.0.2:8333"})
	require.Equal(t, []NodeID{"10.0.0.1:8333", "10.0.0.2:8333", "10.0.0.3:8333"}, ids)
}
