package types

import (
	"errors"
	"fmt"
	"net"
	"sort"
)

// NodeID identifies a connected peer by its network address (host:port).
type NodeID string

// NewNodeID returns a validated NodeID.
func NewNodeID(addr string) (NodeID, error) {
	id := NodeID(addr)
	return id, id.Validate()
}

// Validate validates the NodeID.
func (id NodeID) Validate() error {
	if len(id) == 0 {
		return errors.New("empty node ID")
	}
	if _, _, err := net.SplitHostPort(string(id)); err != nil {
		return fmt.Errorf("node ID %q is not a host:port address: %w", string(id), err)
	}
	return nil
}

// SortNodeIDs sorts ids in place and returns them.
func SortNodeIDs(ids []NodeID) []NodeID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
