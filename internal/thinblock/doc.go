/*
Package thinblock reassembles blocks announced as BIP37 merkleblocks from
transactions the node already holds.

A peer asked for a block with a match-all bloom filter answers with a
merkleblock carrying every transaction hash, followed by the transactions it
believes we lack. The Manager keeps one Assembler per block being rebuilt and
the set of peer Sessions feeding it; several peers may serve the same block
and whichever supplies the last missing transaction completes it for all.

The protocol has no "done" message. After the merkleblock the node sends a
ping and treats the matching pong as the end of the peer's answer. On that
pong the Arbiter either finds the block finished, re-requests what is still
missing (once), or gives up; the last peer to give up on a block falls back to
downloading the full block.

None of the types in this package lock. The Reactor serializes every event
touching them onto a single goroutine.
*/
package thinblock
