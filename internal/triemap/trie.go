// Package triemap implements the longest-prefix-match binary radix trie
// shared by the IANA allocation directory and the RIPE route directories.
//
// A binary tree keyed by the MSB-first bits of the address, where a
// node may additionally carry a "terminal" marker (the CIDR that ends
// there) and an arbitrary payload. One tree instance is built per
// address family; IPv4 and IPv6 payloads are never mixed in the same
// tree.
package triemap

import "net/netip"

// Node is one level of the trie. Zero and One are the children reached by
// the next address bit; Terminal/Payload are only set when some inserted
// network ends at exactly this depth.
type Node[T any] struct {
	Zero, One *Node[T]
	Terminal  netip.Prefix
	hasTerm   bool
	Payload   T
}

// Trie is a binary radix tree over one address family's bit space.
type Trie[T any] struct {
	root *Node[T]
	v6   bool
}

// New returns an empty trie for the given address family.
func New[T any](v6 bool) *Trie[T] {
	return &Trie[T]{root: &Node[T]{}, v6: v6}
}

// Insert walks (creating Zero/One children as needed) to the depth of
// net's prefix length and records net/payload as the terminal there.
func (t *Trie[T]) Insert(net netip.Prefix, payload T) {
	net = net.Masked()
	node := t.root
	addr := net.Addr()
	for bi := 0; bi < net.Bits(); bi++ {
		if bitAt(addr, bi) {
			if node.One == nil {
				node.One = &Node[T]{}
			}
			node = node.One
		} else {
			if node.Zero == nil {
				node.Zero = &Node[T]{}
			}
			node = node.Zero
		}
	}
	node.Terminal = net
	node.hasTerm = true
	node.Payload = payload
}

// LookupAllLevels walks the bits of ip (which may itself be a network, in
// which case the walk stops at its own prefix length rather than the
// family width) and returns every terminal whose network contains ip,
// ordered least-specific to most-specific. maxMatches, if > 0, caps the
// number of candidates returned once reached.
func (t *Trie[T]) LookupAllLevels(ip netip.Prefix, maxMatches int) []T {
	limit := 32
	if t.v6 {
		limit = 128
	}
	if ip.IsValid() && ip.Bits() >= 0 {
		limit = ip.Bits()
	}

	var out []T
	node := t.root
	addr := ip.Addr()
	for bi := 0; ; bi++ {
		if node.hasTerm && node.Terminal.Contains(addr) {
			out = append(out, node.Payload)
		}
		if bi >= limit || (maxMatches > 0 && len(out) >= maxMatches) {
			return out
		}
		var next *Node[T]
		if bitAt(addr, bi) {
			next = node.One
		} else {
			next = node.Zero
		}
		if next == nil {
			return out
		}
		node = next
	}
}

// LookupFirst returns the least-specific covering network's payload, or
// the zero value and false if none covers ip.
func (t *Trie[T]) LookupFirst(ip netip.Prefix) (T, bool) {
	res := t.LookupAllLevels(ip, 1)
	if len(res) == 0 {
		var zero T
		return zero, false
	}
	return res[0], true
}

// LookupBest returns the most-specific covering network's payload — the
// same semantics as a routing table's longest-prefix-match.
func (t *Trie[T]) LookupBest(ip netip.Prefix) (T, bool) {
	res := t.LookupAllLevels(ip, 0)
	if len(res) == 0 {
		var zero T
		return zero, false
	}
	return res[len(res)-1], true
}

// LookupNetExact returns only the candidates from LookupAllLevels whose
// terminal prefix length exactly equals net.Bits() — i.e. objects
// registered for this exact CIDR, not a covering supernet.
func (t *Trie[T]) LookupNetExact(net netip.Prefix) []T {
	var out []T
	node := t.root
	addr := net.Addr()
	for bi := 0; bi <= net.Bits(); bi++ {
		if node.hasTerm && node.Terminal.Bits() == net.Bits() && node.Terminal.Contains(addr) {
			out = append(out, node.Payload)
		}
		if bi >= net.Bits() {
			break
		}
		var next *Node[T]
		if bitAt(addr, bi) {
			next = node.One
		} else {
			next = node.Zero
		}
		if next == nil {
			break
		}
		node = next
	}
	return out
}

func bitAt(addr netip.Addr, i int) bool {
	b := addr.As16()
	if addr.Is4() {
		b4 := addr.As4()
		byteIdx := i / 8
		if byteIdx >= len(b4) {
			return false
		}
		return b4[byteIdx]&(1<<(7-uint(i%8))) != 0
	}
	byteIdx := i / 8
	if byteIdx >= len(b) {
		return false
	}
	return b[byteIdx]&(1<<(7-uint(i%8))) != 0
}
