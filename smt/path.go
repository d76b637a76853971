package smt

import "github.com/shardnode/core/digest"

// keyToNibbles hashes key and expands the 32-byte digest into 64 nibbles,
// most-significant first (§3 "Nibble path").
func keyToNibbles(key []byte) []byte {
	h := digest.Sum(key)
	return bytesToNibbles(h[:])
}

func bytesToNibbles(b []byte) []byte {
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = c >> 4
		out[i*2+1] = c & 0x0f
	}
	return out
}

// commonPrefixLen returns the length of the shared prefix of a and b.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// encodePath applies the classic hex-prefix (HP) scheme: the first nibble
// carries two flag bits (terminator/leaf, and odd-length), so that a
// Branch-with-remaining-suffix can never be confused with a
// Leaf-with-remaining-suffix of the same nibbles (§4.C).
func encodePath(nibbles []byte, leaf bool) []byte {
	var flag byte
	if leaf {
		flag = 2
	}
	odd := len(nibbles) % 2
	flag += byte(odd)

	out := make([]byte, 0, len(nibbles)/2+1)
	if odd == 1 {
		out = append(out, flag<<4|nibbles[0])
		nibbles = nibbles[1:]
	} else {
		out = append(out, flag<<4)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

// decodePath reverses encodePath.
func decodePath(compact []byte) (nibbles []byte, leaf bool) {
	if len(compact) == 0 {
		return nil, false
	}
	flag := compact[0] >> 4
	leaf = flag&2 != 0
	odd := flag&1 != 0

	if odd {
		nibbles = append(nibbles, compact[0]&0x0f)
	}
	for _, b := range compact[1:] {
		nibbles = append(nibbles, b>>4, b&0x0f)
	}
	return nibbles, leaf
}
