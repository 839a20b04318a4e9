package record

import "math/big"

// bigIntToTwosComplement renders n as the minimal big-endian two's
// complement byte string a Java BigInteger.toByteArray() would produce -
// the format OrientDB uses for decimal values.
func bigIntToTwosComplement(n *big.Int) []byte {
	if n.Sign() == 0 {
		return []byte{0}
	}
	if n.Sign() > 0 {
		b := n.Bytes()
		if len(b) == 0 || b[0]&0x80 != 0 {
			b = append([]byte{0}, b...)
		}
		return b
	}
	length := uint(n.BitLen()/8+1) * 8
	tmp := new(big.Int).Lsh(big.NewInt(1), length)
	tmp.Add(tmp, n)
	b := tmp.Bytes()
	for len(b) > 1 && b[0] == 0xff && b[1]&0x80 != 0 {
		b = b[1:]
	}
	return b
}

// bigIntFromTwosComplement reverses bigIntToTwosComplement.
func bigIntFromTwosComplement(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}
	n := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}
