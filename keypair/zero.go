package keypair

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"math/big"
)

// wipeKey zeroes the private scalars of the key.
// The standard library keeps internal precomputed copies for some
// key types that can not be reached from here.
func wipeKey(key crypto.PrivateKey) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		wipeInt(k.D)
		for _, p := range k.Primes {
			wipeInt(p)
		}
		wipeInt(k.Precomputed.Dp)
		wipeInt(k.Precomputed.Dq)
		wipeInt(k.Precomputed.Qinv)
		for _, v := range k.Precomputed.CRTValues {
			wipeInt(v.Exp)
			wipeInt(v.Coeff)
			wipeInt(v.R)
		}
	case *ecdsa.PrivateKey:
		wipeInt(k.D)
	case *dsa.PrivateKey:
		wipeInt(k.X)
	case ed25519.PrivateKey:
		clear(k)
	}
}

func wipeInt(n *big.Int) {
	if n == nil {
		return
	}
	clear(n.Bits())
	n.SetInt64(0)
}

// wipe zeroes the buffer
func wipe(b []byte) {
	clear(b)
}
