package keypair

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"sync"

	"github.com/effective-security/xcred/pkierr"
)

// KeyType of the key pair
type KeyType int

// Key types
const (
	Unknown KeyType = iota
	RSA
	DSA
	ECDSA
)

func (t KeyType) String() string {
	switch t {
	case RSA:
		return "RSA"
	case DSA:
		return "DSA"
	case ECDSA:
		return "ECDSA"
	default:
		return "Unknown"
	}
}

// KeyPair is a parsed key pair.
// The value is immutable until Destroy is called,
// and is safe for concurrent use.
type KeyPair struct {
	keyType KeyType
	size    int
	public  crypto.PublicKey

	lock      sync.RWMutex
	private   crypto.PrivateKey
	destroyed bool
}

// New returns KeyPair for the private or public key.
// The returned pair takes ownership of the private key:
// Destroy wipes it.
func New(key any) (*KeyPair, error) {
	if key == nil {
		return nil, pkierr.Validationf("key is required")
	}

	kp := new(KeyPair)
	switch k := key.(type) {
	case *rsa.PrivateKey:
		if err := k.Validate(); err != nil {
			return nil, pkierr.Validationf("invalid RSA private key")
		}
		kp.private = k
		kp.public = &k.PublicKey
	case *ecdsa.PrivateKey:
		kp.private = k
		kp.public = &k.PublicKey
	case *dsa.PrivateKey:
		if err := checkDSAPrivateKey(k); err != nil {
			return nil, pkierr.Validationf("invalid DSA private key")
		}
		kp.private = k
		kp.public = &k.PublicKey
	case ed25519.PrivateKey:
		kp.private = k
		kp.public = k.Public()
	case *ecdh.PrivateKey:
		kp.private = k
		kp.public = k.Public()
	case crypto.Signer:
		// opaque keys, for instance backed by a token
		kp.private = k
		kp.public = k.Public()
	case *rsa.PublicKey, *ecdsa.PublicKey, *dsa.PublicKey, ed25519.PublicKey, *ecdh.PublicKey:
		kp.public = k
	default:
		return nil, pkierr.Validationf("unsupported key object: %T", key)
	}

	kp.keyType, kp.size = describe(kp.public)
	return kp, nil
}

func describe(pub crypto.PublicKey) (KeyType, int) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return RSA, k.N.BitLen()
	case *dsa.PublicKey:
		return DSA, k.P.BitLen()
	case *ecdsa.PublicKey:
		return ECDSA, k.Curve.Params().BitSize
	default:
		return Unknown, 0
	}
}

// Type returns the key type
func (kp *KeyPair) Type() KeyType {
	return kp.keyType
}

// Size returns the key size in bits
func (kp *KeyPair) Size() int {
	return kp.size
}

// Public returns the public key
func (kp *KeyPair) Public() crypto.PublicKey {
	return kp.public
}

// HasPrivateKey returns true if the pair holds a private key
// that was not destroyed
func (kp *KeyPair) HasPrivateKey() bool {
	kp.lock.RLock()
	defer kp.lock.RUnlock()
	return kp.private != nil && !kp.destroyed
}

// IsDestroyed returns true after Destroy
func (kp *KeyPair) IsDestroyed() bool {
	kp.lock.RLock()
	defer kp.lock.RUnlock()
	return kp.destroyed
}

// Use calls fn with the private key.
// The key must not be retained after fn returns.
func (kp *KeyPair) Use(fn func(crypto.PrivateKey) error) error {
	kp.lock.RLock()
	defer kp.lock.RUnlock()

	if kp.destroyed {
		return pkierr.Validationf("key pair has been destroyed")
	}
	if kp.private == nil {
		return pkierr.Validationf("key pair has no private key")
	}
	return fn(kp.private)
}

// Destroy wipes the private key.
// Waits for in-flight Use calls, subsequent calls are no-op.
func (kp *KeyPair) Destroy() {
	kp.lock.Lock()
	defer kp.lock.Unlock()

	if kp.destroyed {
		return
	}
	wipeKey(kp.private)
	kp.private = nil
	kp.destroyed = true
}
