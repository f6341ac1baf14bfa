package certutil

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"

	"github.com/cockroachdb/errors"
	"github.com/go-jose/go-jose/v3"
)

// KeyInfo provides information about the key
type KeyInfo struct {
	KeySize   int
	Type      string
	IsPrivate bool
	Hash      crypto.Hash
	Key       any
}

// NewKeyInfo returns *KeyInfo
func NewKeyInfo(k any) (*KeyInfo, error) {
	ki := &KeyInfo{Key: k}
	var pubKey crypto.PublicKey

	switch typ := k.(type) {
	case *rsa.PrivateKey:
		ki.IsPrivate = true
		pubKey = &typ.PublicKey
	case *ecdsa.PrivateKey:
		ki.IsPrivate = true
		pubKey = &typ.PublicKey
	case *dsa.PrivateKey:
		ki.IsPrivate = true
		pubKey = &typ.PublicKey
	case *jose.JSONWebKey:
		return NewKeyInfo(typ.Key)
	case crypto.Signer:
		ki.IsPrivate = true
		pubKey = typ.Public()
	default:
		pubKey = k
	}

	switch typ := pubKey.(type) {
	case *rsa.PublicKey:
		ki.KeySize = typ.N.BitLen()
		ki.Type = "RSA"
	case *ecdsa.PublicKey:
		ki.Type = "ECDSA"
		ki.KeySize = typ.Curve.Params().BitSize
	case *dsa.PublicKey:
		ki.Type = "DSA"
		ki.KeySize = typ.P.BitLen()
	case ed25519.PublicKey:
		ki.Type = "Ed25519"
	default:
		return nil, errors.Errorf("key not supported: %T", typ)
	}
	ki.Hash = HashAlgo(pubKey)
	return ki, nil
}

// HashAlgo returns the digest matching the strength of the public key
func HashAlgo(pub crypto.PublicKey) crypto.Hash {
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		keySize := pub.N.BitLen()
		switch {
		case keySize >= 4096:
			return crypto.SHA512
		case keySize >= 3072:
			return crypto.SHA384
		default:
			return crypto.SHA256
		}
	case *ecdsa.PublicKey:
		switch pub.Curve {
		case elliptic.P384():
			return crypto.SHA384
		case elliptic.P521():
			return crypto.SHA512
		default:
			return crypto.SHA256
		}
	case ed25519.PublicKey:
		// the digest is internal to the algorithm
		return crypto.Hash(0)
	default:
		return crypto.SHA256
	}
}

// Thumbprint returns base64url encoded RFC 7638 SHA-256 thumbprint
// of the public key. DSA keys are not representable as JWK.
func Thumbprint(pub crypto.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	if !jwk.Valid() {
		return "", errors.Errorf("key not supported: %T", pub)
	}
	tp, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return base64.RawURLEncoding.EncodeToString(tp), nil
}

// PublicJWK returns the public key as JSON Web Key
func PublicJWK(pub crypto.PublicKey, use string) (*jose.JSONWebKey, error) {
	kid, err := Thumbprint(pub)
	if err != nil {
		return nil, err
	}
	return &jose.JSONWebKey{
		Key:   pub,
		KeyID: kid,
		Use:   use,
	}, nil
}
