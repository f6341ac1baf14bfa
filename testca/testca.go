// Package testca issues throw-away certificates and keys for tests.
// Every function panics on failure.
package testca

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Entity is a certificate with the private key
type Entity struct {
	Subject          pkix.Name
	Issuer           *Entity
	PrivateKey       crypto.Signer
	Certificate      *x509.Certificate
	IsCA             bool
	NotBefore        time.Time
	NotAfter         time.Time
	KeyUsage         x509.KeyUsage
	NextSerialNumber int64
}

// Option to configure the entity
type Option func(*Entity)

// Authority makes the entity a CA
func Authority(e *Entity) {
	e.IsCA = true
}

// Subject sets the subject name
func Subject(value pkix.Name) Option {
	return func(e *Entity) {
		e.Subject = value
	}
}

// Issuer sets the issuer, the default is self-signed
func Issuer(value *Entity) Option {
	return func(e *Entity) {
		e.Issuer = value
	}
}

// PrivateKey sets the private key, the default is a new ECDSA P-256 key
func PrivateKey(value crypto.Signer) Option {
	return func(e *Entity) {
		e.PrivateKey = value
	}
}

// NotBefore sets the validity start
func NotBefore(value time.Time) Option {
	return func(e *Entity) {
		e.NotBefore = value
	}
}

// NotAfter sets the validity end
func NotAfter(value time.Time) Option {
	return func(e *Entity) {
		e.NotAfter = value
	}
}

// KeyUsage sets the key usage
func KeyUsage(value x509.KeyUsage) Option {
	return func(e *Entity) {
		e.KeyUsage = value
	}
}

// NextSerialNumber sets the serial number of the certificate
func NextSerialNumber(value int64) Option {
	return func(e *Entity) {
		e.NextSerialNumber = value
	}
}

// NewEntity returns a new entity with issued certificate
func NewEntity(opts ...Option) *Entity {
	e := &Entity{
		Subject:          pkix.Name{CommonName: "[TEST] Entity"},
		NotBefore:        time.Now().Add(-time.Hour).UTC(),
		NotAfter:         time.Now().Add(24 * time.Hour).UTC(),
		KeyUsage:         x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		NextSerialNumber: time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.PrivateKey == nil {
		e.PrivateKey = ECDSAKey()
	}
	if e.IsCA {
		e.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(e.NextSerialNumber),
		Subject:               e.Subject,
		NotBefore:             e.NotBefore,
		NotAfter:              e.NotAfter,
		KeyUsage:              e.KeyUsage,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		IsCA:                  e.IsCA,
	}

	parent, signer := template, e.PrivateKey
	if e.Issuer != nil {
		parent, signer = e.Issuer.Certificate, e.Issuer.PrivateKey
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, e.PrivateKey.Public(), signer)
	if err != nil {
		panic(err)
	}
	e.Certificate, err = x509.ParseCertificate(der)
	if err != nil {
		panic(err)
	}
	return e
}

// Issue returns a new entity issued by e
func (e *Entity) Issue(opts ...Option) *Entity {
	opts = append([]Option{Issuer(e)}, opts...)
	return NewEntity(opts...)
}

// Chain returns the certificate chain, starting with the entity
func (e *Entity) Chain() []*x509.Certificate {
	var chain []*x509.Certificate
	for cur := e; cur != nil; cur = cur.Issuer {
		chain = append(chain, cur.Certificate)
	}
	return chain
}

// PFX returns PKCS#12 encoded entity
func (e *Entity) PFX(password string) []byte {
	var ca []*x509.Certificate
	if chain := e.Chain(); len(chain) > 1 {
		ca = chain[1:]
	}
	pfx, err := pkcs12.Modern.Encode(e.PrivateKey, e.Certificate, ca, password)
	if err != nil {
		panic(err)
	}
	return pfx
}

var (
	lock     sync.Mutex
	rsaKeys  = map[int][]byte{}
	ecKey    []byte
	dsaParam *dsa.Parameters
)

// RSAKey returns RSA key of the given size.
// Keys are generated once per size, each call returns a distinct copy.
func RSAKey(bits int) *rsa.PrivateKey {
	lock.Lock()
	defer lock.Unlock()

	der, ok := rsaKeys[bits]
	if !ok {
		k, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			panic(err)
		}
		der = x509.MarshalPKCS1PrivateKey(k)
		rsaKeys[bits] = der
	}
	k, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		panic(err)
	}
	return k
}

// ECDSAKey returns P-256 key, generated once,
// each call returns a distinct copy
func ECDSAKey() *ecdsa.PrivateKey {
	lock.Lock()
	defer lock.Unlock()

	if ecKey == nil {
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			panic(err)
		}
		ecKey, err = x509.MarshalECPrivateKey(k)
		if err != nil {
			panic(err)
		}
	}
	k, err := x509.ParseECPrivateKey(ecKey)
	if err != nil {
		panic(err)
	}
	return k
}

// DSAKey returns a new 1024-bit DSA key.
// The domain parameters are generated once.
//
//nolint:staticcheck
func DSAKey() *dsa.PrivateKey {
	lock.Lock()
	defer lock.Unlock()

	if dsaParam == nil {
		params := new(dsa.Parameters)
		if err := dsa.GenerateParameters(params, rand.Reader, dsa.L1024N160); err != nil {
			panic(err)
		}
		dsaParam = params
	}

	k := &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{
				P: new(big.Int).Set(dsaParam.P),
				Q: new(big.Int).Set(dsaParam.Q),
				G: new(big.Int).Set(dsaParam.G),
			},
		},
	}
	if err := dsa.GenerateKey(k, rand.Reader); err != nil {
		panic(err)
	}
	return k
}
