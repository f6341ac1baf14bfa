package csr

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"io"

	"github.com/effective-security/xcred/certutil"
	"github.com/effective-security/xcred/keypair"
	"github.com/effective-security/xcred/pkierr"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcred", "csr")

// PEM block types
const (
	TypeCertificateRequest    = "CERTIFICATE REQUEST"
	TypeNewCertificateRequest = "NEW CERTIFICATE REQUEST"
)

type options struct {
	hash crypto.Hash
	rand io.Reader
}

// Option for Build
type Option func(*options)

// WithHash overrides the digest of the signature,
// supported values are SHA256, SHA384 and SHA512
func WithHash(hash crypto.Hash) Option {
	return func(o *options) {
		o.hash = hash
	}
}

// WithRand sets the source of randomness for the signature,
// the default is crypto/rand
func WithRand(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

// Build returns DER encoded CSR for the key pair and subject.
// The key pair must hold a private key.
func Build(kp *keypair.KeyPair, attrs SubjectAttributes, opts ...Option) ([]byte, error) {
	if kp == nil {
		return nil, pkierr.Validationf("key pair is required")
	}
	if !kp.HasPrivateKey() {
		if kp.IsDestroyed() {
			return nil, pkierr.Validationf("key pair has been destroyed")
		}
		return nil, pkierr.Validationf("private key is required to sign CSR")
	}

	o := options{rand: rand.Reader}
	for _, opt := range opts {
		opt(&o)
	}
	switch o.hash {
	case 0, crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return nil, pkierr.Validationf("unsupported hash: %s", o.hash)
	}

	subject, err := attrs.Marshal()
	if err != nil {
		return nil, err
	}

	var der []byte
	switch kp.Type() {
	case keypair.RSA, keypair.ECDSA:
		algo := signatureAlgorithm(kp, o.hash)
		err = kp.Use(func(priv crypto.PrivateKey) error {
			var signErr error
			der, signErr = createRequest(o.rand, subject, algo, priv)
			return signErr
		})
		if err != nil {
			return nil, err
		}
	case keypair.DSA:
		err = kp.Use(func(priv crypto.PrivateKey) error {
			k, ok := priv.(*dsa.PrivateKey)
			if !ok {
				return pkierr.Unsupportedf("unsupported DSA key object: %T", priv)
			}
			var signErr error
			der, signErr = createDSARequest(o.rand, subject, k)
			return signErr
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, pkierr.Unsupportedf("unsupported key type for CSR: %T", kp.Public())
	}

	logger.KV(xlog.DEBUG,
		"status", "created",
		"key_type", kp.Type(),
		"key_size", kp.Size())
	return der, nil
}

func createRequest(r io.Reader, subject []byte, algo x509.SignatureAlgorithm, priv crypto.PrivateKey) ([]byte, error) {
	signer, ok := priv.(crypto.Signer)
	if !ok {
		return nil, pkierr.Unsupportedf("private key does not support signing: %T", priv)
	}
	template := &x509.CertificateRequest{
		RawSubject:         subject,
		SignatureAlgorithm: algo,
	}
	der, err := x509.CreateCertificateRequest(r, template, signer)
	if err != nil {
		return nil, pkierr.WrapCrypto(err, "unable to sign CSR")
	}
	return der, nil
}

var signatureAlgorithms = map[keypair.KeyType]map[crypto.Hash]x509.SignatureAlgorithm{
	keypair.RSA: {
		crypto.SHA256: x509.SHA256WithRSA,
		crypto.SHA384: x509.SHA384WithRSA,
		crypto.SHA512: x509.SHA512WithRSA,
	},
	keypair.ECDSA: {
		crypto.SHA256: x509.ECDSAWithSHA256,
		crypto.SHA384: x509.ECDSAWithSHA384,
		crypto.SHA512: x509.ECDSAWithSHA512,
	},
}

// signatureAlgorithm returns the signature algorithm for the key,
// the digest follows the key strength unless hash is set
func signatureAlgorithm(kp *keypair.KeyPair, hash crypto.Hash) x509.SignatureAlgorithm {
	if hash == 0 {
		hash = certutil.HashAlgo(kp.Public())
	}
	return signatureAlgorithms[kp.Type()][hash]
}

// EncodePEM returns PEM encoded CSR
func EncodePEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: TypeCertificateRequest, Bytes: der})
}
