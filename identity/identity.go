// Package identity packages a private key with its certificate
// into a password protected PKCS#12 container.
package identity

import (
	"crypto"
	"crypto/x509"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/keypair"
	"github.com/effective-security/xcred/pkierr"
	"github.com/effective-security/xlog"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcred", "identity")

// Identity is PKCS#12 encoded key and certificate
type Identity struct {
	// Data is DER encoded PFX
	Data []byte
	// FriendlyName is the subject common name of the certificate
	FriendlyName string
}

// Encoder specifies PKCS#12 encryption and MAC algorithms
type Encoder string

// Encoders
const (
	// EncoderModern uses PBES2 with AES-256-CBC, PBKDF2-HMAC-SHA-256 and SHA-256 MAC
	EncoderModern Encoder = "modern"
	// EncoderLegacyRC2 uses RC2-40 for certificates and 3DES for keys,
	// for clients that do not support PBES2
	EncoderLegacyRC2 Encoder = "legacy-rc2"
	// EncoderLegacyDES uses 3DES for certificates and keys
	EncoderLegacyDES Encoder = "legacy-des"
)

// ParseEncoder returns Encoder by name, empty name is EncoderModern
func ParseEncoder(name string) (Encoder, error) {
	switch e := Encoder(strings.ToLower(strings.TrimSpace(name))); e {
	case "":
		return EncoderModern, nil
	case EncoderModern, EncoderLegacyRC2, EncoderLegacyDES:
		return e, nil
	default:
		return "", pkierr.Validationf("unsupported PKCS#12 encoder: %q", name)
	}
}

type options struct {
	encoder    Encoder
	iterations int
	rand       io.Reader
	caCerts    []*x509.Certificate
}

// Option for Build
type Option func(*options)

// WithEncoder sets the encoder, the default is EncoderModern
func WithEncoder(e Encoder) Option {
	return func(o *options) {
		o.encoder = e
	}
}

// WithIterations sets the KDF iteration count,
// zero keeps the encoder default
func WithIterations(n int) Option {
	return func(o *options) {
		o.iterations = n
	}
}

// WithRand sets the source of randomness for salts and IVs
func WithRand(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithCAChain adds issuer certificates to the container
func WithCAChain(certs ...*x509.Certificate) Option {
	return func(o *options) {
		o.caCerts = append(o.caCerts, certs...)
	}
}

func (o *options) pkcs12Encoder() (*pkcs12.Encoder, error) {
	var enc *pkcs12.Encoder
	switch o.encoder {
	case "", EncoderModern:
		enc = pkcs12.Modern2023
	case EncoderLegacyRC2:
		enc = pkcs12.LegacyRC2
	case EncoderLegacyDES:
		enc = pkcs12.LegacyDES
	default:
		return nil, pkierr.Validationf("unsupported PKCS#12 encoder: %q", string(o.encoder))
	}
	if o.iterations < 0 {
		return nil, pkierr.Validationf("invalid iterations: %d", o.iterations)
	}
	if o.iterations > 0 {
		enc = enc.WithIterations(o.iterations)
	}
	if o.rand != nil {
		enc = enc.WithRand(o.rand)
	}
	return enc, nil
}

// Build returns PKCS#12 encoded identity for the key pair and certificate,
// encrypted and authenticated with the passphrase.
// The certificate must be issued for the public key of the key pair.
//
// Only RSA and ECDSA keys are supported: the key bag holds PKCS#8,
// which can not be produced for DSA keys, so DSA and Unknown key pairs
// fail with UnsupportedKeyTypeError.
func Build(kp *keypair.KeyPair, cert *x509.Certificate, passphrase string, opts ...Option) (*Identity, error) {
	if passphrase == "" {
		return nil, pkierr.Validationf("passphrase is required")
	}
	if cert == nil {
		return nil, pkierr.Validationf("certificate is required")
	}
	if kp == nil {
		return nil, pkierr.Validationf("key pair is required")
	}
	if !kp.HasPrivateKey() {
		if kp.IsDestroyed() {
			return nil, pkierr.Validationf("key pair has been destroyed")
		}
		return nil, pkierr.Validationf("private key is required for identity")
	}

	switch kp.Type() {
	case keypair.RSA, keypair.ECDSA:
	default:
		return nil, pkierr.Unsupportedf("unsupported key type for identity: %s", kp.Type())
	}

	if !samePublicKey(kp.Public(), cert.PublicKey) {
		return nil, pkierr.Validationf("certificate does not match the private key")
	}

	o := new(options)
	for _, opt := range opts {
		opt(o)
	}
	enc, err := o.pkcs12Encoder()
	if err != nil {
		return nil, err
	}

	var pfx []byte
	err = kp.Use(func(priv crypto.PrivateKey) error {
		var encErr error
		pfx, encErr = enc.Encode(priv, cert, o.caCerts, passphrase)
		if encErr != nil {
			return pkierr.WrapCrypto(encErr, "unable to encode PKCS#12")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	id := &Identity{
		Data:         pfx,
		FriendlyName: cert.Subject.CommonName,
	}
	logger.KV(xlog.DEBUG,
		"status", "created",
		"key_type", kp.Type(),
		"cn", id.FriendlyName)
	return id, nil
}

// Open returns the key pair and certificate from PKCS#12 encoded identity.
// The caller owns the returned key pair and should Destroy it.
func Open(pfx []byte, passphrase string) (*keypair.KeyPair, *x509.Certificate, error) {
	if len(pfx) == 0 {
		return nil, nil, pkierr.Validationf("identity data is required")
	}
	if passphrase == "" {
		return nil, nil, pkierr.Validationf("passphrase is required")
	}

	key, cert, _, err := pkcs12.DecodeChain(pfx, passphrase)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) || errors.Is(err, pkcs12.ErrDecryption) {
			return nil, nil, pkierr.Cryptof("unable to decrypt identity: incorrect passphrase or corrupt data")
		}
		return nil, nil, pkierr.WrapFormat(err, "unable to decode identity")
	}

	kp, err := keypair.New(key)
	if err != nil {
		return nil, nil, err
	}
	return kp, cert, nil
}

func samePublicKey(a, b crypto.PublicKey) bool {
	k, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	return ok && k.Equal(b)
}
