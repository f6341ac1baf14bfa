package credential

import (
	"crypto/x509"
	"sync"
	"time"

	"github.com/effective-security/xcred/certutil"
	"github.com/effective-security/xcred/csr"
	"github.com/effective-security/xcred/identity"
	"github.com/effective-security/xcred/keypair"
	"github.com/effective-security/xcred/metricskey"
	"github.com/effective-security/xcred/pkierr"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/xcred", "credential")

// Engine provides credential operations, safe for concurrent use
type Engine struct {
	cfg     Config
	csrOpts []csr.Option
	idOpts  []identity.Option
}

// New returns Engine for the configuration,
// nil configuration is the same as DefaultConfig
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hash, _ := cfg.hash()
	enc, _ := identity.ParseEncoder(cfg.PKCS12.Encoder)

	e := &Engine{
		cfg: *cfg,
		csrOpts: []csr.Option{
			csr.WithHash(hash),
		},
		idOpts: []identity.Option{
			identity.WithEncoder(enc),
			identity.WithIterations(cfg.PKCS12.Iterations),
		},
	}
	return e, nil
}

var (
	defaultEngine *Engine
	defaultOnce   sync.Once
)

// Default returns the Engine with default configuration,
// created once on first use
func Default() *Engine {
	defaultOnce.Do(func() {
		var err error
		defaultEngine, err = New(DefaultConfig())
		if err != nil {
			logger.Panicf("unable to create default engine: %+v", err)
		}
	})
	return defaultEngine
}

// Config returns a copy of the configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// ParseKeyPair returns KeyPair from PEM encoded private key,
// the passphrase is used when the key is encrypted.
// The caller owns the returned key pair and should Destroy it.
func (e *Engine) ParseKeyPair(pemBytes []byte, passphrase string) (*keypair.KeyPair, error) {
	defer metricskey.PerfKeyPairOperation.MeasureSince(time.Now(), "parse")

	pass := []byte(passphrase)
	defer clear(pass)

	kp, err := keypair.Parse(pemBytes, pass)
	if err != nil {
		return nil, e.failed("parse_key", err)
	}
	logger.KV(xlog.DEBUG,
		"status", "parsed",
		"key_type", kp.Type(),
		"key_size", kp.Size(),
		"private", kp.HasPrivateKey())
	return kp, nil
}

// GenerateCSR returns DER encoded CSR signed by the key pair
func (e *Engine) GenerateCSR(kp *keypair.KeyPair, attrs csr.SubjectAttributes) ([]byte, error) {
	keyType := keypair.Unknown
	if kp != nil {
		keyType = kp.Type()
	}
	defer metricskey.PerfCSROperation.MeasureSince(time.Now(), keyType.String())

	der, err := csr.Build(kp, attrs, e.csrOpts...)
	if err != nil {
		return nil, e.failed("generate_csr", err)
	}
	return der, nil
}

// GenerateCSRFromKey returns DER encoded CSR signed by unencrypted
// PEM or DER encoded private key.
// The parsed key is destroyed before return.
func (e *Engine) GenerateCSRFromKey(privateKey []byte, attrs csr.SubjectAttributes) ([]byte, error) {
	kp, err := keypair.ParseAny(privateKey, nil)
	if err != nil {
		return nil, e.failed("parse_key", err)
	}
	defer kp.Destroy()

	return e.GenerateCSR(kp, attrs)
}

// BuildIdentity returns PKCS#12 identity for the key pair and certificate,
// protected by the passphrase
func (e *Engine) BuildIdentity(kp *keypair.KeyPair, cert *x509.Certificate, passphrase string) (*identity.Identity, error) {
	defer metricskey.PerfIdentityOperation.MeasureSince(time.Now(), "build")

	id, err := identity.Build(kp, cert, passphrase, e.idOpts...)
	if err != nil {
		return nil, e.failed("build_identity", err)
	}
	return id, nil
}

// BuildIdentityFromKey returns PKCS#12 identity for PEM or DER encoded
// private key and certificate, protected by the passphrase.
// An encrypted private key is opened with the same passphrase.
// The parsed key is destroyed before return.
func (e *Engine) BuildIdentityFromKey(privateKey, certificate []byte, passphrase string) (*identity.Identity, error) {
	if passphrase == "" {
		return nil, e.failed("build_identity", pkierr.Validationf("passphrase is required"))
	}

	pass := []byte(passphrase)
	defer clear(pass)

	kp, err := keypair.ParseAny(privateKey, pass)
	if err != nil {
		return nil, e.failed("parse_key", err)
	}
	defer kp.Destroy()

	cert, err := certutil.ParseCertificate(certificate)
	if err != nil {
		return nil, e.failed("parse_certificate", err)
	}

	return e.BuildIdentity(kp, cert, passphrase)
}

// OpenIdentity returns the key pair and certificate from PKCS#12 identity.
// The caller owns the returned key pair and should Destroy it.
func (e *Engine) OpenIdentity(pfx []byte, passphrase string) (*keypair.KeyPair, *x509.Certificate, error) {
	defer metricskey.PerfIdentityOperation.MeasureSince(time.Now(), "open")

	kp, cert, err := identity.Open(pfx, passphrase)
	if err != nil {
		return nil, nil, e.failed("open_identity", err)
	}
	return kp, cert, nil
}

// failed returns classified error, unexpected failures are reported
// as CryptoError
func (e *Engine) failed(reason string, err error) error {
	err = pkierr.Classify(err, pkierr.KindCrypto)
	logger.KV(xlog.DEBUG,
		"reason", reason,
		"kind", pkierr.KindOf(err),
		"err", err.Error())
	return err
}
