package credential_test

import (
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"sync"
	"testing"

	"github.com/effective-security/xcred/certutil"
	"github.com/effective-security/xcred/credential"
	"github.com/effective-security/xcred/csr"
	"github.com/effective-security/xcred/keypair"
	"github.com/effective-security/xcred/pkierr"
	"github.com/effective-security/xcred/testca"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

//nolint:staticcheck
func encryptedRSAPEM(t *testing.T, pass string) []byte {
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY",
		x509.MarshalPKCS1PrivateKey(testca.RSAKey(2048)), []byte(pass), x509.PEMCipherAES256)
	require.NoError(t, err)
	return pem.EncodeToMemory(block)
}

func TestDefault(t *testing.T) {
	var wg sync.WaitGroup
	engines := make([]*credential.Engine, 8)
	for i := range engines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			engines[i] = credential.Default()
		}(i)
	}
	wg.Wait()
	for _, e := range engines {
		assert.Same(t, engines[0], e)
	}
	assert.Equal(t, "modern", engines[0].Config().PKCS12.Encoder)
}

func TestNew(t *testing.T) {
	e, err := credential.New(nil)
	require.NoError(t, err)
	assert.NotNil(t, e)

	_, err = credential.New(&credential.Config{CSR: credential.CSRConfig{Hash: "MD5"}})
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))
}

func TestParseKeyPair(t *testing.T) {
	e := credential.Default()
	keyPEM := encryptedRSAPEM(t, "correct")

	kp, err := e.ParseKeyPair(keyPEM, "correct")
	require.NoError(t, err)
	assert.Equal(t, keypair.RSA, kp.Type())
	assert.Equal(t, 2048, kp.Size())
	assert.True(t, kp.HasPrivateKey())
	kp.Destroy()

	kp, err = e.ParseKeyPair(keyPEM, "wrong")
	require.Error(t, err)
	assert.Nil(t, kp)
	assert.Equal(t, pkierr.KindCrypto, pkierr.KindOf(err))
	assert.ErrorIs(t, err, pkierr.ErrCrypto)

	_, err = e.ParseKeyPair([]byte("garbage"), "")
	assert.Equal(t, pkierr.KindFormat, pkierr.KindOf(err))
}

func TestGenerateCSR(t *testing.T) {
	e := credential.Default()
	kp, err := e.ParseKeyPair(encryptedRSAPEM(t, "correct"), "correct")
	require.NoError(t, err)
	defer kp.Destroy()

	attrs := csr.SubjectAttributes{"commonName": "example.org", "countryName": "US"}
	der, err := e.GenerateCSR(kp, attrs)
	require.NoError(t, err)

	req, err := csr.Parse(der)
	require.NoError(t, err)
	assert.Equal(t, "/C=US/CN=example.org", certutil.NameToString(&req.Subject))

	der2, err := e.GenerateCSR(kp, csr.SubjectAttributes{"countryName": "US", "commonName": "example.org"})
	require.NoError(t, err)
	assert.Equal(t, der, der2)

	pubOnly, err := keypair.New(kp.Public())
	require.NoError(t, err)
	der, err = e.GenerateCSR(pubOnly, attrs)
	assert.Nil(t, der)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))

	der, err = e.GenerateCSR(kp, csr.SubjectAttributes{})
	assert.Nil(t, der)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))

	der, err = e.GenerateCSR(nil, attrs)
	assert.Nil(t, der)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))
}

func TestGenerateCSRFromKey(t *testing.T) {
	e, err := credential.New(&credential.Config{CSR: credential.CSRConfig{Hash: "SHA384"}})
	require.NoError(t, err)

	der := x509.MarshalPKCS1PrivateKey(testca.RSAKey(2048))
	for _, key := range [][]byte{der, pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der})} {
		csrDER, err := e.GenerateCSRFromKey(key, csr.SubjectAttributes{"CN": "raw"})
		require.NoError(t, err)
		req, err := csr.Parse(csrDER)
		require.NoError(t, err)
		assert.Equal(t, x509.SHA384WithRSA, req.SignatureAlgorithm)
	}

	_, err = e.GenerateCSRFromKey(encryptedRSAPEM(t, "secret"), csr.SubjectAttributes{"CN": "raw"})
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))

	_, err = e.GenerateCSRFromKey(nil, csr.SubjectAttributes{"CN": "raw"})
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))

	_, err = e.GenerateCSRFromKey([]byte{1, 2, 3}, csr.SubjectAttributes{"CN": "raw"})
	assert.Equal(t, pkierr.KindFormat, pkierr.KindOf(err))
}

func TestBuildIdentity(t *testing.T) {
	e := credential.Default()
	ent := testca.NewEntity(
		testca.Subject(pkix.Name{CommonName: "device-1"}),
		testca.PrivateKey(testca.RSAKey(2048)),
	)

	kp, err := e.ParseKeyPair(encryptedRSAPEM(t, "correct"), "correct")
	require.NoError(t, err)

	id, err := e.BuildIdentity(kp, ent.Certificate, "p12pass")
	require.NoError(t, err)
	assert.Equal(t, "device-1", id.FriendlyName)

	kp2, cert, err := e.OpenIdentity(id.Data, "p12pass")
	require.NoError(t, err)
	assert.Equal(t, ent.Certificate.Raw, cert.Raw)
	assert.Equal(t, keypair.RSA, kp2.Type())
	kp2.Destroy()

	kp2, cert, err = e.OpenIdentity(id.Data, "other")
	assert.Nil(t, kp2)
	assert.Nil(t, cert)
	assert.Equal(t, pkierr.KindCrypto, pkierr.KindOf(err))

	id, err = e.BuildIdentity(kp, ent.Certificate, "")
	assert.Nil(t, id)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))

	kp.Destroy()
	id, err = e.BuildIdentity(kp, ent.Certificate, "p12pass")
	assert.Nil(t, id)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))
}

func TestBuildIdentityFromKey(t *testing.T) {
	cfg, err := credential.LoadConfig("testdata/xcred.yaml")
	require.NoError(t, err)
	engine, err := credential.New(cfg)
	require.NoError(t, err)

	ent := testca.NewEntity(testca.Subject(pkix.Name{CommonName: "ec-device"}))
	certPEM, err := certutil.EncodeToPEMString(false, ent.Certificate)
	require.NoError(t, err)

	encKey, err := pkcs8.MarshalPrivateKey(testca.ECDSAKey(), []byte("shared"), nil)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: encKey})

	id, err := engine.BuildIdentityFromKey(keyPEM, []byte(certPEM), "shared")
	require.NoError(t, err)
	assert.Equal(t, "ec-device", id.FriendlyName)

	kp, cert, err := engine.OpenIdentity(id.Data, "shared")
	require.NoError(t, err)
	assert.Equal(t, keypair.ECDSA, kp.Type())
	assert.Equal(t, ent.Certificate.Raw, cert.Raw)

	// certificate and key in one PEM file
	combined := append([]byte(certPEM), keyPEM...)
	id, err = engine.BuildIdentityFromKey(combined, combined, "shared")
	require.NoError(t, err)
	assert.Equal(t, "ec-device", id.FriendlyName)

	// DER certificate, unencrypted key
	sec1, err := x509.MarshalECPrivateKey(testca.ECDSAKey())
	require.NoError(t, err)
	id, err = engine.BuildIdentityFromKey(sec1, ent.Certificate.Raw, "pfx")
	require.NoError(t, err)
	assert.NotEmpty(t, id.Data)

	tcases := []struct {
		name string
		key  []byte
		cert []byte
		pass string
		kind pkierr.Kind
	}{
		{"no_pass", keyPEM, []byte(certPEM), "", pkierr.KindValidation},
		{"wrong_pass", keyPEM, []byte(certPEM), "wrong", pkierr.KindCrypto},
		{"no_key", nil, []byte(certPEM), "shared", pkierr.KindValidation},
		{"bad_cert", keyPEM, []byte{1, 2, 3}, "shared", pkierr.KindFormat},
		{"no_cert", keyPEM, nil, "shared", pkierr.KindValidation},
		{"mismatch", pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(testca.RSAKey(2048))}), []byte(certPEM), "shared", pkierr.KindValidation},
		{"dsa", pem.EncodeToMemory(&pem.Block{Type: "DSA PRIVATE KEY", Bytes: mustDSA(t)}), []byte(certPEM), "shared", pkierr.KindUnsupportedKeyType},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := engine.BuildIdentityFromKey(tc.key, tc.cert, tc.pass)
			require.Error(t, err)
			assert.Nil(t, id)
			assert.Equal(t, tc.kind, pkierr.KindOf(err))
		})
	}
}

func mustDSA(t *testing.T) []byte {
	der, err := keypair.MarshalDSAPrivateKey(testca.DSAKey())
	require.NoError(t, err)
	return der
}
