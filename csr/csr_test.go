package csr_test

import (
	"bytes"
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/asn1"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/csr"
	"github.com/effective-security/xcred/keypair"
	"github.com/effective-security/xcred/oid"
	"github.com/effective-security/xcred/pkierr"
	"github.com/effective-security/xcred/testca"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeyPair(t *testing.T, key any) *keypair.KeyPair {
	kp, err := keypair.New(key)
	require.NoError(t, err)
	return kp
}

func TestBuildCommonNameAndCountry(t *testing.T) {
	kp := newKeyPair(t, testca.RSAKey(2048))
	attrs := csr.SubjectAttributes{
		"commonName": "example.org",
		"country":    "US",
	}
	der, err := csr.Build(kp, attrs)
	require.NoError(t, err)

	req, err := csr.Parse(der)
	require.NoError(t, err)
	require.Len(t, req.Subject.Names, 2)
	assert.Equal(t, oid.NameC, req.Subject.Names[0].Type)
	assert.Equal(t, "US", req.Subject.Names[0].Value)
	assert.Equal(t, oid.NameCN, req.Subject.Names[1].Type)
	assert.Equal(t, "example.org", req.Subject.Names[1].Value)
	assert.Equal(t, x509.SHA256WithRSA, req.SignatureAlgorithm)
	assert.True(t, kp.Public().(interface{ Equal(crypto.PublicKey) bool }).Equal(req.PublicKey))

	// PrintableString for country, UTF8String for CN
	assert.True(t, bytes.Contains(req.RawSubject, []byte{asn1.TagPrintableString, 2, 'U', 'S'}))
	assert.True(t, bytes.Contains(req.RawSubject, append([]byte{asn1.TagUTF8String, 11}, "example.org"...)))

	// same subject, same bytes
	der2, err := csr.Build(kp, csr.SubjectAttributes{
		"countryName": "US",
		"CN":          "example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, der, der2)
}

func TestBuildPlainAttributeNames(t *testing.T) {
	kp := newKeyPair(t, testca.ECDSAKey())
	der, err := csr.Build(kp, csr.SubjectAttributes{
		"organizationalUnit": "Eng",
		"organization":       "Acme",
		"locality":           "Seattle",
		"state":              "WA",
		"country":            "US",
		"commonName":         "example.org",
	})
	require.NoError(t, err)

	req, err := csr.Parse(der)
	require.NoError(t, err)
	require.Len(t, req.Subject.Names, 6)
	for i, id := range []asn1.ObjectIdentifier{oid.NameC, oid.NameST, oid.NameL, oid.NameO, oid.NameOU, oid.NameCN} {
		assert.Equal(t, id, req.Subject.Names[i].Type)
	}

	_, err = csr.Build(kp, csr.SubjectAttributes{"stateOrProvince": "WA", "ST": "CA"})
	assert.EqualError(t, err, `duplicate subject attribute: ST is given as "ST" and "stateOrProvince"`)
}

func TestBuildCanonicalOrder(t *testing.T) {
	kp := newKeyPair(t, testca.ECDSAKey())
	der, err := csr.Build(kp, csr.SubjectAttributes{
		"E":                      "alice@example.org",
		"uid":                    "alice",
		"cn":                     "Alice",
		"organizationalUnitName": "Eng",
		"O":                      "Acme",
		"localityName":           "Seattle",
		"ST":                     "WA",
		"c":                      "US",
	})
	require.NoError(t, err)

	req, err := csr.Parse(der)
	require.NoError(t, err)

	expected := []asn1.ObjectIdentifier{
		oid.NameC, oid.NameST, oid.NameL, oid.NameO, oid.NameOU,
		oid.NameCN, oid.NameUID, oid.NameEmailAddress,
	}
	require.Len(t, req.Subject.Names, len(expected))
	for i, id := range expected {
		assert.Equal(t, id, req.Subject.Names[i].Type, "position %d", i)
	}
	assert.Equal(t, "Alice", req.Subject.CommonName)
	assert.Equal(t, x509.ECDSAWithSHA256, req.SignatureAlgorithm)
	assert.True(t, bytes.Contains(req.RawSubject, append([]byte{asn1.TagIA5String, 17}, "alice@example.org"...)))
}

func TestBuildSignatureAlgorithm(t *testing.T) {
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	attrs := csr.SubjectAttributes{"CN": "algo"}

	tcases := []struct {
		name string
		key  any
		opts []csr.Option
		algo x509.SignatureAlgorithm
	}{
		{"rsa2048", testca.RSAKey(2048), nil, x509.SHA256WithRSA},
		{"rsa3072", testca.RSAKey(3072), nil, x509.SHA384WithRSA},
		{"rsa2048_sha512", testca.RSAKey(2048), []csr.Option{csr.WithHash(crypto.SHA512)}, x509.SHA512WithRSA},
		{"p256", testca.ECDSAKey(), nil, x509.ECDSAWithSHA256},
		{"p256_sha384", testca.ECDSAKey(), []csr.Option{csr.WithHash(crypto.SHA384)}, x509.ECDSAWithSHA384},
		{"p384", p384, []csr.Option{csr.WithRand(rand.Reader)}, x509.ECDSAWithSHA384},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			der, err := csr.Build(newKeyPair(t, tc.key), attrs, tc.opts...)
			require.NoError(t, err)
			req, err := csr.Parse(der)
			require.NoError(t, err)
			assert.Equal(t, tc.algo, req.SignatureAlgorithm)
		})
	}
}

func TestBuildDSA(t *testing.T) {
	key := testca.DSAKey()
	kp := newKeyPair(t, key)

	der, err := csr.Build(kp, csr.SubjectAttributes{"CN": "dsa", "O": "Acme"})
	require.NoError(t, err)

	req, err := csr.ParsePEM(csr.EncodePEM(der))
	require.NoError(t, err)
	assert.Equal(t, x509.DSA, req.PublicKeyAlgorithm)
	assert.Equal(t, "dsa", req.Subject.CommonName)
	assert.Equal(t, []string{"Acme"}, req.Subject.Organization)

	// flip a bit of the signature
	bad := bytes.Clone(der)
	bad[len(bad)-1] ^= 0x01
	_, err = csr.Parse(bad)
	require.Error(t, err)
	assert.Equal(t, pkierr.KindCrypto, pkierr.KindOf(err))

	_, err = csr.Build(kp, csr.SubjectAttributes{"CN": "dsa"}, csr.WithHash(crypto.SHA512))
	require.NoError(t, err)
}

func TestBuildErrors(t *testing.T) {
	attrs := csr.SubjectAttributes{"CN": "x"}

	_, err := csr.Build(nil, attrs)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))
	assert.EqualError(t, err, "key pair is required")

	pubOnly := newKeyPair(t, testca.ECDSAKey().Public())
	_, err = csr.Build(pubOnly, attrs)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))
	assert.EqualError(t, err, "private key is required to sign CSR")

	destroyed := newKeyPair(t, testca.ECDSAKey())
	destroyed.Destroy()
	_, err = csr.Build(destroyed, attrs)
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))
	assert.EqualError(t, err, "key pair has been destroyed")

	_, edKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	_, err = csr.Build(newKeyPair(t, edKey), attrs)
	assert.Equal(t, pkierr.KindUnsupportedKeyType, pkierr.KindOf(err))

	kp := newKeyPair(t, testca.ECDSAKey())
	_, err = csr.Build(kp, attrs, csr.WithHash(crypto.SHA1))
	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))

	tcases := []struct {
		name  string
		attrs csr.SubjectAttributes
		err   string
	}{
		{"nil", nil, "subject attributes are required"},
		{"empty", csr.SubjectAttributes{}, "subject attributes are required"},
		{"unknown", csr.SubjectAttributes{"CN": "x", "title": "boss"}, `unsupported subject attribute: "title"`},
		{"empty_value", csr.SubjectAttributes{"CN": " "}, "empty value for subject attribute: CN"},
		{"duplicate", csr.SubjectAttributes{"CN": "x", "commonName": "y"}, `duplicate subject attribute: CN is given as "CN" and "commonName"`},
		{"country_long", csr.SubjectAttributes{"C": "USA"}, "country must be a 2-letter code"},
		{"country_digits", csr.SubjectAttributes{"C": "1A"}, "country must be a 2-letter code"},
		{"email_utf8", csr.SubjectAttributes{"email": "алиса@example.org"}, "email address must be ASCII"},
		{"email_no_at", csr.SubjectAttributes{"email": "alice"}, "invalid email address"},
		{"invalid_utf8", csr.SubjectAttributes{"O": "\xff\xfe"}, "subject attribute O must be valid UTF-8"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			der, err := csr.Build(kp, tc.attrs)
			require.Error(t, err)
			assert.Nil(t, der)
			assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(err))
			assert.EqualError(t, err, tc.err)
		})
	}
}

// dsaSigner is an opaque signer with a DSA public key
type dsaSigner struct {
	pub *dsa.PublicKey
}

func (s dsaSigner) Public() crypto.PublicKey { return s.pub }

func (s dsaSigner) Sign(_ io.Reader, _ []byte, _ crypto.SignerOpts) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func TestBuildOpaqueDSASigner(t *testing.T) {
	key := testca.DSAKey()
	kp := newKeyPair(t, dsaSigner{pub: &key.PublicKey})
	require.Equal(t, keypair.DSA, kp.Type())

	var der []byte
	var err error
	assert.NotPanics(t, func() {
		der, err = csr.Build(kp, csr.SubjectAttributes{"CN": "opaque"})
	})
	require.Error(t, err)
	assert.Nil(t, der)
	assert.Equal(t, pkierr.KindUnsupportedKeyType, pkierr.KindOf(err))
	assert.EqualError(t, err, "unsupported DSA key object: csr_test.dsaSigner")
}

func TestParseErrors(t *testing.T) {
	_, err := csr.Parse([]byte{1, 2, 3})
	assert.Equal(t, pkierr.KindFormat, pkierr.KindOf(err))

	_, err = csr.ParsePEM([]byte("not PEM"))
	assert.Equal(t, pkierr.KindFormat, pkierr.KindOf(err))
	assert.EqualError(t, err, "unable to parse PEM")

	_, err = csr.ParsePEM([]byte("-----BEGIN CERTIFICATE-----\nAQID\n-----END CERTIFICATE-----\n"))
	assert.EqualError(t, err, "unsupported type in PEM: CERTIFICATE")

	assert.Equal(t, pkierr.KindValidation, pkierr.KindOf(csr.Verify(nil)))

	kp := newKeyPair(t, testca.RSAKey(2048))
	der, err := csr.Build(kp, csr.SubjectAttributes{"CN": "tamper"})
	require.NoError(t, err)
	der[len(der)-1] ^= 0x01
	_, err = csr.Parse(der)
	assert.Equal(t, pkierr.KindCrypto, pkierr.KindOf(err))
}

func TestAttributes(t *testing.T) {
	names := csr.Attributes()
	assert.Equal(t, "C", names[0])
	assert.Contains(t, names, "commonName")
	assert.Contains(t, names, "emailAddress")
}
