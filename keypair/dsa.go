package keypair

import (
	"crypto/dsa" //nolint:staticcheck
	"encoding/asn1"
	"encoding/pem"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/oid"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// parseDSAPrivateKey parses the OpenSSL DSA private key:
//
//	SEQUENCE { version INTEGER (0), p, q, g, y, x INTEGER }
func parseDSAPrivateKey(der []byte) (*dsa.PrivateKey, error) {
	k := newDSAKey()
	input := cryptobyte.String(der)

	var seq cryptobyte.String
	var version int
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Integer(&version) || version != 0 ||
		!seq.ReadASN1Integer(k.P) ||
		!seq.ReadASN1Integer(k.Q) ||
		!seq.ReadASN1Integer(k.G) ||
		!seq.ReadASN1Integer(k.Y) ||
		!seq.ReadASN1Integer(k.X) ||
		!seq.Empty() {
		return nil, errors.New("invalid DSA private key")
	}

	if err := checkDSAPrivateKey(k); err != nil {
		wipeInt(k.X)
		return nil, err
	}
	return k, nil
}

// parsePKCS8DSAPrivateKey parses PKCS#8 PrivateKeyInfo with id-dsa algorithm,
// Dss-Parms parameters and INTEGER x as the private key.
func parsePKCS8DSAPrivateKey(der []byte) (*dsa.PrivateKey, error) {
	k := newDSAKey()
	input := cryptobyte.String(der)

	var seq, algo, params, privKey cryptobyte.String
	var version int
	var algoID asn1.ObjectIdentifier
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) || !input.Empty() ||
		!seq.ReadASN1Integer(&version) || version != 0 ||
		!seq.ReadASN1(&algo, cbasn1.SEQUENCE) ||
		!algo.ReadASN1ObjectIdentifier(&algoID) ||
		!algoID.Equal(oid.PublicKeyDSA) ||
		!algo.ReadASN1(&params, cbasn1.SEQUENCE) ||
		!params.ReadASN1Integer(k.P) ||
		!params.ReadASN1Integer(k.Q) ||
		!params.ReadASN1Integer(k.G) ||
		!seq.ReadASN1(&privKey, cbasn1.OCTET_STRING) ||
		!privKey.ReadASN1Integer(k.X) ||
		!privKey.Empty() {
		return nil, errors.New("invalid PKCS#8 DSA private key")
	}

	k.Y.Exp(k.G, k.X, k.P)
	if err := checkDSAPrivateKey(k); err != nil {
		wipeInt(k.X)
		return nil, err
	}
	return k, nil
}

func newDSAKey() *dsa.PrivateKey {
	return &dsa.PrivateKey{
		PublicKey: dsa.PublicKey{
			Parameters: dsa.Parameters{
				P: new(big.Int),
				Q: new(big.Int),
				G: new(big.Int),
			},
			Y: new(big.Int),
		},
		X: new(big.Int),
	}
}

var one = big.NewInt(1)

// checkDSAPrivateKey verifies the key is consistent: 1 < x < q, 1 < g < p, y = g^x mod p
func checkDSAPrivateKey(k *dsa.PrivateKey) error {
	if k.P == nil || k.Q == nil || k.G == nil || k.Y == nil || k.X == nil {
		return errors.New("incomplete DSA private key")
	}
	if k.P.BitLen() < 512 || k.Q.Sign() <= 0 ||
		k.G.Cmp(one) <= 0 || k.G.Cmp(k.P) >= 0 ||
		k.X.Cmp(one) <= 0 || k.X.Cmp(k.Q) >= 0 {
		return errors.New("invalid DSA parameters")
	}
	if new(big.Int).Exp(k.G, k.X, k.P).Cmp(k.Y) != 0 {
		return errors.New("DSA public key does not match private key")
	}
	return nil
}

// MarshalDSAPrivateKey returns the OpenSSL DER encoding of the DSA private key
func MarshalDSAPrivateKey(k *dsa.PrivateKey) ([]byte, error) {
	if err := checkDSAPrivateKey(k); err != nil {
		return nil, err
	}

	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		b.AddASN1BigInt(k.P)
		b.AddASN1BigInt(k.Q)
		b.AddASN1BigInt(k.G)
		b.AddASN1BigInt(k.Y)
		b.AddASN1BigInt(k.X)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return der, nil
}

// EncodeDSAPrivateKeyToPEM returns PEM encoded DSA PRIVATE KEY block
func EncodeDSAPrivateKeyToPEM(k *dsa.PrivateKey) ([]byte, error) {
	der, err := MarshalDSAPrivateKey(k)
	if err != nil {
		return nil, err
	}
	defer wipe(der)
	return pem.EncodeToMemory(&pem.Block{Type: "DSA PRIVATE KEY", Bytes: der}), nil
}
