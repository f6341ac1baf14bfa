package csr

import (
	"crypto/dsa" //nolint:staticcheck
	"crypto/sha1" //nolint:gosec
	"crypto/sha256"
	"encoding/asn1"
	"io"
	"math/big"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/oid"
	"github.com/effective-security/xcred/pkierr"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// createDSARequest assembles and signs the request with dsa-with-SHA256:
//
//	CertificationRequest ::= SEQUENCE {
//	    certificationRequestInfo SEQUENCE {
//	        version       INTEGER (0),
//	        subject       Name,
//	        subjectPKInfo SubjectPublicKeyInfo,
//	        attributes    [0] IMPLICIT SET OF Attribute },
//	    signatureAlgorithm AlgorithmIdentifier,
//	    signature          BIT STRING }
//
//nolint:staticcheck
func createDSARequest(r io.Reader, subject []byte, priv *dsa.PrivateKey) ([]byte, error) {
	var info cryptobyte.Builder
	info.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1Int64(0)
		b.AddBytes(subject)
		addDSAPublicKeyInfo(b, &priv.PublicKey)
		b.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(*cryptobyte.Builder) {})
	})
	tbs, err := info.Bytes()
	if err != nil {
		return nil, pkierr.WrapFormat(errors.WithStack(err), "unable to encode CSR")
	}

	digest := sha256.Sum256(tbs)
	rs, ss, err := dsa.Sign(r, priv, truncateHash(digest[:], priv.Q))
	if err != nil {
		return nil, pkierr.WrapCrypto(errors.WithStack(err), "unable to sign CSR")
	}

	var sig cryptobyte.Builder
	sig.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(rs)
		b.AddASN1BigInt(ss)
	})
	sigDER, err := sig.Bytes()
	if err != nil {
		return nil, pkierr.WrapCrypto(errors.WithStack(err), "unable to encode signature")
	}

	var req cryptobyte.Builder
	req.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(tbs)
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oid.SignatureDSAWithSHA256)
		})
		addBitString(b, sigDER)
	})
	der, err := req.Bytes()
	if err != nil {
		return nil, pkierr.WrapFormat(errors.WithStack(err), "unable to encode CSR")
	}
	return der, nil
}

//nolint:staticcheck
func addDSAPublicKeyInfo(b *cryptobyte.Builder, pub *dsa.PublicKey) {
	b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
			b.AddASN1ObjectIdentifier(oid.PublicKeyDSA)
			b.AddASN1(cbasn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddASN1BigInt(pub.P)
				b.AddASN1BigInt(pub.Q)
				b.AddASN1BigInt(pub.G)
			})
		})
		var y cryptobyte.Builder
		y.AddASN1BigInt(pub.Y)
		addBitString(b, y.BytesOrPanic())
	})
}

func addBitString(b *cryptobyte.Builder, data []byte) {
	b.AddASN1(cbasn1.BIT_STRING, func(b *cryptobyte.Builder) {
		b.AddUint8(0) // no unused bits
		b.AddBytes(data)
	})
}

// truncateHash returns the leftmost bytes of the digest
// matching the size of the subgroup
func truncateHash(digest []byte, q *big.Int) []byte {
	if n := (q.BitLen() + 7) / 8; len(digest) > n {
		return digest[:n]
	}
	return digest
}

// verifyDSA checks the signature of DER encoded request
//
//nolint:staticcheck
func verifyDSA(raw, tbs []byte, pub *dsa.PublicKey) error {
	input := cryptobyte.String(raw)
	var seq, algo cryptobyte.String
	var algoID asn1.ObjectIdentifier
	var sig asn1.BitString
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) ||
		!seq.SkipASN1(cbasn1.SEQUENCE) ||
		!seq.ReadASN1(&algo, cbasn1.SEQUENCE) ||
		!algo.ReadASN1ObjectIdentifier(&algoID) ||
		!seq.ReadASN1BitString(&sig) {
		return pkierr.Formatf("malformed CSR")
	}

	var digest []byte
	switch {
	case algoID.Equal(oid.SignatureDSAWithSHA256):
		d := sha256.Sum256(tbs)
		digest = d[:]
	case algoID.Equal(oid.SignatureDSAWithSHA1):
		d := sha1.Sum(tbs) //nolint:gosec
		digest = d[:]
	default:
		return pkierr.Unsupportedf("unsupported signature algorithm for DSA key: %s", algoID)
	}

	rs, ss := new(big.Int), new(big.Int)
	sigInput := cryptobyte.String(sig.RightAlign())
	var inner cryptobyte.String
	if !sigInput.ReadASN1(&inner, cbasn1.SEQUENCE) ||
		!inner.ReadASN1Integer(rs) ||
		!inner.ReadASN1Integer(ss) ||
		!inner.Empty() {
		return pkierr.Formatf("malformed DSA signature")
	}
	if rs.Sign() <= 0 || ss.Sign() <= 0 {
		return pkierr.Cryptof("invalid DSA signature")
	}

	if !dsa.Verify(pub, truncateHash(digest, pub.Q), rs, ss) {
		return pkierr.Cryptof("CSR signature verification failed")
	}
	return nil
}
