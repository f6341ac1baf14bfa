package certutil

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/pkierr"
)

// PEM block types
const (
	TypeCertificate = "CERTIFICATE"
	TypePublicKey   = "PUBLIC KEY"
)

const certTimeFormat = "Jan 2 15:04:05 2006 GMT"

// ParseCertificate returns Certificate parsed from PEM or DER
func ParseCertificate(data []byte) (*x509.Certificate, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, pkierr.Validationf("certificate is required")
	}
	if bytes.Contains(data, []byte("-----BEGIN")) {
		return ParseFromPEM(data)
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, pkierr.WrapFormat(err, "unable to parse certificate")
	}
	return cert, nil
}

// ParseFromPEM returns the first Certificate parsed from PEM,
// blocks of other types are skipped
func ParseFromPEM(data []byte) (*x509.Certificate, error) {
	var block *pem.Block
	for {
		block, data = pem.Decode(data)
		if block == nil || block.Type == TypeCertificate {
			break
		}
	}
	if block == nil || len(block.Headers) != 0 {
		return nil, pkierr.Formatf("unable to parse PEM")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, pkierr.WrapFormat(err, "unable to parse certificate")
	}
	return cert, nil
}

// ParseChainFromPEM returns Certificates parsed from PEM,
// blocks of other types are skipped
func ParseChainFromPEM(data []byte) ([]*x509.Certificate, error) {
	var list []*x509.Certificate
	var block *pem.Block
	rest := bytes.TrimSpace(data)
	for len(rest) != 0 {
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, pkierr.Formatf("potentially malformed PEM")
		}
		if block.Type == TypeCertificate {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, pkierr.WrapFormat(err, "failed to parse certificate")
			}
			list = append(list, cert)
		}
		rest = bytes.TrimSpace(rest)
	}
	return list, nil
}

// encodeToPEM converts certificate to PEM format, with optional comments
func encodeToPEM(out io.Writer, withComments bool, crt *x509.Certificate) error {
	if withComments {
		fmt.Fprintf(out, "#   Issuer: %s", NameToString(&crt.Issuer))
		fmt.Fprintf(out, "\n#   Subject: %s", NameToString(&crt.Subject))
		fmt.Fprint(out, "\n#   Validity")
		fmt.Fprintf(out, "\n#       Not Before: %s", crt.NotBefore.UTC().Format(certTimeFormat))
		fmt.Fprintf(out, "\n#       Not After : %s", crt.NotAfter.UTC().Format(certTimeFormat))
		fmt.Fprint(out, "\n")
	}

	err := pem.Encode(out, &pem.Block{Type: TypeCertificate, Bytes: crt.Raw})
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// EncodeToPEM converts certificates to PEM format, with optional comments
func EncodeToPEM(out io.Writer, withComments bool, certs ...*x509.Certificate) error {
	for _, crt := range certs {
		if crt != nil {
			if err := encodeToPEM(out, withComments, crt); err != nil {
				return err
			}
		}
	}
	return nil
}

// EncodeToPEMString converts certificates to PEM format, with optional comments
func EncodeToPEMString(withComments bool, certs ...*x509.Certificate) (string, error) {
	if len(certs) == 0 || certs[0] == nil {
		return "", nil
	}

	b := new(bytes.Buffer)
	if err := EncodeToPEM(b, withComments, certs...); err != nil {
		return "", err
	}
	s := strings.TrimSpace(b.String())
	return strings.ReplaceAll(s, "\n\n", "\n"), nil
}

// EncodePublicKeyToPEM returns PEM encoded public key
func EncodePublicKeyToPEM(pubKey crypto.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pubKey)
	if err != nil {
		return nil, pkierr.Unsupportedf("unable to encode public key: %T", pubKey)
	}
	return pem.EncodeToMemory(&pem.Block{Type: TypePublicKey, Bytes: der}), nil
}
