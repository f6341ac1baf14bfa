package csr

import (
	"crypto/dsa" //nolint:staticcheck
	"crypto/x509"
	"encoding/pem"

	"github.com/effective-security/xcred/pkierr"
)

// Parse returns the request parsed from DER, with verified signature
func Parse(der []byte) (*x509.CertificateRequest, error) {
	req, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, pkierr.WrapFormat(err, "failed to parse CSR")
	}
	if err = Verify(req); err != nil {
		return nil, err
	}
	return req, nil
}

// ParsePEM returns the request parsed from PEM, with verified signature
func ParsePEM(csrPEM []byte) (*x509.CertificateRequest, error) {
	block, _ := pem.Decode(csrPEM)
	if block == nil {
		return nil, pkierr.Formatf("unable to parse PEM")
	}
	if block.Type != TypeNewCertificateRequest && block.Type != TypeCertificateRequest {
		return nil, pkierr.Formatf("unsupported type in PEM: %s", block.Type)
	}
	return Parse(block.Bytes)
}

// Verify checks the request signature against the embedded public key
func Verify(req *x509.CertificateRequest) error {
	if req == nil {
		return pkierr.Validationf("CSR is required")
	}
	if pub, ok := req.PublicKey.(*dsa.PublicKey); ok {
		return verifyDSA(req.Raw, req.RawTBSCertificateRequest, pub)
	}
	if err := req.CheckSignature(); err != nil {
		return pkierr.WrapCrypto(err, "CSR signature verification failed")
	}
	return nil
}
