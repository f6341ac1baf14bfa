package keypair

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/pkierr"
	"github.com/youmark/pkcs8"
)

// PEM block types
const (
	TypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	TypePrivateKey          = "PRIVATE KEY"
	TypePublicKey           = "PUBLIC KEY"
	TypeRSAPublicKey        = "RSA PUBLIC KEY"
)

const errDecrypt = "unable to decrypt private key: incorrect passphrase or corrupt data"

// Parse returns KeyPair from PEM encoded key.
// The passphrase is used only when the key is encrypted.
func Parse(pemBytes []byte, passphrase []byte) (*KeyPair, error) {
	block := findKeyBlock(pemBytes)
	if block == nil {
		return nil, pkierr.Formatf("unable to decode PEM: no key found")
	}
	return parseBlock(block, passphrase)
}

// ParseAny returns KeyPair from PEM or DER encoded key
func ParseAny(data []byte, passphrase []byte) (*KeyPair, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, pkierr.Validationf("key data is empty")
	}
	if bytes.Contains(data, []byte("-----BEGIN")) {
		return Parse(data, passphrase)
	}
	return ParseDER(data)
}

// ParseDER returns KeyPair from PKCS#1, PKCS#8, SEC1, OpenSSL DSA,
// or PKIX public key DER encoding
func ParseDER(der []byte) (*KeyPair, error) {
	if key, err := parsePrivateKeyDER(der); err == nil {
		return New(key)
	}
	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		return New(pub)
	}
	if pub, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return New(pub)
	}
	// the actual error is not included, it may describe the key
	return nil, pkierr.Formatf("unable to parse key")
}

// findKeyBlock returns the first key PEM block, skipping certificates
// and EC PARAMETERS blocks that openssl includes by default.
// Without a key block the first other block is returned.
func findKeyBlock(in []byte) *pem.Block {
	var first *pem.Block
	for {
		var block *pem.Block
		block, in = pem.Decode(in)
		if block == nil {
			return first
		}
		if strings.HasSuffix(block.Type, TypePrivateKey) || strings.HasSuffix(block.Type, TypePublicKey) {
			return block
		}
		if first == nil && block.Type != "EC PARAMETERS" {
			first = block
		}
	}
}

func isLegacyEncrypted(block *pem.Block) bool {
	procType, ok := block.Headers["Proc-Type"]
	return ok && strings.Contains(procType, "ENCRYPTED")
}

func parseBlock(block *pem.Block, passphrase []byte) (*KeyPair, error) {
	if isLegacyEncrypted(block) {
		return parseLegacyEncrypted(block, passphrase)
	}

	switch block.Type {
	case TypeEncryptedPrivateKey:
		return parseEncryptedPKCS8(block.Bytes, passphrase)
	case TypePublicKey:
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, pkierr.WrapFormat(err, "unable to parse public key")
		}
		return New(pub)
	case TypeRSAPublicKey:
		pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, pkierr.WrapFormat(err, "unable to parse RSA public key")
		}
		return New(pub)
	}

	if !strings.HasSuffix(block.Type, TypePrivateKey) {
		return nil, pkierr.Formatf("unsupported PEM block type: %q", block.Type)
	}

	defer wipe(block.Bytes)
	key, err := parsePrivateKeyDER(block.Bytes)
	if err != nil {
		return nil, err
	}
	return New(key)
}

//nolint:staticcheck
func parseLegacyEncrypted(block *pem.Block, passphrase []byte) (*KeyPair, error) {
	if len(passphrase) == 0 {
		return nil, pkierr.Validationf("private key is encrypted, passphrase is required")
	}

	der, err := x509.DecryptPEMBlock(block, passphrase)
	if err != nil {
		if errors.Is(err, x509.IncorrectPasswordError) {
			return nil, pkierr.Cryptof(errDecrypt)
		}
		return nil, pkierr.WrapFormat(err, "unable to decode encrypted PEM")
	}
	defer wipe(der)

	key, err := parsePrivateKeyDER(der)
	if err != nil {
		// the padding check passes for ~1/256 wrong passphrases
		return nil, pkierr.Cryptof(errDecrypt)
	}
	return New(key)
}

type encryptedPrivateKeyInfo struct {
	Algo          pkix.AlgorithmIdentifier
	EncryptedData []byte
}

func parseEncryptedPKCS8(der []byte, passphrase []byte) (*KeyPair, error) {
	var info encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(der, &info)
	if err != nil || len(rest) > 0 {
		return nil, pkierr.Formatf("unable to parse encrypted private key")
	}
	if len(passphrase) == 0 {
		return nil, pkierr.Validationf("private key is encrypted, passphrase is required")
	}

	key, err := pkcs8.ParsePKCS8PrivateKey(der, passphrase)
	if err != nil {
		return nil, pkierr.Cryptof(errDecrypt)
	}
	return New(key)
}

// parsePrivateKeyDER parses a PKCS #1, PKCS #8, SEC1 EC or DSA DER-encoded
// private key.
func parsePrivateKeyDER(der []byte) (any, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := parseDSAPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := parsePKCS8DSAPrivateKey(der); err == nil {
		return key, nil
	}

	// We don't include the actual error into
	// the final error, it may leak info about the key
	return nil, pkierr.Formatf("unable to parse private key")
}
