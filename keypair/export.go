package keypair

import (
	"crypto"
	"crypto/dsa" //nolint:staticcheck
	"encoding/pem"

	"github.com/effective-security/xcred/pkierr"
	"github.com/youmark/pkcs8"
)

// EncodePEM returns PEM encoded private key.
// With a passphrase the key is encrypted as PKCS#8 ENCRYPTED PRIVATE KEY,
// otherwise it is encoded as unencrypted PKCS#8, or OpenSSL DSA PRIVATE KEY.
func (kp *KeyPair) EncodePEM(passphrase []byte) ([]byte, error) {
	var out []byte
	err := kp.Use(func(priv crypto.PrivateKey) error {
		if k, ok := priv.(*dsa.PrivateKey); ok {
			if len(passphrase) > 0 {
				return pkierr.Unsupportedf("encrypted export is not supported for DSA keys")
			}
			var err error
			out, err = EncodeDSAPrivateKeyToPEM(k)
			return pkierr.WrapFormat(err, "unable to encode DSA key")
		}

		der, err := pkcs8.MarshalPrivateKey(priv, passphrase, nil)
		if err != nil {
			return pkierr.Unsupportedf("unable to encode %s key", kp.keyType)
		}
		defer wipe(der)

		typ := TypePrivateKey
		if len(passphrase) > 0 {
			typ = TypeEncryptedPrivateKey
		}
		out = pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
