// Package keypair parses private and public key material into KeyPair values.
//
// Supported inputs:
//   - PEM blocks with legacy OpenSSL encryption headers (Proc-Type: 4,ENCRYPTED)
//   - PKCS#8 ENCRYPTED PRIVATE KEY blocks (PBES2)
//   - unencrypted PKCS#1, PKCS#8, SEC1 EC and OpenSSL DSA private keys
//   - PKIX and PKCS#1 public keys, which produce public-only pairs
//
// A KeyPair owns its private key. Call Destroy when the pair is no longer
// needed to wipe the private scalars from memory.
package keypair
