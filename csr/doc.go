// Package csr builds and verifies PKCS#10 Certificate Signing Requests
// as defined by RFC 2986.
//
// The subject is built from SubjectAttributes, a map of distinguished name
// attributes, and is always encoded in the same order regardless of the map
// iteration order:
//
//	C, ST, L, O, OU, CN, UID, emailAddress
//
// Each attribute becomes a single-valued RDN. Unrecognized attribute names,
// empty values and aliases of the same attribute given twice are rejected.
//
// RSA and ECDSA requests are created by crypto/x509. DSA requests are
// assembled by this package, as crypto/x509 does not sign with DSA keys,
// and verified with Verify.
package csr
