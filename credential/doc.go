// Package credential exposes CSR generation and identity packaging
// with two call conventions: on parsed key pairs and certificates, or on
// raw encoded bytes that are parsed first.
//
// Every error returned by the Engine is classified, use pkierr.KindOf or
// errors.Is with the pkierr marks to branch on it. No artifact is returned
// together with an error.
package credential
