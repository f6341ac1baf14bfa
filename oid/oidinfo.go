package oid

import (
	"crypto/x509"
	"encoding/asn1"
)

// Distinguished name attributes
var (
	NameEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}
	NameCN           = asn1.ObjectIdentifier{2, 5, 4, 3}
	NameSerial       = asn1.ObjectIdentifier{2, 5, 4, 5}
	NameC            = asn1.ObjectIdentifier{2, 5, 4, 6}
	NameL            = asn1.ObjectIdentifier{2, 5, 4, 7}
	NameST           = asn1.ObjectIdentifier{2, 5, 4, 8}
	NameStreet       = asn1.ObjectIdentifier{2, 5, 4, 9}
	NameO            = asn1.ObjectIdentifier{2, 5, 4, 10}
	NameOU           = asn1.ObjectIdentifier{2, 5, 4, 11}
	NamePostal       = asn1.ObjectIdentifier{2, 5, 4, 17}
	NameUID          = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}
	NameDC           = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}
)

// Key and signature algorithms
var (
	PublicKeyRSA   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	PublicKeyDSA   = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 1}
	PublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

	SignatureDSAWithSHA1   = asn1.ObjectIdentifier{1, 2, 840, 10040, 4, 3}
	SignatureDSAWithSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 3, 2}
)

// NameShort provides short names of DN attributes,
// as printed by OpenSSL
var NameShort = map[string]string{
	NameC.String():            "C",
	NameST.String():           "ST",
	NameL.String():            "L",
	NameO.String():            "O",
	NameOU.String():           "OU",
	NameCN.String():           "CN",
	NameSerial.String():       "SERIALNUMBER",
	NameStreet.String():       "STREET",
	NamePostal.String():       "POSTALCODE",
	NameUID.String():          "UID",
	NameDC.String():           "DC",
	NameEmailAddress.String(): "emailAddress",
}

// DisplayName provides OID name
var DisplayName = map[string]string{
	PublicKeyRSA.String():           "RSA",
	PublicKeyDSA.String():           "DSA",
	PublicKeyECDSA.String():         "ECDSA",
	SignatureDSAWithSHA1.String():   "DSA-SHA1",
	SignatureDSAWithSHA256.String(): "DSA-SHA256",
}

// ShortName returns the short attribute name,
// or dotted OID string if the attribute is not known
func ShortName(id asn1.ObjectIdentifier) string {
	s := id.String()
	if n, ok := NameShort[s]; ok {
		return n
	}
	return s
}

// SignatureAlgorithmName returns the name of the signature algorithm
func SignatureAlgorithmName(algo x509.SignatureAlgorithm) string {
	return algo.String()
}

// Strings returns list of OID string values
func Strings(ids ...asn1.ObjectIdentifier) []string {
	list := make([]string, 0, len(ids))

	for _, k := range ids {
		list = append(list, k.String())
	}

	return list
}
