package csr

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/oid"
	"github.com/effective-security/xcred/pkierr"
)

// SubjectAttributes maps distinguished name attributes to values.
// Attribute names are case-insensitive, see Attributes for the recognized names.
type SubjectAttributes map[string]string

type attribute struct {
	name string
	oid  asn1.ObjectIdentifier
	tag  int
	keys []string
}

// attributes in canonical order
var attributes = []attribute{
	{"C", oid.NameC, asn1.TagPrintableString, []string{"C", "countryName", "country"}},
	{"ST", oid.NameST, asn1.TagUTF8String, []string{"ST", "stateOrProvinceName", "stateOrProvince", "state"}},
	{"L", oid.NameL, asn1.TagUTF8String, []string{"L", "localityName", "locality"}},
	{"O", oid.NameO, asn1.TagUTF8String, []string{"O", "organizationName", "organization"}},
	{"OU", oid.NameOU, asn1.TagUTF8String, []string{"OU", "organizationalUnitName", "organizationalUnit"}},
	{"CN", oid.NameCN, asn1.TagUTF8String, []string{"CN", "commonName"}},
	{"UID", oid.NameUID, asn1.TagUTF8String, []string{"UID", "userId"}},
	{"emailAddress", oid.NameEmailAddress, asn1.TagIA5String, []string{"emailAddress", "E", "email"}},
}

var attributeIndex = func() map[string]int {
	m := map[string]int{}
	for i, a := range attributes {
		for _, k := range a.keys {
			m[strings.ToLower(k)] = i
		}
	}
	return m
}()

// Attributes returns the recognized attribute names, including aliases,
// in canonical order
func Attributes() []string {
	var list []string
	for _, a := range attributes {
		list = append(list, a.keys...)
	}
	return list
}

// RDNSequence returns the validated subject in canonical order
func (s SubjectAttributes) RDNSequence() (pkix.RDNSequence, error) {
	if len(s) == 0 {
		return nil, pkierr.Validationf("subject attributes are required")
	}

	// sorted keys make the reported error stable
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, len(attributes))
	given := make([]string, len(attributes))
	for _, k := range keys {
		idx, ok := attributeIndex[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			return nil, pkierr.Validationf("unsupported subject attribute: %q", k)
		}
		a := attributes[idx]
		if given[idx] != "" {
			return nil, pkierr.Validationf("duplicate subject attribute: %s is given as %q and %q", a.name, given[idx], k)
		}
		v := strings.TrimSpace(s[k])
		if v == "" {
			return nil, pkierr.Validationf("empty value for subject attribute: %s", a.name)
		}
		if err := checkValue(a, v); err != nil {
			return nil, err
		}
		given[idx] = k
		values[idx] = v
	}

	var seq pkix.RDNSequence
	for idx, v := range values {
		if v == "" {
			continue
		}
		a := attributes[idx]
		seq = append(seq, pkix.RelativeDistinguishedNameSET{
			{
				Type:  a.oid,
				Value: asn1.RawValue{Tag: a.tag, Bytes: []byte(v)},
			},
		})
	}
	return seq, nil
}

// Marshal returns DER encoded subject name
func (s SubjectAttributes) Marshal() ([]byte, error) {
	seq, err := s.RDNSequence()
	if err != nil {
		return nil, err
	}
	der, err := asn1.Marshal(seq)
	if err != nil {
		return nil, pkierr.WrapFormat(errors.WithStack(err), "unable to encode subject")
	}
	return der, nil
}

func checkValue(a attribute, v string) error {
	switch a.tag {
	case asn1.TagPrintableString:
		if len(v) != 2 || !isLetter(v[0]) || !isLetter(v[1]) {
			return pkierr.Validationf("country must be a 2-letter code")
		}
	case asn1.TagIA5String:
		for i := 0; i < len(v); i++ {
			if v[i] >= utf8.RuneSelf {
				return pkierr.Validationf("email address must be ASCII")
			}
		}
		at := strings.IndexByte(v, '@')
		if at <= 0 || at == len(v)-1 {
			return pkierr.Validationf("invalid email address")
		}
	default:
		if !utf8.ValidString(v) {
			return pkierr.Validationf("subject attribute %s must be valid UTF-8", a.name)
		}
	}
	return nil
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
