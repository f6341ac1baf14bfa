package certutil

import (
	"crypto/x509/pkix"
	"fmt"
	"strings"

	"github.com/effective-security/xcred/oid"
)

// NameToString returns the name in OpenSSL one-line form,
// for example: /C=US/O=Acme/CN=alice
func NameToString(name *pkix.Name) string {
	var b strings.Builder
	for _, atv := range name.Names {
		b.WriteByte('/')
		b.WriteString(oid.ShortName(atv.Type))
		b.WriteByte('=')
		fmt.Fprint(&b, atv.Value)
	}
	return b.String()
}
