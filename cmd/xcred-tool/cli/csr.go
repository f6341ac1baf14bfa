package cli

import (
	"bytes"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xcred/certutil"
	"github.com/effective-security/xcred/csr"
	"github.com/effective-security/xcred/oid"
	"github.com/effective-security/xlog"
	"gopkg.in/yaml.v3"
)

// CsrCmd is the parent for CSR commands
type CsrCmd struct {
	Create CsrCreateCmd `cmd:"" help:"create CSR"`
	Info   CsrInfoCmd   `cmd:"" help:"print CSR info"`
}

// CsrCreateCmd creates CSR
type CsrCreateCmd struct {
	Key        string `required:"" help:"private key file, PEM or DER"`
	Passphrase string `help:"passphrase of the encrypted key, file: prefix loads it from file"`
	Subject    string `help:"YAML or JSON file with subject attributes"`
	CN         string `name:"cn" help:"common name"`
	O          string `name:"o" help:"organization"`
	OU         string `name:"ou" help:"organizational unit"`
	L          string `name:"l" help:"locality"`
	ST         string `name:"st" help:"state or province"`
	C          string `name:"c" help:"country, 2-letter code"`
	Email      string `help:"email address"`
	UID        string `name:"uid" help:"user ID"`
	Output     string `help:"output file, .csr is appended if missing"`
}

// Run the command
func (a *CsrCreateCmd) Run(ctx *Cli) error {
	attrs, err := a.subject(ctx)
	if err != nil {
		return err
	}

	keyBytes, err := ctx.ReadFile(a.Key)
	if err != nil {
		return errors.WithMessage(err, "unable to load key")
	}
	pass, err := ctx.Secret(a.Passphrase)
	if err != nil {
		return err
	}

	engine, err := ctx.Engine()
	if err != nil {
		return err
	}

	var der []byte
	if bytes.Contains(keyBytes, []byte("-----BEGIN")) {
		kp, err := engine.ParseKeyPair(keyBytes, pass)
		if err != nil {
			return err
		}
		defer kp.Destroy()
		der, err = engine.GenerateCSR(kp, attrs)
		if err != nil {
			return err
		}
	} else {
		der, err = engine.GenerateCSRFromKey(keyBytes, attrs)
		if err != nil {
			return err
		}
	}

	pemBytes := csr.EncodePEM(der)
	if a.Output == "" {
		_, _ = ctx.Writer().Write(pemBytes)
		return nil
	}

	file := values.Select(strings.HasSuffix(a.Output, ".csr"), a.Output, a.Output+".csr")
	if err = os.WriteFile(file, pemBytes, 0644); err != nil {
		return errors.WithMessagef(err, "unable to write CSR")
	}
	logger.KV(xlog.DEBUG, "status", "saved", "file", file)
	return nil
}

func (a *CsrCreateCmd) subject(ctx *Cli) (csr.SubjectAttributes, error) {
	attrs := csr.SubjectAttributes{}
	if a.Subject != "" {
		b, err := ctx.ReadFile(a.Subject)
		if err != nil {
			return nil, errors.WithMessage(err, "unable to load subject")
		}
		// YAML is a superset of JSON
		if err = yaml.Unmarshal(b, &attrs); err != nil {
			return nil, errors.WithMessage(err, "unable to decode subject")
		}
	}

	for k, v := range map[string]string{
		"CN":           a.CN,
		"O":            a.O,
		"OU":           a.OU,
		"L":            a.L,
		"ST":           a.ST,
		"C":            a.C,
		"emailAddress": a.Email,
		"UID":          a.UID,
	} {
		if v != "" {
			attrs[k] = v
		}
	}
	return attrs, nil
}

// CsrInfoCmd specifies flags for Info command
type CsrInfoCmd struct {
	Csr string `kong:"arg" required:"" help:"CSR file name, PEM or DER"`
}

// Run the command
func (a *CsrInfoCmd) Run(ctx *Cli) error {
	b, err := ctx.ReadFile(a.Csr)
	if err != nil {
		return errors.WithMessage(err, "unable to load CSR file")
	}

	parse := csr.Parse
	if bytes.Contains(b, []byte("-----BEGIN")) {
		parse = csr.ParsePEM
	}
	req, err := parse(b)
	if err != nil {
		return err
	}

	res := map[string]any{
		"subject":             certutil.NameToString(&req.Subject),
		"signature_algorithm": oid.SignatureAlgorithmName(req.SignatureAlgorithm),
		"signature":           "valid",
	}
	if ki, err := certutil.NewKeyInfo(req.PublicKey); err == nil {
		res["key_type"] = ki.Type
		res["key_size"] = ki.KeySize
	}
	return ctx.WriteJSON(res)
}
