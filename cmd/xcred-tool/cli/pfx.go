package cli

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/certutil"
	"github.com/effective-security/xlog"
)

// PfxCmd is the parent for PKCS#12 commands
type PfxCmd struct {
	Create PfxCreateCmd `cmd:"" help:"create PKCS#12 identity"`
	Info   PfxInfoCmd   `cmd:"" help:"print PKCS#12 identity info"`
}

// PfxCreateCmd creates PKCS#12 identity
type PfxCreateCmd struct {
	Key           string `required:"" help:"private key file, PEM or DER"`
	KeyPassphrase string `help:"passphrase of the encrypted key, file: prefix loads it from file"`
	Cert          string `required:"" help:"certificate file, PEM or DER"`
	Passphrase    string `required:"" help:"passphrase of the identity, file: prefix loads it from file"`
	Output        string `help:"output file, the identity is written to stdout if not set"`
}

// Run the command
func (a *PfxCreateCmd) Run(ctx *Cli) error {
	keyBytes, err := ctx.ReadFile(a.Key)
	if err != nil {
		return errors.WithMessage(err, "unable to load key")
	}
	certBytes, err := ctx.ReadFile(a.Cert)
	if err != nil {
		return errors.WithMessage(err, "unable to load certificate")
	}
	keyPass, err := ctx.Secret(a.KeyPassphrase)
	if err != nil {
		return err
	}
	pass, err := ctx.Secret(a.Passphrase)
	if err != nil {
		return err
	}

	engine, err := ctx.Engine()
	if err != nil {
		return err
	}

	kp, err := engine.ParseKeyPair(keyBytes, keyPass)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	cert, err := certutil.ParseCertificate(certBytes)
	if err != nil {
		return err
	}

	id, err := engine.BuildIdentity(kp, cert, pass)
	if err != nil {
		return err
	}

	if a.Output == "" {
		_, _ = ctx.Writer().Write(id.Data)
		return nil
	}
	if err = os.WriteFile(a.Output, id.Data, 0600); err != nil {
		return errors.WithMessagef(err, "unable to write identity")
	}
	logger.KV(xlog.DEBUG, "status", "saved", "file", a.Output, "cn", id.FriendlyName)
	return nil
}

// PfxInfoCmd prints PKCS#12 identity info
type PfxInfoCmd struct {
	Pfx        string `kong:"arg" required:"" help:"PKCS#12 file name"`
	Passphrase string `required:"" help:"passphrase of the identity, file: prefix loads it from file"`
}

// Run the command
func (a *PfxInfoCmd) Run(ctx *Cli) error {
	b, err := ctx.ReadFile(a.Pfx)
	if err != nil {
		return errors.WithMessage(err, "unable to load identity")
	}
	pass, err := ctx.Secret(a.Passphrase)
	if err != nil {
		return err
	}

	engine, err := ctx.Engine()
	if err != nil {
		return err
	}

	kp, cert, err := engine.OpenIdentity(b, pass)
	if err != nil {
		return err
	}
	defer kp.Destroy()

	return ctx.WriteJSON(map[string]any{
		"friendly_name": cert.Subject.CommonName,
		"subject":       certutil.NameToString(&cert.Subject),
		"issuer":        certutil.NameToString(&cert.Issuer),
		"not_after":     cert.NotAfter.UTC().Format(time.RFC3339),
		"key_type":      kp.Type().String(),
		"key_size":      kp.Size(),
	})
}
