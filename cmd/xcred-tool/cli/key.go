package cli

import (
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/certutil"
	"github.com/effective-security/xcred/keypair"
)

// KeyCmd is the parent for key commands
type KeyCmd struct {
	Info KeyInfoCmd `cmd:"" help:"print key info"`
}

// KeyInfoCmd prints key info
type KeyInfoCmd struct {
	Key        string `kong:"arg" required:"" help:"key file name, PEM or DER"`
	Passphrase string `help:"passphrase of the encrypted key, file: prefix loads it from file"`
	Jwk        bool   `help:"print the public key as JWK"`
}

// Run the command
func (a *KeyInfoCmd) Run(ctx *Cli) error {
	b, err := ctx.ReadFile(a.Key)
	if err != nil {
		return errors.WithMessage(err, "unable to load key")
	}
	pass, err := ctx.Secret(a.Passphrase)
	if err != nil {
		return err
	}

	kp, err := keypair.ParseAny(b, []byte(pass))
	if err != nil {
		return err
	}
	defer kp.Destroy()

	if a.Jwk {
		jwk, err := certutil.PublicJWK(kp.Public(), "sig")
		if err != nil {
			return err
		}
		js, err := jwk.MarshalJSON()
		if err != nil {
			return errors.WithStack(err)
		}
		_, _ = ctx.Writer().Write(append(js, '\n'))
		return nil
	}

	res := map[string]any{
		"type":    kp.Type().String(),
		"size":    kp.Size(),
		"private": kp.HasPrivateKey(),
	}
	if tp, err := certutil.Thumbprint(kp.Public()); err == nil {
		res["thumbprint"] = tp
	}
	return ctx.WriteJSON(res)
}
