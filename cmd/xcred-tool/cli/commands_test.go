package cli

import (
	"crypto/x509/pkix"
	"path/filepath"

	"github.com/effective-security/x/fileutil"
	"github.com/effective-security/xcred/pkierr"
)

func pkixName(cn, org string) pkix.Name {
	return pkix.Name{CommonName: cn, Organization: []string{org}}
}

func (s *testSuite) TestKeyInfo() {
	cmd := KeyInfoCmd{Key: s.rsaKey}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("RSA", "2048", "thumbprint", "private")

	s.Out.Reset()
	cmd = KeyInfoCmd{Key: s.encKey, Passphrase: "file:" + s.passFile}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("RSA", "2048")

	s.Out.Reset()
	cmd = KeyInfoCmd{Key: s.ecKey, Jwk: true}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText(`"kty":"EC"`, `"crv":"P-256"`)
	s.HasNoText(`"d":`)
}

func (s *testSuite) TestKeyInfoErrors() {
	cmd := KeyInfoCmd{Key: s.encKey}
	err := cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindValidation, pkierr.KindOf(err))

	cmd = KeyInfoCmd{Key: s.encKey, Passphrase: "wrong"}
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindCrypto, pkierr.KindOf(err))

	cmd = KeyInfoCmd{Key: filepath.Join(s.tmpdir, "missing.key")}
	s.Error(cmd.Run(s.ctl))
}

func (s *testSuite) TestCsrCreateAndInfo() {
	out := filepath.Join(s.tmpdir, "peer")
	cmd := CsrCreateCmd{
		Key:    s.rsaKey,
		CN:     "localhost",
		C:      "US",
		O:      "Acme",
		Output: out,
	}
	s.Require().NoError(cmd.Run(s.ctl))
	s.Require().NoError(fileutil.FileExists(out + ".csr"))
	s.HasTextInFile(out+".csr", "-----BEGIN CERTIFICATE REQUEST-----")

	info := CsrInfoCmd{Csr: out + ".csr"}
	s.Require().NoError(info.Run(s.ctl))
	s.HasText("/C=US/O=Acme/CN=localhost", "SHA256-RSA", "valid", "RSA")
}

func (s *testSuite) TestCsrCreateFromSubjectFile() {
	subject := s.writeFile("subject.yaml", []byte("CN: alice\nemailAddress: alice@example.com\n"))

	cmd := CsrCreateCmd{
		Key:        s.encKey,
		Passphrase: "s3cret",
		Subject:    subject,
		OU:         "dev",
	}
	s.Require().NoError(cmd.Run(s.ctl))
	s.HasText("-----BEGIN CERTIFICATE REQUEST-----")

	csrFile := s.writeFile("alice.csr", s.Out.Bytes())
	s.Out.Reset()

	info := CsrInfoCmd{Csr: csrFile}
	s.Require().NoError(info.Run(s.ctl))
	s.HasText("/OU=dev/CN=alice/emailAddress=alice@example.com")
}

func (s *testSuite) TestCsrCreateErrors() {
	cmd := CsrCreateCmd{Key: s.rsaKey}
	err := cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindValidation, pkierr.KindOf(err))

	subject := s.writeFile("bad_subject.yaml", []byte("title: boss\n"))
	cmd = CsrCreateCmd{Key: s.rsaKey, Subject: subject}
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Contains(err.Error(), `unsupported subject attribute: "title"`)

	cmd = CsrCreateCmd{Key: s.rsaKey, CN: "x", C: "USA"}
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindValidation, pkierr.KindOf(err))

	info := CsrInfoCmd{Csr: s.cert}
	s.Error(info.Run(s.ctl))
}

func (s *testSuite) TestPfx() {
	out := filepath.Join(s.tmpdir, "leaf.p12")
	cmd := PfxCreateCmd{
		Key:        s.rsaKey,
		Cert:       s.cert,
		Passphrase: "file:" + s.passFile,
		Output:     out,
	}
	s.Require().NoError(cmd.Run(s.ctl))
	s.Require().NoError(fileutil.FileExists(out))

	info := PfxInfoCmd{Pfx: out, Passphrase: "s3cret"}
	s.Require().NoError(info.Run(s.ctl))
	s.HasText("friendly_name", "leaf", "/O=Acme/CN=leaf", "RSA", "2048")

	info = PfxInfoCmd{Pfx: out, Passphrase: "wrong"}
	err := info.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindCrypto, pkierr.KindOf(err))
}

func (s *testSuite) TestPfxCreateErrors() {
	cmd := PfxCreateCmd{
		Key:        s.ecKey,
		Cert:       s.cert,
		Passphrase: "s3cret",
	}
	err := cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindValidation, pkierr.KindOf(err))

	cmd = PfxCreateCmd{
		Key:           s.encKey,
		KeyPassphrase: "wrong",
		Cert:          s.cert,
		Passphrase:    "s3cret",
	}
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindCrypto, pkierr.KindOf(err))

	cmd = PfxCreateCmd{
		Key:  s.rsaKey,
		Cert: s.cert,
	}
	err = cmd.Run(s.ctl)
	s.Require().Error(err)
	s.Equal(pkierr.KindValidation, pkierr.KindOf(err))
}
