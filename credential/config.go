package credential

import (
	"crypto"
	"encoding/json"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xcred/identity"
	"github.com/effective-security/xcred/pkierr"
	"gopkg.in/yaml.v3"
)

// Config for the Engine
type Config struct {
	CSR    CSRConfig    `json:"csr"    yaml:"csr"`
	PKCS12 PKCS12Config `json:"pkcs12" yaml:"pkcs12"`
}

// CSRConfig configures CSR generation
type CSRConfig struct {
	// Hash overrides the signature digest: SHA256, SHA384 or SHA512.
	// Empty value selects the digest by the key strength.
	Hash string `json:"hash" yaml:"hash"`
}

// PKCS12Config configures identity packaging
type PKCS12Config struct {
	// Encoder is one of modern, legacy-rc2, legacy-des
	Encoder string `json:"encoder" yaml:"encoder"`
	// Iterations is the KDF iteration count, 0 keeps the encoder default
	Iterations int `json:"iterations" yaml:"iterations"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		PKCS12: PKCS12Config{
			Encoder: string(identity.EncoderModern),
		},
	}
}

var hashNames = map[string]crypto.Hash{
	"":       0,
	"SHA256": crypto.SHA256,
	"SHA384": crypto.SHA384,
	"SHA512": crypto.SHA512,
}

// Validate returns ValidationError if the configuration is invalid
func (c *Config) Validate() error {
	if _, err := c.hash(); err != nil {
		return err
	}
	if _, err := identity.ParseEncoder(c.PKCS12.Encoder); err != nil {
		return err
	}
	if c.PKCS12.Iterations < 0 {
		return pkierr.Validationf("invalid pkcs12.iterations: %d", c.PKCS12.Iterations)
	}
	return nil
}

func (c *Config) hash() (crypto.Hash, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(c.CSR.Hash), "-", ""))
	h, ok := hashNames[name]
	if !ok {
		return 0, pkierr.Validationf("unsupported csr.hash: %q", c.CSR.Hash)
	}
	return h, nil
}

// LoadConfig returns configuration loaded from JSON or YAML file,
// the format is chosen by the file suffix
func LoadConfig(file string) (*Config, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, pkierr.Classify(errors.WithMessagef(err, "unable to load config"), pkierr.KindValidation)
	}

	cfg := DefaultConfig()
	if strings.HasSuffix(file, ".json") {
		err = json.Unmarshal(b, cfg)
	} else {
		err = yaml.Unmarshal(b, cfg)
	}
	if err != nil {
		return nil, pkierr.WrapFormat(err, "failed to decode file: "+file)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
