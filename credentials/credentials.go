// Package credentials resolves Cloudmere API credentials from the
// environment or from a profile file, by default ~/.cloudmere/config.yaml:
//
//	profiles:
//	  default:
//	    access_key_id: CMAK...
//	    secret_access_key: ...
//	    region: eu-central-1
//	    endpoint: ""
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrProfileNotFound    = errors.New("credentials profile not found")
	ErrMissingCredentials = errors.New("missing credentials")
)

const (
	envAccessKeyID     = "CLOUDMERE_ACCESS_KEY_ID"
	envSecretAccessKey = "CLOUDMERE_SECRET_ACCESS_KEY"
	envRegion          = "CLOUDMERE_REGION"
)

type Credentials struct {
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
}

type profileFile struct {
	Profiles map[string]Credentials `koanf:"profiles"`
}

// DefaultPath returns the conventional profile file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cloudmere", "config.yaml")
}

// FromEnv reads credentials from the CLOUDMERE_* environment variables.
// The second return is false when the key pair is not fully present.
func FromEnv() (*Credentials, bool) {
	accessKey, ok := os.LookupEnv(envAccessKeyID)
	if !ok {
		return nil, false
	}
	secret, ok := os.LookupEnv(envSecretAccessKey)
	if !ok {
		return nil, false
	}
	return &Credentials{
		AccessKeyID:     accessKey,
		SecretAccessKey: secret,
		Region:          os.Getenv(envRegion),
	}, true
}

// LoadProfile reads the named profile from the YAML file at path. An empty
// name selects "default".
func LoadProfile(path, name string) (*Credentials, error) {
	if name == "" {
		name = "default"
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("credentials: loading %s: %w", path, err)
	}

	var cfg profileFile
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("credentials: parsing %s: %w", path, err)
	}

	creds, ok := cfg.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrProfileNotFound, name, path)
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, fmt.Errorf("%w: profile %q", ErrMissingCredentials, name)
	}
	return &creds, nil
}

// Resolve prefers the environment and falls back to the named file profile.
func Resolve(path, name string) (*Credentials, error) {
	if creds, ok := FromEnv(); ok {
		return creds, nil
	}
	if path == "" {
		path = DefaultPath()
	}
	return LoadProfile(path, name)
}
