package publish

import "os"

// CredentialSource resolves a secret by name.
type CredentialSource interface {
	Lookup(name string) (string, bool)
}

// EnvSource reads credentials from the process environment.
type EnvSource struct{}

func (EnvSource) Lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// MapSource serves credentials from memory.
type MapSource map[string]string

func (m MapSource) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok && v != ""
}

// Credentials are the resolved secrets of one target.
type Credentials struct {
	Username string
	Secret   string
}

// String never prints the secret.
func (c Credentials) String() string {
	if c.Secret == "" {
		return "Credentials{" + c.Username + "}"
	}
	return "Credentials{" + c.Username + ", ****}"
}
