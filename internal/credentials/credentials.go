package credentials

import (
	"context"
	"os"
)

// Provider exposes the current bearer credential for outgoing requests.
// An empty string means "no credential"; requests then go out
// unauthenticated and the server's rejection is handled as an ordinary
// failure by the caller.
type Provider interface {
	Credential(ctx context.Context) (string, error)
}

// Static is a fixed credential, mainly for tests and local development.
type Static string

func (s Static) Credential(_ context.Context) (string, error) {
	return string(s), nil
}

// Env reads the credential from an environment variable on every call, so
// a token rotated by the login flow is picked up without a restart.
type Env struct {
	Key string
}

func (e Env) Credential(_ context.Context) (string, error) {
	key := e.Key
	if key == "" {
		key = "SESSION_TOKEN"
	}
	return os.Getenv(key), nil
}
