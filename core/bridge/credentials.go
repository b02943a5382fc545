package bridge

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/memgate/membridge/pkg/memgate"
)

// CredentialSource resolves the tenant credentials attached to a run.
// Resolution happens once, at initialization; sources are simple scoped
// lookups and must not retry on their own.
type CredentialSource interface {
	Resolve(ctx context.Context, nodeID string) (memgate.Credentials, error)
}

// StaticCredentials is a CredentialSource holding one fixed credentials
// record, the common case when the host hands the record over directly.
type StaticCredentials memgate.Credentials

func (s StaticCredentials) Resolve(ctx context.Context, nodeID string) (memgate.Credentials, error) {
	creds := memgate.Credentials(s)
	if err := creds.Validate(); err != nil {
		return memgate.Credentials{}, &ConfigError{Reason: err.Error()}
	}
	return creds, nil
}

// EnvCredentials resolves credentials from MEMBRIDGE_* environment
// variables, optionally loading a dotenv file first. Recognized variables:
// MEMBRIDGE_BASE_URL, MEMBRIDGE_SHARED_SECRET, MEMBRIDGE_ORG_ID,
// MEMBRIDGE_AGENT_ID, MEMBRIDGE_DEFAULT_USER_ID.
type EnvCredentials struct {
	// DotenvFile is loaded into the process environment when set and the
	// file exists. Missing files are not an error.
	DotenvFile string
}

func (e EnvCredentials) Resolve(ctx context.Context, nodeID string) (memgate.Credentials, error) {
	if e.DotenvFile != "" {
		if _, err := os.Stat(e.DotenvFile); err == nil {
			if err := godotenv.Load(e.DotenvFile); err != nil {
				return memgate.Credentials{}, &ConfigError{Reason: "loading " + e.DotenvFile + ": " + err.Error()}
			}
		}
	}

	creds := memgate.Credentials{
		BaseURL:       os.Getenv("MEMBRIDGE_BASE_URL"),
		SharedSecret:  os.Getenv("MEMBRIDGE_SHARED_SECRET"),
		OrgID:         os.Getenv("MEMBRIDGE_ORG_ID"),
		AgentID:       os.Getenv("MEMBRIDGE_AGENT_ID"),
		DefaultUserID: os.Getenv("MEMBRIDGE_DEFAULT_USER_ID"),
	}
	if err := creds.Validate(); err != nil {
		return memgate.Credentials{}, &ConfigError{Reason: err.Error()}
	}
	return creds, nil
}
