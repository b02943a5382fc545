package memgate

import "fmt"

// Header is one extra header entry configured alongside the tenant
// credentials. Entries are applied in order when the client is built.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Credentials is the tenant configuration required to talk to a memgate
// deployment. It is owned by the host's credential store and read-only to
// the bridge.
type Credentials struct {
	BaseURL       string   `json:"baseUrl"`
	SharedSecret  string   `json:"sharedSecret"`
	OrgID         string   `json:"orgId"`
	AgentID       string   `json:"agentId"`
	DefaultUserID string   `json:"defaultUserId,omitempty"`
	ExtraHeaders  []Header `json:"extraHeaders,omitempty"`
}

// Validate reports the first missing required field.
func (c Credentials) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("credentials: baseUrl is required")
	case c.SharedSecret == "":
		return fmt.Errorf("credentials: sharedSecret is required")
	case c.OrgID == "":
		return fmt.Errorf("credentials: orgId is required")
	case c.AgentID == "":
		return fmt.Errorf("credentials: agentId is required")
	}
	return nil
}
