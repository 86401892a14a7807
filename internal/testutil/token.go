package testutil

// DefaultSessionToken is used when a scenario does not name one.
const DefaultSessionToken = "test-session-default"

// FixedTokenGenerator returns the same session token every time, so batch
// logs written by tests are byte-identical across runs.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator for token.
// If token is empty, Generate() returns DefaultSessionToken.
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = DefaultSessionToken
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed token. Implements session.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
