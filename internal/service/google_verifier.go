package service

import (
	"fmt"

	googleAuthIDTokenVerifier "github.com/futurenda/google-auth-id-token-verifier"
)

// GoogleIdentity is the verified content of a Google ID token.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// IDTokenVerifier checks an ID token from the sign-in popup.
type IDTokenVerifier interface {
	Verify(idToken string) (*GoogleIdentity, error)
}

// GoogleVerifier validates Google ID tokens against Google's public certs.
type GoogleVerifier struct {
	clientID string
	verifier googleAuthIDTokenVerifier.Verifier
}

// NewGoogleVerifier returns a verifier for tokens issued to clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

func (g *GoogleVerifier) Verify(idToken string) (*GoogleIdentity, error) {
	if g.clientID == "" {
		return nil, fmt.Errorf("google client id not configured")
	}
	if err := g.verifier.VerifyIDToken(idToken, []string{g.clientID}); err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	claims, err := googleAuthIDTokenVerifier.Decode(idToken)
	if err != nil {
		return nil, fmt.Errorf("decode id token: %w", err)
	}
	return identityFromClaims(claims)
}

// identityFromClaims accepts only tokens carrying an email Google has verified.
func identityFromClaims(claims *googleAuthIDTokenVerifier.ClaimSet) (*GoogleIdentity, error) {
	if claims == nil || claims.Email == "" {
		return nil, fmt.Errorf("id token has no email")
	}
	if !claims.EmailVerified {
		return nil, fmt.Errorf("email %s is not verified", claims.Email)
	}
	return &GoogleIdentity{Subject: claims.Sub, Email: claims.Email, EmailVerified: true, Name: claims.Name}, nil
}
