package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	authsvc "github.com/Temutjin2k/ride-lifecycle/internal/service/auth"
)

// Verifier checks Firebase ID tokens. The uid is the opaque user id.
type Verifier struct {
	client *auth.Client
}

func NewVerifier(client *auth.Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenExpired(err) {
			return "", authsvc.ErrExpToken
		}
		return "", fmt.Errorf("%w: %v", authsvc.ErrInvalidToken, err)
	}
	if t.UID == "" {
		return "", authsvc.ErrInvalidToken
	}
	return t.UID, nil
}
