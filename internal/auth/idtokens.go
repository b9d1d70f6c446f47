package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

const appleIssuer = "https://appleid.apple.com"

// Google tokens carry the issuer with or without the scheme.
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// ExternalTokenClaims is the subset of an ID token the service acts on.
type ExternalTokenClaims struct {
	Issuer  string
	Subject string
	Email   string
}

func VerifyGoogleIDToken(ctx context.Context, tokenString, audience string) (*ExternalTokenClaims, error) {
	if err := requireTokenArgs(tokenString, audience, "google client id"); err != nil {
		return nil, err
	}

	payload, err := idtoken.Validate(ctx, tokenString, audience)
	if err != nil {
		return nil, err
	}
	if !googleIssuers[payload.Issuer] {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	email, _ := payload.Claims["email"].(string)
	return &ExternalTokenClaims{
		Issuer:  payload.Issuer,
		Subject: payload.Subject,
		Email:   normalizeEmail(email),
	}, nil
}

// VerifyAppleIDToken takes no context: the underlying validator fetches
// Apple's keys with its own client.
func VerifyAppleIDToken(_ context.Context, tokenString, audience string) (*ExternalTokenClaims, error) {
	if err := requireTokenArgs(tokenString, audience, "apple service id"); err != nil {
		return nil, err
	}

	tok, err := validator.NewClient().VerifyIdToken(audience, tokenString)
	if err != nil {
		return nil, err
	}
	if tok.Iss != appleIssuer {
		return nil, fmt.Errorf("unexpected issuer: %s", tok.Iss)
	}

	return &ExternalTokenClaims{
		Issuer:  tok.Iss,
		Subject: tok.Sub,
		Email:   normalizeEmail(tok.Email),
	}, nil
}

func requireTokenArgs(tokenString, audience, audienceName string) error {
	if strings.TrimSpace(tokenString) == "" {
		return errors.New("missing id token")
	}
	if strings.TrimSpace(audience) == "" {
		return errors.New("missing " + audienceName)
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
