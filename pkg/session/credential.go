package session

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// CredentialFromToken returns the Google ID token carried in the "id_token"
// extra of an OAuth2 code exchange, ready for LoginWithFederatedCredential.
func CredentialFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", fmt.Errorf("%w: no token", ErrInvalidCredential)
	}
	idToken, _ := tok.Extra("id_token").(string)
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return "", fmt.Errorf("%w: token response carries no id_token", ErrInvalidCredential)
	}
	return idToken, nil
}
