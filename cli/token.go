package main

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringService is the keyring entry the access tokens live under, keyed by
// server URL.
const keyringService = "egw-chat"

func saveToken(server, token string) error {
	if err := keyring.Set(keyringService, server, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func loadToken(server string) (string, error) {
	token, err := keyring.Get(keyringService, server)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("not logged in to %s, run egw-chat login first", server)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return token, nil
}

func deleteToken(server string) error {
	err := keyring.Delete(keyringService, server)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
