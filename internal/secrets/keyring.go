// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// keysIndexSuffix forms the keyring entry tracking stored key names per
// service. go-keyring cannot enumerate keys, so List works off this JSON
// index.
const keysIndexSuffix = "::keys-index"

// KeyringStore implements Store on the OS keyring via zalando/go-keyring:
// Keychain on macOS, secret-service (D-Bus) on Linux, Credential Manager
// on Windows.
type KeyringStore struct{}

// Compile-time interface check.
var _ Store = (*KeyringStore)(nil)

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func validateRef(op, service, key string) error {
	if service == "" {
		return semerr.Errorf(semerr.CodeSecretRefInvalid, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return semerr.Errorf(semerr.CodeSecretRefInvalid, "secret %s: key must not be empty", op)
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := validateRef("store", service, key); err != nil {
		return err
	}

	if err := keyring.Set(service, key, value); err != nil {
		return semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	return s.addToIndex(service, key)
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := validateRef("retrieve", service, key); err != nil {
		return "", err
	}

	val, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", semerr.Errorf(semerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return "", semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := validateRef("delete", service, key); err != nil {
		return err
	}

	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return semerr.Errorf(semerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
		}
		return semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}

	return s.removeFromIndex(service, key)
}

func (s *KeyringStore) List(service string) ([]string, error) {
	return s.loadIndex(service)
}

// loadIndex reads the JSON key index for a service. A missing index means
// no keys were ever stored.
func (s *KeyringStore) loadIndex(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+keysIndexSuffix)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "loading key index for service %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "decoding key index for service %s", service)
	}
	return keys, nil
}

// saveIndex writes the key index, removing the entry when it empties.
func (s *KeyringStore) saveIndex(service string, keys []string) error {
	indexKey := service + keysIndexSuffix

	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("cleaning up empty key index failed", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "encoding key index for service %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return semerr.Wrapf(err, semerr.CodeSecretStoreFailure, "saving key index for service %s", service)
	}
	return nil
}

func (s *KeyringStore) addToIndex(service, key string) error {
	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) removeFromIndex(service, key string) error {
	keys, err := s.loadIndex(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}
