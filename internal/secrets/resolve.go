// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package secrets

import (
	"strings"

	"github.com/spf13/viper"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// keyringScheme prefixes config values that refer to OS keyring entries.
const keyringScheme = "keyring://"

// IsKeyringRef reports whether value is a keyring://service/key reference.
func IsKeyringRef(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringRef splits a keyring://service/key reference into service and
// key. The key may itself contain slashes.
func ParseKeyringRef(ref string) (service, key string, err error) {
	if !IsKeyringRef(ref) {
		return "", "", semerr.Errorf(semerr.CodeSecretRefInvalid, "not a keyring reference: %q", ref)
	}

	service, key, ok := strings.Cut(strings.TrimPrefix(ref, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", semerr.Errorf(semerr.CodeSecretRefInvalid,
			"invalid keyring reference %q: expected keyring://service/key", ref)
	}
	return service, key, nil
}

// Resolve replaces a keyring reference with the secret it names. Values
// that are not keyring references pass through unchanged.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringRef(value) {
		return value, nil
	}

	service, key, err := ParseKeyringRef(value)
	if err != nil {
		return "", err
	}

	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", semerr.Wrapf(err, semerr.CodeSecretResolveFailure, "resolving keyring reference %q", value)
	}
	return secret, nil
}

// ResolveViperSecrets rewrites every keyring:// string value in v with the
// secret it refers to. This is a post-load step, not a viper decoder hook.
// A reference that cannot be resolved fails the load: an API key still
// reading "keyring://..." downstream would be worse than the error.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringRef(val) {
			continue
		}

		resolved, err := Resolve(store, val)
		if err != nil {
			errs = append(errs, semerr.Wrapf(err, semerr.CodeSecretResolveFailure, "config key %s", key))
			continue
		}
		v.Set(key, resolved)
	}

	if len(errs) == 0 {
		return nil
	}
	return semerr.Join(errs...)
}
