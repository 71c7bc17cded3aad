// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeEmbedRequestInvalid   Code = "embed.request.invalid"
	CodeEmbedUpstreamFailure  Code = "embed.upstream.failure"
	CodeEmbedResponseInvalid  Code = "embed.response.invalid"
	CodeEmbedProviderNotFound Code = "embed.provider.not_found"
	CodeEmbedKeyInvalid       Code = "embed.key.invalid"
	CodeEmbedKeyCheckFailed   Code = "embed.key.check_failed"

	CodeIndexBackendUnsupported Code = "index.backend.unsupported"
	CodeIndexDimensionMismatch  Code = "index.add.dimension_mismatch"
	CodeIndexSearchFailure      Code = "index.search.failure"
	CodeIndexDatabaseFailure    Code = "index.database.failure"

	CodeCacheDiskReadFailure  Code = "cache.disk.read.failure"
	CodeCacheDiskWriteFailure Code = "cache.disk.write.failure"

	CodeCorpusWalkFailure   Code = "corpus.walk.failure"
	CodeCorpusReadFailure   Code = "corpus.read.failure"
	CodeCorpusFileNotFound  Code = "corpus.file.not_found"
	CodeCorpusFileTooLarge  Code = "corpus.file.too_large"
	CodeCorpusWatchFailure  Code = "corpus.watch.failure"

	CodeBatchChunkTimeout Code = "batch.chunk.timeout"
	CodeBatchItemPanic    Code = "batch.item.panic"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigAlreadyExists        Code = "config.already_exists"

	CodeSecretNotFound       Code = "secret.keyring.not_found"
	CodeSecretStoreFailure   Code = "secret.keyring.store.failure"
	CodeSecretRefInvalid     Code = "secret.ref.invalid"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"

	CodeInternalFailure Code = "internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// FieldValue creates a structured error field.
func FieldValue(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// Field is kept as the primary helper for terse callsites.
func Field(key string, value any) Attr {
	return FieldValue(key, value)
}

func FieldPath(value string) Attr {
	return Field("path", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldBackend(value string) Attr {
	return Field("backend", value)
}

func FieldCacheKey(value string) Attr {
	return Field("cache_key", value)
}

func FieldBatchID(value string) Attr {
	return Field("batch_id", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsTooLarge(err error) bool {
	return reason(CodeOf(err)) == "too_large"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func Join(errs ...error) error {
	return oops.Code(CodeInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
