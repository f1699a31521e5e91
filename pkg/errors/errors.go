// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeCatalogLoadReadFailure      Code = "catalog.load.read.failure"
	CodeCatalogParseInvalidFormat   Code = "catalog.parse.invalid_format"
	CodeCatalogValidateInvalidValue Code = "catalog.validate.invalid_value"
	CodeCatalogLookupUnknownName    Code = "catalog.lookup.unknown_name"

	CodeProbeTimeout         Code = "probe.request.timeout"
	CodeProbeAuthFailure     Code = "probe.auth.failure"
	CodeProbeUpstreamFailure Code = "probe.upstream.failure"
	CodeProbeModelMissing    Code = "probe.model.missing"

	CodeBreakerInvalidConfig   Code = "breaker.config.invalid_value"
	CodeBreakerUnknownProvider Code = "breaker.provider.unknown_name"

	CodeResolveChainExhausted  Code = "resolve.chain.exhausted"
	CodeResolveRetriesExceeded Code = "resolve.retries.exceeded"
	CodeResolveInvalidRequest  Code = "resolve.request.invalid_input"

	CodeProviderNotFound        Code = "provider.registry.not_found"
	CodeProviderRequestInvalid  Code = "provider.request.invalid_input"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderModelUnknown    Code = "provider.model.not_found"

	CodeOpenFallLogFailure    Code = "openfall.log.failure"
	CodeOpenFallNotifyFailure Code = "openfall.notify.failure"
	CodeOpenFallAliasFatal    Code = "openfall.alias.exhausted"

	CodeSecretInvalidInput   Code = "secret.uri.invalid_input"
	CodeSecretNotFound       Code = "secret.key.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid_input"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLIGatewayNotRunning Code = "cli.gateway.not_running"
	CodeCLIRequestFailure    Code = "cli.request.failure"
	CodeCLIInputInvalid      Code = "cli.input.invalid_input"
	CodeCLISetupFailure      Code = "cli.setup.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func FieldRole(value string) Attr {
	return Field("role", value)
}

func FieldAlias(value string) Attr {
	return Field("alias", value)
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
		code = CodeServerInternalFailure
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
	return r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUnknownName(err error) bool {
	return reason(CodeOf(err)) == "unknown_name"
}

func IsExhausted(err error) bool {
	return reason(CodeOf(err)) == "exhausted"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

// IsProviderAttributable reports whether an error should count toward the
// failing provider's circuit breaker. Static validation problems (unknown
// model, malformed request) are configuration defects and never open a
// breaker.
func IsProviderAttributable(err error) bool {
	if err == nil {
		return false
	}
	switch CodeOf(err) {
	case CodeProviderModelUnknown, CodeProviderRequestInvalid, CodeResolveInvalidRequest:
		return false
	case "":
		// Untyped errors from provider SDKs are transport-level failures.
		return true
	default:
		r := reason(CodeOf(err))
		return r == "failure" || r == "timeout"
	}
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err) || IsUnknownName(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsExhausted(err):
		return http.StatusServiceUnavailable
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
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
