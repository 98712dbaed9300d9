package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	coreerrors "github.com/coconature/storefront/core/errors"
	"github.com/coconature/storefront/core/httpclient"
)

// Kind 表示后端错误的分类。
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindRateLimited  Kind = "rate_limited"
	KindServer       Kind = "server"
	KindNetwork      Kind = "network"
	KindBusiness     Kind = "business"
	KindDecode       Kind = "decode"
)

// GatewayError 表示统一的后端调用错误。Message 为服务端原文（若有）。
type GatewayError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Raw        error
}

func (e *GatewayError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "":
		return fmt.Sprintf("gateway: [%s] %s", e.Kind, e.Message)
	case e.Raw != nil:
		return fmt.Sprintf("gateway: [%s] %v", e.Kind, e.Raw)
	default:
		return fmt.Sprintf("gateway: [%s]", e.Kind)
	}
}

// Unwrap 允许 errors.Is/As 解构底层错误。
func (e *GatewayError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Raw
}

// Is 让 GatewayError 可以按 core/errors 的错误码匹配。
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*coreerrors.CoreError)
	if !ok || e == nil {
		return false
	}
	return t.Code == e.coreCode()
}

func (e *GatewayError) coreCode() coreerrors.Code {
	switch e.Kind {
	case KindUnauthorized:
		return coreerrors.ErrCodeUnauthenticated
	case KindNotFound:
		return coreerrors.ErrCodeNotFound
	case KindValidation, KindBusiness:
		return coreerrors.ErrCodeInvalidArgument
	case KindNetwork, KindServer, KindRateLimited:
		return coreerrors.ErrCodeUnavailable
	case KindDecode:
		return coreerrors.ErrCodeInvalidState
	}
	return coreerrors.ErrCodeUnknown
}

// KindOf 返回错误分类，非 GatewayError 返回 KindUnknown。
func KindOf(err error) Kind {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}

// IsUnauthorized 判断是否为认证被拒。
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsRetryable 判断是否为可稍后重试的错误（网络、5xx、限流）。
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindServer, KindRateLimited:
		return true
	}
	return false
}

// ServerMessage 返回服务端给出的业务消息，网络类错误返回空串。
func ServerMessage(err error) string {
	var ge *GatewayError
	if !errors.As(err, &ge) {
		return ""
	}
	switch ge.Kind {
	case KindNetwork, KindDecode:
		return ""
	}
	return ge.Message
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status >= http.StatusInternalServerError && status < 600:
		return KindServer
	case status > 0 && status < http.StatusBadRequest:
		return KindBusiness
	}
	return KindUnknown
}

// toGatewayError 将 httpclient 的错误转换为 GatewayError。
func toGatewayError(err error) error {
	if err == nil {
		return nil
	}
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge
	}
	var netErr *httpclient.NetworkError
	if errors.As(err, &netErr) {
		return &GatewayError{Kind: KindNetwork, Raw: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Kind: KindNetwork, Raw: err}
	}
	var decErr *httpclient.DecodeError
	if errors.As(err, &decErr) {
		return &GatewayError{Kind: KindDecode, HTTPStatus: decErr.Status, Raw: err}
	}
	var ec *httpclient.ErrCode
	if errors.As(err, &ec) {
		msg := ec.Message
		if msg == "" && ec.Status > 0 {
			msg = http.StatusText(ec.Status)
		}
		return &GatewayError{Kind: kindFromStatus(ec.Status), Message: msg, HTTPStatus: ec.Status, Raw: err}
	}
	return &GatewayError{Kind: KindUnknown, Raw: err}
}
