package storefront

import (
	"context"
	"errors"

	"github.com/coconature/storefront/core/auth"
	coreerrors "github.com/coconature/storefront/core/errors"
	"github.com/coconature/storefront/core/gateway"
)

// Result 是所有面向视图的操作的返回值，错误不会越过协调器。
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(message string) Result {
	return Result{Success: true, Message: message}
}

func failed(message string) Result {
	return Result{Success: false, Message: message}
}

// Level 通知级别。
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier 向用户展示短暂提示，渲染方式由调用方决定。
type Notifier interface {
	Notify(level Level, message string)
}

// Navigator 处理需要重新认证时的跳转。
type Navigator interface {
	RedirectToLogin(reason string)
}

// NotifierFunc 将函数适配为 Notifier。
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

// NavigatorFunc 将函数适配为 Navigator。
type NavigatorFunc func(reason string)

func (f NavigatorFunc) RedirectToLogin(reason string) { f(reason) }

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string) {}

type nopNavigator struct{}

func (nopNavigator) RedirectToLogin(string) {}

// 用户可见的提示文案。
const (
	MsgLoginRequired      = "Please sign in to continue."
	MsgMissingCredentials = "Email and password are required."
	MsgNetwork            = "Unable to reach the server. Please check your connection and try again."
	MsgTimeout            = "The server took too long to respond. Please try again."
	MsgSignedIn           = "Signed in successfully."
	MsgRegistered         = "Your account has been created."
	MsgSignedOut          = "You have been signed out."
	MsgProfileUpdated     = "Your profile has been updated."
	MsgNothingToUpdate    = "There is nothing to update."
	MsgAddedToCart        = "Added to cart."
	MsgCartUpdated        = "Cart updated."
	MsgRemovedFromCart    = "Removed from cart."
	MsgCartCleared        = "Cart cleared."
	MsgCartEmpty          = "Your cart is empty."
	MsgAddedToWishlist    = "Added to wishlist."
	MsgRemovedFromWish    = "Removed from wishlist."
	MsgMovedToCart        = "Moved to cart."
	MsgCatalogUnavailable = "Products could not be refreshed. Showing the last available data."
	MsgProductNotFound    = "Product not found."
	MsgOrderPlaced        = "Your order has been placed."
	MsgOrderCancelled     = "Your order has been cancelled."
	MsgOrderNotCancelable = "This order can no longer be cancelled."
	MsgAddressSaved       = "Address saved."
	MsgAddressDeleted     = "Address deleted."
	MsgDiscountApplied    = "Discount code applied."
	MsgDiscountRequired   = "Please enter a discount code."
	MsgInvalidProduct     = "Invalid product."
	MsgSomethingWrong     = "Something went wrong. Please try again."
)

// messageFor 将错误转换为用户可见文案：服务端业务消息原样透出，传输错误使用通用文案。
func messageFor(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return MsgTimeout
	}
	switch err {
	case auth.ErrMissingCredentials:
		return MsgMissingCredentials
	case auth.ErrEmptyProfilePatch:
		return MsgNothingToUpdate
	}
	if msg := gateway.ServerMessage(err); msg != "" {
		return msg
	}
	switch gateway.KindOf(err) {
	case gateway.KindNetwork:
		return MsgNetwork
	case gateway.KindUnauthorized:
		return auth.DefaultExpiredMessage
	}
	if coreerrors.CodeOf(err) == coreerrors.ErrCodeUnauthenticated {
		return MsgLoginRequired
	}
	if fallback == "" {
		return MsgSomethingWrong
	}
	return fallback
}
