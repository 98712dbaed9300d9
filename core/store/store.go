// Package store 抽象浏览器 localStorage 式的持久化键值存储，并集中声明键名与登出清理策略。
package store

import (
	"encoding/json"
	"errors"
)

// Storage 是最小化的字符串键值存储。Get 在键不存在时返回 ok=false 且 err=nil。
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// 持久化键名。
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyCart            = "coconature_cart"
	KeyWishlist        = "coconature_wishlist"
	KeyCheckoutAddress = "checkoutAddress"
	KeyOrderID         = "orderId"
	KeyAdminToken      = "adminToken"
	KeyAdminUser       = "adminUser"
)

// SessionKeys 列出登出或会话失效时必须清除的键。orderId 保留，用于订单确认页。
var SessionKeys = []string{
	KeyToken,
	KeyUser,
	KeyAdminToken,
	KeyAdminUser,
	KeyCart,
	KeyWishlist,
	KeyCheckoutAddress,
}

// CredentialKeys 仅包含凭证相关的键，令牌失效时清除。
var CredentialKeys = []string{
	KeyToken,
	KeyUser,
	KeyAdminToken,
	KeyAdminUser,
}

// RemoveAll 依次删除 keys，返回合并后的错误。
func RemoveAll(s Storage, keys ...string) error {
	if s == nil {
		return ErrStorageNil
	}
	var errs []error
	for _, k := range keys {
		if err := s.Remove(k); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ClearSession 按 SessionKeys 策略清理存储。
func ClearSession(s Storage) error {
	return RemoveAll(s, SessionKeys...)
}

// ClearCredentials 按 CredentialKeys 策略清理存储。
func ClearCredentials(s Storage) error {
	return RemoveAll(s, CredentialKeys...)
}

// Record 将一个键视为 JSON 序列化的 T，提供 Save/Load/Clear。
type Record[T any] struct {
	storage Storage
	key     string
}

// NewRecord 创建绑定到 key 的类型化记录。
func NewRecord[T any](s Storage, key string) Record[T] {
	return Record[T]{storage: s, key: key}
}

// Key 返回绑定的键名。
func (r Record[T]) Key() string { return r.key }

// Save 序列化并写入。
func (r Record[T]) Save(v T) error {
	if r.storage == nil {
		return ErrStorageNil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.storage.Set(r.key, string(raw))
}

// Load 读取并反序列化，键不存在时返回 ErrNotFound。
func (r Record[T]) Load() (T, error) {
	var zero T
	if r.storage == nil {
		return zero, ErrStorageNil
	}
	raw, ok, err := r.storage.Get(r.key)
	if err != nil {
		return zero, err
	}
	if !ok || raw == "" {
		return zero, ErrNotFound
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, &CorruptError{Key: r.key, Err: err}
	}
	return v, nil
}

// Clear 删除该键。
func (r Record[T]) Clear() error {
	if r.storage == nil {
		return ErrStorageNil
	}
	return r.storage.Remove(r.key)
}
