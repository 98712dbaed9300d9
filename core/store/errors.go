package store

import (
	"fmt"

	coreerrors "github.com/coconature/storefront/core/errors"
)

var (
	// ErrNotFound 表示键不存在。
	ErrNotFound = coreerrors.New(coreerrors.ErrCodeNotFound, "store: 键不存在")
	// ErrStorageNil 在未注入存储时返回。
	ErrStorageNil = coreerrors.New(coreerrors.ErrCodeInvalidConfig, "store: Storage 未设置")
)

// CorruptError 表示存储中的值无法反序列化。
type CorruptError struct {
	Key string
	Err error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("store: 键 %s 数据损坏: %v", e.Key, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}
