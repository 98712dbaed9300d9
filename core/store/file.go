package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/coconature/storefront/core/crypto"
)

// File 将全部键值以单个 JSON 文件保存在磁盘上，每次写入整体替换（临时文件 + rename）。
// 配置密钥后，值以 AES-GCM 加密保存。
type File struct {
	mu   sync.Mutex
	path string
	key  []byte
	data map[string]string
}

// FileOption 自定义 File。
type FileOption func(*File)

// WithSecret 启用值加密。
func WithSecret(secret string) FileOption {
	return func(f *File) {
		if secret != "" {
			f.key = crypto.DeriveKey(secret)
		}
	}
}

// OpenFile 打开（或创建）path 处的存储文件。
func OpenFile(path string, opts ...FileOption) (*File, error) {
	f := &File{path: path, data: make(map[string]string)}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, err
	}
	if len(raw) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(raw, &f.data); err != nil {
		return nil, &CorruptError{Key: path, Err: err}
	}
	return f, nil
}

func (f *File) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", false, nil
	}
	if f.key == nil {
		return v, true, nil
	}
	plain, err := crypto.OpenString(f.key, v)
	if err != nil {
		return "", false, &CorruptError{Key: key, Err: err}
	}
	return plain, true, nil
}

func (f *File) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := value
	if f.key != nil {
		sealed, err := crypto.SealString(f.key, value)
		if err != nil {
			return err
		}
		stored = sealed
	}
	prev, had := f.data[key]
	f.data[key] = stored
	if err := f.flush(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return err
	}
	return nil
}

func (f *File) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.flush(); err != nil {
		f.data[key] = prev
		return err
	}
	return nil
}

// Path 返回存储文件路径。
func (f *File) Path() string { return f.path }

func (f *File) flush() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".storage-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path)
}
