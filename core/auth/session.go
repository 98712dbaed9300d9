package auth

import (
	"time"

	"github.com/coconature/storefront/core/model"
)

// State 描述会话所处阶段。
type State string

const (
	// StateLoading 启动后、确认存储中的令牌之前。唯一的初始状态。
	StateLoading State = "loading"
	// StateAuthenticated 持有令牌与用户资料。
	StateAuthenticated State = "authenticated"
	// StateExpired 令牌被后端拒绝，等待用户重新认证。
	StateExpired State = "expired"
	// StateAnonymous 未登录。
	StateAnonymous State = "anonymous"
)

// Session 记录当前的会话凭证。
type Session struct {
	Token     string      `json:"token"`
	User      *model.User `json:"user,omitempty"`
	ExpiresAt time.Time   `json:"expiresAt,omitempty"`
}

// Expired 判断令牌是否已过期，未知过期时间视为未过期。
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Clone 返回会话的深拷贝，避免直接暴露内部指针。
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.User = s.User.Clone()
	return &cp
}
