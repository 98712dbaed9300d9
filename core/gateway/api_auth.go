package gateway

import (
	"context"
	"net/http"

	"github.com/coconature/storefront/core/model"
)

// AuthGrant 登录、注册或刷新后得到的凭证。User 可能为 nil（刷新接口只返回令牌时）。
type AuthGrant struct {
	Token string
	User  *model.User
}

// Login 邮箱密码登录。
func (c *Client) Login(ctx context.Context, creds model.Credentials) (*AuthGrant, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Register 注册并登录。
func (c *Client) Register(ctx context.Context, reg model.Registration) (*AuthGrant, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

// RefreshToken 用当前令牌（或 cookie）换取新令牌。
func (c *Client) RefreshToken(ctx context.Context) (*AuthGrant, error) {
	return c.authenticate(ctx, "/auth/refresh-token", struct{}{})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*AuthGrant, error) {
	var rsp AuthResponse
	if err := c.send(ctx, http.MethodPost, path, body, &rsp); err != nil {
		return nil, err
	}
	token, user := rsp.Credentials()
	if token == "" {
		return nil, &GatewayError{Kind: KindDecode, Message: "响应缺少 token"}
	}
	return &AuthGrant{Token: token, User: user}, nil
}

// Logout 注销当前会话。
func (c *Client) Logout(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// profileResponse 兼容 {user}、{data} 与直接返回用户文档三种形态。
type profileResponse struct {
	Envelope
	User *UserInfo `json:"user,omitempty"`
	Data *UserInfo `json:"data,omitempty"`
	UserInfo
}

func (r *profileResponse) user() (*model.User, bool) {
	for _, info := range []*UserInfo{r.User, r.Data} {
		if info != nil {
			u := info.ToModel()
			return &u, true
		}
	}
	if r.UserInfo.ID != "" || r.UserInfo.AltID != "" {
		u := r.UserInfo.ToModel()
		return &u, true
	}
	return nil, false
}

// Profile 获取当前用户资料，兼作令牌有效性确认。
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var rsp profileResponse
	if err := c.get(ctx, "/auth/profile", nil, &rsp); err != nil {
		return nil, err
	}
	user, ok := rsp.user()
	if !ok {
		return nil, &GatewayError{Kind: KindDecode, Message: "响应缺少用户资料"}
	}
	return user, nil
}

// UpdateProfile 更新资料并返回最新用户。
func (c *Client) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.User, error) {
	var rsp profileResponse
	if err := c.send(ctx, http.MethodPut, "/auth/profile", patch, &rsp); err != nil {
		return nil, err
	}
	user, ok := rsp.user()
	if !ok {
		return nil, &GatewayError{Kind: KindDecode, Message: "响应缺少用户资料"}
	}
	return user, nil
}
