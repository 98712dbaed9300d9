package model

import "strings"

// 角色。
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User 描述登录用户资料。
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
	AddressID string `json:"addressId,omitempty"`
}

// IsAdmin 判断是否为管理员账号。
func (u *User) IsAdmin() bool {
	return u != nil && strings.EqualFold(u.Role, RoleAdmin)
}

// Clone 返回浅拷贝。
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}

// ProfilePatch 为资料更新的可选字段，nil 表示不修改。
type ProfilePatch struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	AddressID *string `json:"addressId,omitempty"`
}

// Empty 判断补丁是否不含任何字段。
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.AddressID == nil
}

// Credentials 表示登录凭证。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration 表示注册资料。
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}
