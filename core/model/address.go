package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Address 收货地址。
type Address struct {
	ID        string `json:"id,omitempty"`
	FullName  string `json:"fullName"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	Ward      string `json:"ward,omitempty"`
	District  string `json:"district,omitempty"`
	Province  string `json:"province"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// Line 返回单行地址文本。
func (a Address) Line() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.Ward, a.District, a.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// CheckoutForm 结账表单，持久化在 checkoutAddress 下以便刷新后恢复。
type CheckoutForm struct {
	FullName      string        `json:"fullName"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email,omitempty"`
	Street        string        `json:"street"`
	Ward          string        `json:"ward,omitempty"`
	District      string        `json:"district,omitempty"`
	Province      string        `json:"province"`
	Note          string        `json:"note,omitempty"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

// Address 提取表单中的地址部分。
func (f CheckoutForm) Address() Address {
	return Address{
		FullName: f.FullName,
		Phone:    f.Phone,
		Street:   f.Street,
		Ward:     f.Ward,
		District: f.District,
		Province: f.Province,
	}
}

// Missing 返回缺失的必填字段名。
func (f CheckoutForm) Missing() []string {
	var missing []string
	required := []struct {
		name, value string
	}{
		{"fullName", f.FullName},
		{"phone", f.Phone},
		{"street", f.Street},
		{"province", f.Province},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if !f.PaymentMethod.Valid() {
		missing = append(missing, "paymentMethod")
	}
	return missing
}

// DiscountType 折扣类型。
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Discount 已校验的折扣码。
type Discount struct {
	Code     string          `json:"code"`
	Type     DiscountType    `json:"type"`
	Value    decimal.Decimal `json:"value"`
	Amount   decimal.Decimal `json:"amount"`
	MinOrder decimal.Decimal `json:"minOrder"`
}

// AmountFor 计算对 subtotal 的减免金额，服务端已给出 Amount 时直接采用；结果不超过 subtotal。
func (d Discount) AmountFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(d.MinOrder) {
		return decimal.Zero
	}
	amount := d.Amount
	if !amount.IsPositive() {
		switch d.Type {
		case DiscountPercent:
			amount = subtotal.Mul(d.Value).Div(decimal.NewFromInt(100))
		case DiscountFixed:
			amount = d.Value
		}
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(subtotal) {
		return subtotal
	}
	return amount
}
