package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态。
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Cancellable 仅待确认与已确认的订单允许取消。
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// PaymentMethod 支付方式。VietQR 仅记录选择，不涉及支付网关。
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentVietQR PaymentMethod = "vietqr"
)

// Valid 判断是否为支持的支付方式。
func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentVietQR
}

// OrderLine 订单商品行。
type OrderLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// Order 订单。
type Order struct {
	ID            string          `json:"id"`
	Code          string          `json:"code,omitempty"`
	Status        OrderStatus     `json:"status"`
	Items         []OrderLine     `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Address       Address         `json:"address"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Cancellable 判断订单是否可取消。
func (o Order) Cancellable() bool {
	return o.Status.Cancellable()
}
