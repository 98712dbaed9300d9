package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/coconature/storefront/core/model"
)

// OrderItemRequest 下单商品行。
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderRequest 下单参数。
type OrderRequest struct {
	Items         []OrderItemRequest  `json:"items"`
	AddressID     string              `json:"shippingAddress"`
	PaymentMethod model.PaymentMethod `json:"paymentMethod"`
	Note          string              `json:"note,omitempty"`
	DiscountCode  string              `json:"discountCode,omitempty"`
}

// CreateOrder 创建订单。
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*model.Order, error) {
	return c.order(ctx, http.MethodPost, "/orders", req)
}

// Orders 获取当前用户订单列表。
func (c *Client) Orders(ctx context.Context) ([]model.Order, error) {
	var rsp ListResponse[OrderInfo]
	if err := c.get(ctx, "/orders", nil, &rsp); err != nil {
		return nil, err
	}
	raw := rsp.Values()
	out := make([]model.Order, 0, len(raw))
	for _, o := range raw {
		out = append(out, o.ToModel())
	}
	return out, nil
}

// Order 获取订单详情。
func (c *Client) Order(ctx context.Context, id string) (*model.Order, error) {
	return c.order(ctx, http.MethodGet, "/orders/"+escape(id), nil)
}

// CancelOrder 取消订单。
func (c *Client) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	return c.order(ctx, http.MethodPut, "/orders/"+escape(id)+"/cancel", nil)
}

func (c *Client) order(ctx context.Context, method, path string, body any) (*model.Order, error) {
	var rsp ItemResponse[OrderInfo]
	if err := c.call(ctx, method, path, nil, body, &rsp); err != nil {
		return nil, err
	}
	info, ok := rsp.Value()
	if !ok {
		return nil, &GatewayError{Kind: KindDecode, Message: "响应缺少订单"}
	}
	o := info.ToModel()
	return &o, nil
}

type orderStatusResponse struct {
	Envelope
	Status string           `json:"status,omitempty"`
	Data   *OrderStatusInfo `json:"data,omitempty"`
}

// OrderStatus 查询订单状态。
func (c *Client) OrderStatus(ctx context.Context, id string) (model.OrderStatus, error) {
	var rsp orderStatusResponse
	if err := c.get(ctx, "/orders/"+escape(id)+"/status", nil, &rsp); err != nil {
		return "", err
	}
	status := rsp.Status
	if status == "" && rsp.Data != nil {
		status = rsp.Data.Status
	}
	if status == "" {
		return "", &GatewayError{Kind: KindDecode, Message: "响应缺少订单状态"}
	}
	return model.OrderStatus(strings.ToLower(status)), nil
}

// Addresses 获取地址簿。
func (c *Client) Addresses(ctx context.Context) ([]model.Address, error) {
	var rsp ListResponse[AddressInfo]
	if err := c.get(ctx, "/addresses", nil, &rsp); err != nil {
		return nil, err
	}
	raw := rsp.Values()
	out := make([]model.Address, 0, len(raw))
	for _, a := range raw {
		out = append(out, a.ToModel())
	}
	return out, nil
}

// CreateAddress 新增地址。
func (c *Client) CreateAddress(ctx context.Context, addr model.Address) (*model.Address, error) {
	return c.address(ctx, http.MethodPost, "/addresses", addr)
}

// UpdateAddress 修改地址。
func (c *Client) UpdateAddress(ctx context.Context, addr model.Address) (*model.Address, error) {
	return c.address(ctx, http.MethodPut, "/addresses/"+escape(addr.ID), addr)
}

// FindOrCreateAddress 按内容查找地址，不存在时创建。
func (c *Client) FindOrCreateAddress(ctx context.Context, addr model.Address) (*model.Address, error) {
	return c.address(ctx, http.MethodPost, "/addresses/find-or-create", addr)
}

// DeleteAddress 删除地址。
func (c *Client) DeleteAddress(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/addresses/"+escape(id), nil, nil)
}

func (c *Client) address(ctx context.Context, method, path string, body any) (*model.Address, error) {
	var rsp ItemResponse[AddressInfo]
	if err := c.send(ctx, method, path, body, &rsp); err != nil {
		return nil, err
	}
	info, ok := rsp.Value()
	if !ok {
		return nil, &GatewayError{Kind: KindDecode, Message: "响应缺少地址"}
	}
	a := info.ToModel()
	return &a, nil
}

type discountRequest struct {
	Code       string          `json:"code"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
	OrderID    string          `json:"orderId,omitempty"`
}

// ValidateDiscount 校验折扣码对当前金额是否可用。
func (c *Client) ValidateDiscount(ctx context.Context, code string, subtotal decimal.Decimal) (*model.Discount, error) {
	return c.discount(ctx, "/discounts/validate", discountRequest{Code: code, OrderTotal: subtotal})
}

// ApplyDiscount 将折扣码应用到订单。
func (c *Client) ApplyDiscount(ctx context.Context, code, orderID string, subtotal decimal.Decimal) (*model.Discount, error) {
	return c.discount(ctx, "/discounts/apply", discountRequest{Code: code, OrderTotal: subtotal, OrderID: orderID})
}

func (c *Client) discount(ctx context.Context, path string, body discountRequest) (*model.Discount, error) {
	var rsp ItemResponse[DiscountInfo]
	if err := c.send(ctx, http.MethodPost, path, body, &rsp); err != nil {
		return nil, err
	}
	info, _ := rsp.Value()
	if info.Code == "" {
		info.Code = body.Code
	}
	d := info.ToModel()
	return &d, nil
}
