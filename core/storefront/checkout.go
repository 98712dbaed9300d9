package storefront

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

// SaveCheckoutForm 持久化结账表单草稿。
func (c *Coordinator) SaveCheckoutForm(form model.CheckoutForm) error {
	return c.formRec.Save(form)
}

// CheckoutForm 读取已保存的结账表单。
func (c *Coordinator) CheckoutForm() (model.CheckoutForm, bool) {
	form, err := c.formRec.Load()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("stored checkout form unreadable", zap.Error(err))
		}
		return model.CheckoutForm{}, false
	}
	return form, true
}

// PlaceOrder 下单：校验表单与购物车，查找或创建收货地址后创建订单。
// 成功后记录 orderId 并清空购物车。VietQR 只记录支付方式。
func (c *Coordinator) PlaceOrder(ctx context.Context, form model.CheckoutForm, discountCode string) (*model.Order, Result) {
	if !c.guard("checkout") {
		return nil, failed(MsgLoginRequired)
	}
	cart := c.Cart()
	if len(cart) == 0 {
		return nil, failed(MsgCartEmpty)
	}
	if missing := form.Missing(); len(missing) > 0 {
		return nil, failed("Please complete the following fields: " + strings.Join(missing, ", ") + ".")
	}
	if err := c.SaveCheckoutForm(form); err != nil {
		c.logger.Warn("persist checkout form failed", zap.Error(err))
	}

	addr, err := c.gw.FindOrCreateAddress(ctx, form.Address())
	if err != nil {
		return nil, c.fail("resolve address", err, "")
	}
	req := gateway.OrderRequest{
		Items:         make([]gateway.OrderItemRequest, 0, len(cart)),
		AddressID:     addr.ID,
		PaymentMethod: form.PaymentMethod,
		Note:          strings.TrimSpace(form.Note),
		DiscountCode:  strings.ToUpper(strings.TrimSpace(discountCode)),
	}
	for _, line := range cart {
		req.Items = append(req.Items, gateway.OrderItemRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	order, err := c.gw.CreateOrder(ctx, req)
	if err != nil {
		return nil, c.fail("place order", err, "")
	}

	if err := c.storage.Set(store.KeyOrderID, order.ID); err != nil {
		c.logger.Warn("persist order id failed", zap.Error(err))
	}
	c.mu.Lock()
	c.cart = model.Cart{}
	c.mu.Unlock()
	c.persistCart(model.Cart{})
	c.countMutation("checkout", "success")
	c.logger.Info("order placed", zap.String("order", order.ID), zap.String("payment", string(order.PaymentMethod)))
	c.notifier.Notify(LevelSuccess, MsgOrderPlaced)
	return order, ok(MsgOrderPlaced)
}

// LastOrderID 返回最近一次下单的订单 ID，登出后仍保留。
func (c *Coordinator) LastOrderID() string {
	id, _, err := c.storage.Get(store.KeyOrderID)
	if err != nil {
		c.logger.Warn("read order id failed", zap.Error(err))
	}
	return id
}

// Orders 获取订单列表。
func (c *Coordinator) Orders(ctx context.Context) ([]model.Order, Result) {
	if !c.guard("orders") {
		return nil, failed(MsgLoginRequired)
	}
	orders, err := c.gw.Orders(ctx)
	if err != nil {
		return nil, c.fail("list orders", err, "")
	}
	return orders, ok("")
}

// Order 获取订单详情。
func (c *Coordinator) Order(ctx context.Context, id string) (*model.Order, Result) {
	if !c.guard("order") {
		return nil, failed(MsgLoginRequired)
	}
	order, err := c.gw.Order(ctx, id)
	if err != nil {
		return nil, c.fail("get order", err, "")
	}
	return order, ok("")
}

// CancelOrder 取消订单，仅待确认与已确认的订单可被服务端接受。
func (c *Coordinator) CancelOrder(ctx context.Context, id string) (*model.Order, Result) {
	if !c.guard("cancel order") {
		return nil, failed(MsgLoginRequired)
	}
	order, err := c.gw.CancelOrder(ctx, id)
	if err != nil {
		return nil, c.fail("cancel order", err, MsgOrderNotCancelable)
	}
	c.notifier.Notify(LevelSuccess, MsgOrderCancelled)
	return order, ok(MsgOrderCancelled)
}

// OrderStatus 查询订单状态。
func (c *Coordinator) OrderStatus(ctx context.Context, id string) (model.OrderStatus, Result) {
	if !c.guard("order status") {
		return "", failed(MsgLoginRequired)
	}
	status, err := c.gw.OrderStatus(ctx, id)
	if err != nil {
		return "", c.fail("order status", err, "")
	}
	return status, ok("")
}

// Addresses 获取地址簿。
func (c *Coordinator) Addresses(ctx context.Context) ([]model.Address, Result) {
	if !c.guard("addresses") {
		return nil, failed(MsgLoginRequired)
	}
	addrs, err := c.gw.Addresses(ctx)
	if err != nil {
		return nil, c.fail("list addresses", err, "")
	}
	return addrs, ok("")
}

// SaveAddress 新增（ID 为空）或修改地址。
func (c *Coordinator) SaveAddress(ctx context.Context, addr model.Address) (*model.Address, Result) {
	if !c.guard("save address") {
		return nil, failed(MsgLoginRequired)
	}
	var (
		saved *model.Address
		err   error
	)
	if addr.ID == "" {
		saved, err = c.gw.CreateAddress(ctx, addr)
	} else {
		saved, err = c.gw.UpdateAddress(ctx, addr)
	}
	if err != nil {
		return nil, c.fail("save address", err, "")
	}
	c.notifier.Notify(LevelSuccess, MsgAddressSaved)
	return saved, ok(MsgAddressSaved)
}

// DeleteAddress 删除地址。
func (c *Coordinator) DeleteAddress(ctx context.Context, id string) Result {
	if !c.guard("delete address") {
		return failed(MsgLoginRequired)
	}
	if err := c.gw.DeleteAddress(ctx, id); err != nil {
		return c.fail("delete address", err, "")
	}
	c.notifier.Notify(LevelSuccess, MsgAddressDeleted)
	return ok(MsgAddressDeleted)
}

// ValidateDiscount 以当前购物车金额校验折扣码。
func (c *Coordinator) ValidateDiscount(ctx context.Context, code string) (*model.Discount, Result) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, failed(MsgDiscountRequired)
	}
	if !c.guard("discount") {
		return nil, failed(MsgLoginRequired)
	}
	discount, err := c.gw.ValidateDiscount(ctx, code, c.CartTotal())
	if err != nil {
		return nil, c.fail("validate discount", err, "")
	}
	return discount, ok(MsgDiscountApplied)
}

// ApplyDiscount 将折扣码应用到已创建的订单，金额以订单小计为准。
func (c *Coordinator) ApplyDiscount(ctx context.Context, orderID, code string) (*model.Discount, Result) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, failed(MsgDiscountRequired)
	}
	if !c.guard("apply discount") {
		return nil, failed(MsgLoginRequired)
	}
	order, err := c.gw.Order(ctx, orderID)
	if err != nil {
		return nil, c.fail("get order", err, "")
	}
	discount, err := c.gw.ApplyDiscount(ctx, code, order.ID, order.Subtotal)
	if err != nil {
		return nil, c.fail("apply discount", err, "")
	}
	c.notifier.Notify(LevelSuccess, MsgDiscountApplied)
	return discount, ok(MsgDiscountApplied)
}
