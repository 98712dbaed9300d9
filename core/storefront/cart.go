package storefront

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/coconature/storefront/core/metrics"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

// AddToCart 加入购物车。product.Quantity 非 0 时优先于 quantity，结果修正为不小于 1。
// 成功后以服务端返回的完整列表替换本地购物车。
func (c *Coordinator) AddToCart(ctx context.Context, product model.ProductRef, quantity int) Result {
	if !c.guard("cart add") {
		c.countMutation("add", "rejected")
		return failed(MsgLoginRequired)
	}
	if strings.TrimSpace(product.ID) == "" {
		return failed(MsgInvalidProduct)
	}
	if product.Quantity != 0 {
		quantity = product.Quantity
	}
	quantity = model.ClampQuantity(quantity)
	epoch := c.session.Epoch()
	cart, err := c.gw.AddToCart(ctx, product.ID, quantity)
	return c.applyCart("add", epoch, cart, err, MsgAddedToCart)
}

// UpdateCartItemQuantity 修改数量，数量修正为不小于 1。
func (c *Coordinator) UpdateCartItemQuantity(ctx context.Context, productID string, quantity int) Result {
	if !c.guard("cart update") {
		c.countMutation("update", "rejected")
		return failed(MsgLoginRequired)
	}
	epoch := c.session.Epoch()
	cart, err := c.gw.UpdateCartItem(ctx, productID, model.ClampQuantity(quantity))
	return c.applyCart("update", epoch, cart, err, MsgCartUpdated)
}

// RemoveFromCart 删除商品行。
func (c *Coordinator) RemoveFromCart(ctx context.Context, productID string) Result {
	if !c.guard("cart remove") {
		c.countMutation("remove", "rejected")
		return failed(MsgLoginRequired)
	}
	epoch := c.session.Epoch()
	cart, err := c.gw.RemoveFromCart(ctx, productID)
	return c.applyCart("remove", epoch, cart, err, MsgRemovedFromCart)
}

// ClearCart 立即清空本地购物车，已登录时再尽力通知后端。本地清空总是成功。
func (c *Coordinator) ClearCart(ctx context.Context) Result {
	c.mu.Lock()
	c.cart = model.Cart{}
	c.mu.Unlock()
	c.persistCart(model.Cart{})

	result := "success"
	if c.session.Authenticated() {
		if err := c.gw.ClearCart(ctx); err != nil {
			result = "failure"
			c.logger.Warn("remote cart clear failed", zap.Error(err))
		}
	}
	c.countMutation("clear", result)
	return ok(MsgCartCleared)
}

// RestoreCart 恢复购物车：持有令牌时以服务端为准，否则从存储读取。
// 服务端不可达时退回存储中的最后一份。
func (c *Coordinator) RestoreCart(ctx context.Context) {
	if c.hasToken() {
		epoch := c.session.Epoch()
		cart, err := c.gw.Cart(ctx)
		if err == nil {
			c.replaceCart(epoch, cart)
			return
		}
		c.logger.Warn("fetch cart failed, using stored copy", zap.Error(err))
	}
	stored, err := c.cartRec.Load()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("stored cart unreadable", zap.Error(err))
		}
		stored = model.Cart{}
	}
	c.mu.Lock()
	c.cart = model.NewCart(stored)
	c.mu.Unlock()
}

// MoveWishlistItemToCart 将收藏商品移入购物车，随后同步两侧。
func (c *Coordinator) MoveWishlistItemToCart(ctx context.Context, productID string) Result {
	if !c.guard("wishlist move") {
		c.countMutation("move", "rejected")
		return failed(MsgLoginRequired)
	}
	if err := c.gw.MoveWishlistItemToCart(ctx, productID); err != nil {
		c.countMutation("move", "failure")
		return c.fail("move to cart", err, "")
	}
	c.countMutation("move", "success")
	c.resync(ctx)
	c.notifier.Notify(LevelSuccess, MsgMovedToCart)
	return ok(MsgMovedToCart)
}

// Cart 返回购物车副本。
func (c *Coordinator) Cart() model.Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Clone()
}

// CartTotal 返回合计金额。
func (c *Coordinator) CartTotal() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Total()
}

// CartCount 返回商品件数。
func (c *Coordinator) CartCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cart.Count()
}

// applyCart 成功时整体替换购物车；无论成败都把当前购物车写回存储。
// 请求期间会话已切换时丢弃响应，不改动内存与存储。
func (c *Coordinator) applyCart(op string, epoch uint64, cart model.Cart, err error, success string) Result {
	if c.stale(epoch, "cart "+op) {
		c.countMutation(op, "rejected")
		return failed(MsgLoginRequired)
	}
	if err != nil {
		c.mu.RLock()
		current := c.cart.Clone()
		c.mu.RUnlock()
		c.persistCart(current)
		c.countMutation(op, "failure")
		return c.fail("cart "+op, err, "")
	}
	if !c.replaceCart(epoch, cart) {
		c.countMutation(op, "rejected")
		return failed(MsgLoginRequired)
	}
	c.countMutation(op, "success")
	c.notifier.Notify(LevelSuccess, success)
	return ok(success)
}

func (c *Coordinator) replaceCart(epoch uint64, cart model.Cart) bool {
	next := model.NewCart(cart)
	c.mu.Lock()
	if c.stale(epoch, "cart replace") {
		c.mu.Unlock()
		return false
	}
	c.cart = next
	c.mu.Unlock()
	c.persistCart(next.Clone())
	return true
}

func (c *Coordinator) persistCart(cart model.Cart) {
	if err := c.cartRec.Save(cart); err != nil {
		c.logger.Warn("persist cart failed", zap.Error(err))
	}
}

func (c *Coordinator) countMutation(op, result string) {
	metrics.CartMutationsTotal.WithLabelValues(op, result).Inc()
}
