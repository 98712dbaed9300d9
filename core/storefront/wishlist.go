package storefront

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/store"
)

// AddToWishlist 收藏商品，随后从服务端整体刷新收藏夹。
func (c *Coordinator) AddToWishlist(ctx context.Context, product model.ProductRef) Result {
	if !c.guard("wishlist add") {
		return failed(MsgLoginRequired)
	}
	if strings.TrimSpace(product.ID) == "" {
		return failed(MsgInvalidProduct)
	}
	if err := c.gw.AddToWishlist(ctx, product.ID); err != nil {
		return c.fail("wishlist add", err, "")
	}
	c.FetchWishlistFromServer(ctx)
	c.notifier.Notify(LevelSuccess, MsgAddedToWishlist)
	return ok(MsgAddedToWishlist)
}

// RemoveFromWishlist 先在本地移除并持久化，再通知后端；后端失败时从服务端重新同步。
func (c *Coordinator) RemoveFromWishlist(ctx context.Context, productID string) Result {
	if !c.guard("wishlist remove") {
		return failed(MsgLoginRequired)
	}
	c.mu.Lock()
	c.wishlist = c.wishlist.Without(productID)
	snapshot := c.wishlist.Clone()
	c.mu.Unlock()
	c.persistWishlist(snapshot)

	if err := c.gw.RemoveFromWishlist(ctx, productID); err != nil {
		result := c.fail("wishlist remove", err, "")
		c.FetchWishlistFromServer(ctx)
		return result
	}
	return ok(MsgRemovedFromWish)
}

// FetchWishlistFromServer 以服务端收藏夹整体替换本地，失败只记录日志。
func (c *Coordinator) FetchWishlistFromServer(ctx context.Context) {
	if !c.hasToken() {
		return
	}
	epoch := c.session.Epoch()
	wishlist, err := c.gw.Wishlist(ctx)
	if err != nil {
		c.logger.Warn("fetch wishlist failed", zap.Error(err))
		return
	}
	if wishlist == nil {
		wishlist = model.Wishlist{}
	}
	c.mu.Lock()
	if c.stale(epoch, "wishlist fetch") {
		c.mu.Unlock()
		return
	}
	c.wishlist = wishlist.Clone()
	c.mu.Unlock()
	c.persistWishlist(wishlist)
}

// Wishlist 返回收藏夹副本。
func (c *Coordinator) Wishlist() model.Wishlist {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wishlist.Clone()
}

// InWishlist 判断商品是否已收藏。
func (c *Coordinator) InWishlist(productID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wishlist.Contains(productID)
}

func (c *Coordinator) restoreWishlist() {
	stored, err := c.wishRec.Load()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("stored wishlist unreadable", zap.Error(err))
		}
		stored = model.Wishlist{}
	}
	c.mu.Lock()
	c.wishlist = stored.Clone()
	c.mu.Unlock()
}

func (c *Coordinator) persistWishlist(w model.Wishlist) {
	if err := c.wishRec.Save(w); err != nil {
		c.logger.Warn("persist wishlist failed", zap.Error(err))
	}
}
