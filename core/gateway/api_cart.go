package gateway

import (
	"context"
	"net/http"

	"github.com/coconature/storefront/core/model"
)

type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart 获取服务端购物车。
func (c *Client) Cart(ctx context.Context) (model.Cart, error) {
	var rsp ListResponse[CartItemInfo]
	if err := c.get(ctx, "/cart", nil, &rsp); err != nil {
		return nil, err
	}
	return toCart(rsp.Values()), nil
}

// AddToCart 加入购物车，返回服务端完整购物车。
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	return c.mutateCart(ctx, http.MethodPost, "/cart/add", cartItemRequest{ProductID: productID, Quantity: quantity})
}

// UpdateCartItem 修改数量，返回服务端完整购物车。
func (c *Client) UpdateCartItem(ctx context.Context, productID string, quantity int) (model.Cart, error) {
	return c.mutateCart(ctx, http.MethodPut, "/cart/update", cartItemRequest{ProductID: productID, Quantity: quantity})
}

// RemoveFromCart 删除商品行，返回服务端完整购物车。
func (c *Client) RemoveFromCart(ctx context.Context, productID string) (model.Cart, error) {
	return c.mutateCart(ctx, http.MethodDelete, "/cart/remove/"+escape(productID), nil)
}

// ClearCart 清空服务端购物车。
func (c *Client) ClearCart(ctx context.Context) error {
	return c.send(ctx, http.MethodDelete, "/cart/clear", nil, nil)
}

func (c *Client) mutateCart(ctx context.Context, method, path string, body any) (model.Cart, error) {
	var rsp ListResponse[CartItemInfo]
	if err := c.send(ctx, method, path, body, &rsp); err != nil {
		return nil, err
	}
	return toCart(rsp.Values()), nil
}

func toCart(items []CartItemInfo) model.Cart {
	lines := make([]model.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.ToModel())
	}
	return model.NewCart(lines)
}

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

// Wishlist 获取服务端收藏夹。
func (c *Client) Wishlist(ctx context.Context) (model.Wishlist, error) {
	var rsp ListResponse[WishlistItemInfo]
	if err := c.get(ctx, "/wishlist", nil, &rsp); err != nil {
		return nil, err
	}
	raw := rsp.Values()
	out := make(model.Wishlist, 0, len(raw))
	for _, item := range raw {
		entry := item.ToModel()
		if entry.ProductID == "" || out.Contains(entry.ProductID) {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// AddToWishlist 收藏商品。
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	return c.send(ctx, http.MethodPost, "/wishlist/add", wishlistRequest{ProductID: productID}, nil)
}

// RemoveFromWishlist 取消收藏。
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	return c.send(ctx, http.MethodDelete, "/wishlist/remove/"+escape(productID), nil, nil)
}

// MoveWishlistItemToCart 将收藏商品移入购物车，由服务端完成两侧变更。
func (c *Client) MoveWishlistItemToCart(ctx context.Context, productID string) error {
	return c.send(ctx, http.MethodPost, "/wishlist/move-to-cart/"+escape(productID), nil, nil)
}
