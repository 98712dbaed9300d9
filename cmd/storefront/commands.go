package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/coconature/storefront/core/gateway"
	"github.com/coconature/storefront/core/model"
	"github.com/coconature/storefront/core/storefront"
)

// console 将通知与登录跳转输出到终端。
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) Notify(level storefront.Level, message string) {
	c.printf("[%s] %s\n", level, message)
}

func (c *console) RedirectToLogin(reason string) {
	if reason == "" {
		reason = "sign in required"
	}
	c.printf("-> login: %s (use 'login')\n", reason)
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) json(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	c.printf("%s\n", data)
}

func (c *console) result(res storefront.Result) {
	mark := "ok"
	if !res.Success {
		mark = "failed"
	}
	if res.Message == "" {
		c.printf("%s\n", mark)
		return
	}
	c.printf("%s: %s\n", mark, res.Message)
}

const helpText = `commands:
  login | register | logout | whoami | profile
  products [category] | search <term> | product <id>
  cart | add <id> [qty] | update <id> <qty> | remove <id> | clear
  wishlist | wish <id> | unwish <id> | move <id>
  checkout [discount] | discount <code>
  orders | order <id> | cancel <id> | status <id> | apply <order> <code>
  addresses | deladdr <id>
  stats | refresh | help | quit`

func dispatch(ctx context.Context, coord *storefront.Coordinator, ui *console, in *bufio.Scanner, args []string) {
	cmd, rest := args[0], args[1:]
	arg := func(i int) string {
		if i < len(rest) {
			return rest[i]
		}
		return ""
	}

	switch cmd {
	case "help":
		ui.printf("%s\n", helpText)

	case "login":
		creds := model.Credentials{
			Email:    ask(ui, in, "email: "),
			Password: ask(ui, in, "password: "),
		}
		ui.result(coord.Login(ctx, creds))
	case "register":
		reg := model.Registration{
			Name:     ask(ui, in, "name: "),
			Email:    ask(ui, in, "email: "),
			Phone:    ask(ui, in, "phone: "),
			Password: ask(ui, in, "password: "),
		}
		ui.result(coord.Register(ctx, reg))
	case "logout":
		ui.result(coord.Logout(ctx))
	case "whoami":
		ui.printf("state: %s\n", coord.State())
		if u := coord.User(); u != nil {
			ui.json(u)
		}
	case "profile":
		var patch model.ProfilePatch
		if v := ask(ui, in, "name (blank keeps): "); v != "" {
			patch.Name = &v
		}
		if v := ask(ui, in, "phone (blank keeps): "); v != "" {
			patch.Phone = &v
		}
		ui.result(coord.UpdateProfile(ctx, patch))

	case "products":
		var (
			items []model.Product
			res   storefront.Result
		)
		if c := arg(0); c != "" {
			items, res = coord.ProductsByCategory(ctx, c, gateway.ProductQuery{})
		} else {
			items, res = coord.Products(ctx, gateway.ProductQuery{})
		}
		printProducts(ui, items, res)
	case "search":
		items, res := coord.SearchProducts(ctx, strings.Join(rest, " "), gateway.ProductQuery{})
		printProducts(ui, items, res)
	case "product":
		p, res := coord.ProductDetail(ctx, arg(0))
		if !res.Success || p == nil {
			ui.result(res)
			return
		}
		ui.json(p)

	case "cart":
		printCart(ui, coord)
	case "add":
		ui.result(coord.AddToCart(ctx, model.ProductRef{ID: arg(0)}, atoi(arg(1), 1)))
	case "update":
		ui.result(coord.UpdateCartItemQuantity(ctx, arg(0), atoi(arg(1), 1)))
	case "remove":
		ui.result(coord.RemoveFromCart(ctx, arg(0)))
	case "clear":
		ui.result(coord.ClearCart(ctx))

	case "wishlist":
		for _, w := range coord.Wishlist() {
			ui.printf("  %-12s %-32s %s\n", w.ProductID, w.Name, w.Price.StringFixed(0))
		}
	case "wish":
		ui.result(coord.AddToWishlist(ctx, model.ProductRef{ID: arg(0)}))
	case "unwish":
		ui.result(coord.RemoveFromWishlist(ctx, arg(0)))
	case "move":
		ui.result(coord.MoveWishlistItemToCart(ctx, arg(0)))

	case "checkout":
		checkout(ctx, coord, ui, in, arg(0))
	case "discount":
		d, res := coord.ValidateDiscount(ctx, arg(0))
		ui.result(res)
		if d != nil {
			ui.json(d)
		}

	case "orders":
		orders, res := coord.Orders(ctx)
		if !res.Success {
			ui.result(res)
			return
		}
		for _, o := range orders {
			ui.printf("  %-14s %-10s %s\n", o.ID, o.Status, o.Total.StringFixed(0))
		}
	case "order":
		o, res := coord.Order(ctx, arg(0))
		if !res.Success {
			ui.result(res)
			return
		}
		ui.json(o)
	case "apply":
		d, res := coord.ApplyDiscount(ctx, arg(0), arg(1))
		ui.result(res)
		if d != nil {
			ui.json(d)
		}
	case "cancel":
		_, res := coord.CancelOrder(ctx, arg(0))
		ui.result(res)
	case "status":
		st, res := coord.OrderStatus(ctx, arg(0))
		if !res.Success {
			ui.result(res)
			return
		}
		ui.printf("%s\n", st)

	case "addresses":
		addrs, res := coord.Addresses(ctx)
		if !res.Success {
			ui.result(res)
			return
		}
		ui.json(addrs)
	case "deladdr":
		ui.result(coord.DeleteAddress(ctx, arg(0)))

	case "stats":
		ui.json(coord.ProductCache().Stats())
	case "refresh":
		coord.InvalidateCatalog()
		ui.printf("catalog cache cleared\n")

	default:
		ui.printf("unknown command %q, type 'help'\n", cmd)
	}
}

func checkout(ctx context.Context, coord *storefront.Coordinator, ui *console, in *bufio.Scanner, discount string) {
	form, found := coord.CheckoutForm()
	if found {
		ui.printf("saved details for %s, %s\n", form.FullName, form.Street)
	}
	form.FullName = askDefault(ui, in, "full name", form.FullName)
	form.Phone = askDefault(ui, in, "phone", form.Phone)
	form.Street = askDefault(ui, in, "street", form.Street)
	form.District = askDefault(ui, in, "district", form.District)
	form.Province = askDefault(ui, in, "province", form.Province)
	form.PaymentMethod = model.PaymentMethod(askDefault(ui, in, "payment (cod/vietqr)", string(form.PaymentMethod)))
	form.Note = ask(ui, in, "note: ")

	order, res := coord.PlaceOrder(ctx, form, discount)
	ui.result(res)
	if order != nil {
		ui.printf("order %s total %s\n", order.ID, order.Total.StringFixed(0))
	}
}

func printProducts(ui *console, items []model.Product, res storefront.Result) {
	if !res.Success {
		ui.result(res)
	}
	for _, p := range items {
		ui.printf("  %-12s %-32s %s\n", p.ID, p.Name, p.EffectivePrice().StringFixed(0))
	}
}

func printCart(ui *console, coord *storefront.Coordinator) {
	cart := coord.Cart()
	if len(cart) == 0 {
		ui.printf("cart is empty\n")
		return
	}
	for _, l := range cart {
		ui.printf("  %-12s %-32s %3d x %s\n", l.ProductID, l.Name, l.Quantity, l.UnitPrice.StringFixed(0))
	}
	ui.printf("  items: %d  total: %s\n", coord.CartCount(), coord.CartTotal().StringFixed(0))
}

func ask(ui *console, in *bufio.Scanner, prompt string) string {
	ui.printf("%s", prompt)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func askDefault(ui *console, in *bufio.Scanner, label, def string) string {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	if v := ask(ui, in, label+": "); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
