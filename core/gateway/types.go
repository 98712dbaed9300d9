package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coconature/storefront/core/model"
)

// Named 兼容字符串或 {name} 对象（populate 后的分类等）。
type Named string

func (n *Named) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = Named(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.Name != "" {
			*n = Named(obj.Name)
		} else {
			*n = Named(obj.Slug)
		}
	}
	return nil
}

// ImageRef 兼容字符串或 {url} 对象。
type ImageRef string

func (i *ImageRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = ImageRef(s)
		return nil
	}
	var obj struct {
		URL string `json:"url"`
		Src string `json:"src"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		if obj.URL != "" {
			*i = ImageRef(obj.URL)
		} else {
			*i = ImageRef(obj.Src)
		}
	}
	return nil
}

// UserInfo 后端用户文档。
type UserInfo struct {
	ID        FlexString `json:"_id,omitempty"`
	AltID     FlexString `json:"id,omitempty"`
	Name      string     `json:"name,omitempty"`
	FullName  string     `json:"fullName,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Role      string     `json:"role,omitempty"`
	IsAdmin   bool       `json:"isAdmin,omitempty"`
	AddressID FlexString `json:"address,omitempty"`
}

// ToModel 将用户信息转换为领域模型。
func (u UserInfo) ToModel() model.User {
	role := strings.ToLower(u.Role)
	if role == "" {
		role = model.RoleCustomer
		if u.IsAdmin {
			role = model.RoleAdmin
		}
	}
	name := u.Name
	if name == "" {
		name = u.FullName
	}
	return model.User{
		ID:        firstNonEmpty(u.ID, u.AltID).String(),
		Name:      name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      role,
		AddressID: u.AddressID.String(),
	}
}

// AuthResponse 登录、注册与刷新接口响应，token/user 可能在顶层或 data 下。
type AuthResponse struct {
	Envelope
	Token       string    `json:"token,omitempty"`
	AccessToken string    `json:"accessToken,omitempty"`
	User        *UserInfo `json:"user,omitempty"`
	Data        *struct {
		Token       string    `json:"token,omitempty"`
		AccessToken string    `json:"accessToken,omitempty"`
		User        *UserInfo `json:"user,omitempty"`
	} `json:"data,omitempty"`
}

// Credentials 返回令牌与用户，用户缺失时为 nil。
func (r *AuthResponse) Credentials() (string, *model.User) {
	token := r.Token
	if token == "" {
		token = r.AccessToken
	}
	info := r.User
	if r.Data != nil {
		if token == "" {
			token = r.Data.Token
		}
		if token == "" {
			token = r.Data.AccessToken
		}
		if info == nil {
			info = r.Data.User
		}
	}
	if info == nil {
		return token, nil
	}
	user := info.ToModel()
	return token, &user
}

// ProductInfo 后端商品文档。
type ProductInfo struct {
	ID          FlexString  `json:"_id,omitempty"`
	AltID       FlexString  `json:"id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Slug        string      `json:"slug,omitempty"`
	Description string      `json:"description,omitempty"`
	Category    Named       `json:"category,omitempty"`
	Price       FlexDecimal `json:"price,omitempty"`
	SalePrice   FlexDecimal `json:"salePrice,omitempty"`
	Image       ImageRef    `json:"image,omitempty"`
	Images      []ImageRef  `json:"images,omitempty"`
	Stock       FlexInt     `json:"stock,omitempty"`
	CountInStk  FlexInt     `json:"countInStock,omitempty"`
	Rating      FlexDecimal `json:"rating,omitempty"`
}

// ToModel 将商品信息转换为领域模型。
func (p ProductInfo) ToModel() model.Product {
	images := make([]string, 0, len(p.Images)+1)
	if p.Image != "" {
		images = append(images, string(p.Image))
	}
	for _, img := range p.Images {
		if img != "" && string(img) != string(p.Image) {
			images = append(images, string(img))
		}
	}
	stock := int(p.Stock)
	if stock == 0 {
		stock = int(p.CountInStk)
	}
	rating, _ := p.Rating.Float64()
	return model.Product{
		ID:          firstNonEmpty(p.ID, p.AltID).String(),
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Category:    string(p.Category),
		Price:       nonNegative(p.Price.Decimal),
		SalePrice:   nonNegative(p.SalePrice.Decimal),
		Images:      images,
		Stock:       stock,
		Rating:      rating,
	}
}

// ProductRefInfo 购物车/收藏/订单中的商品字段，可能是 populate 的文档或仅 ID。
type ProductRefInfo struct {
	ProductInfo
}

func (r *ProductRefInfo) UnmarshalJSON(data []byte) error {
	var id FlexString
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return json.Unmarshal(data, &r.ProductInfo)
	}
	if err := id.UnmarshalJSON(data); err != nil {
		return err
	}
	r.ID = id
	return nil
}

// CartItemInfo 购物车行，兼容嵌套 product 与平铺字段两种形态。
type CartItemInfo struct {
	ID        FlexString      `json:"_id,omitempty"`
	Product   *ProductRefInfo `json:"product,omitempty"`
	ProductID FlexString      `json:"productId,omitempty"`
	Name      string          `json:"name,omitempty"`
	Price     FlexDecimal     `json:"price,omitempty"`
	SalePrice FlexDecimal     `json:"salePrice,omitempty"`
	Image     ImageRef        `json:"image,omitempty"`
	Images    []ImageRef      `json:"images,omitempty"`
	Quantity  FlexInt         `json:"quantity,omitempty"`
}

// ToModel 按促销价优先规则重新解析单价与图片。
func (c CartItemInfo) ToModel() model.CartLine {
	flat := ProductInfo{
		ID:        c.ProductID,
		Name:      c.Name,
		Price:     c.Price,
		SalePrice: c.SalePrice,
		Image:     c.Image,
		Images:    c.Images,
	}
	p := mergeProduct(c.Product, flat)
	return model.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.EffectivePrice(),
		Quantity:  model.ClampQuantity(int(c.Quantity)),
		Image:     p.Image(),
	}
}

// WishlistItemInfo 收藏条目，可能直接是商品文档，也可能是 {product, addedAt}。
type WishlistItemInfo struct {
	ProductInfo
	Product *ProductRefInfo `json:"product,omitempty"`
	AddedAt *time.Time      `json:"addedAt,omitempty"`
}

// ToModel 将收藏条目转换为领域模型。
func (w WishlistItemInfo) ToModel() model.WishlistEntry {
	p := mergeProduct(w.Product, w.ProductInfo)
	entry := model.WishlistEntry{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.EffectivePrice(),
		Image:     p.Image(),
	}
	if w.AddedAt != nil {
		entry.AddedAt = *w.AddedAt
	}
	return entry
}

// AddressInfo 后端地址文档。
type AddressInfo struct {
	ID        FlexString `json:"_id,omitempty"`
	AltID     FlexString `json:"id,omitempty"`
	FullName  string     `json:"fullName,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Street    string     `json:"street,omitempty"`
	Address   string     `json:"address,omitempty"`
	Ward      string     `json:"ward,omitempty"`
	District  string     `json:"district,omitempty"`
	Province  string     `json:"province,omitempty"`
	City      string     `json:"city,omitempty"`
	IsDefault bool       `json:"isDefault,omitempty"`
}

// ToModel 将地址转换为领域模型。
func (a AddressInfo) ToModel() model.Address {
	street := a.Street
	if street == "" {
		street = a.Address
	}
	province := a.Province
	if province == "" {
		province = a.City
	}
	return model.Address{
		ID:        firstNonEmpty(a.ID, a.AltID).String(),
		FullName:  a.FullName,
		Phone:     a.Phone,
		Street:    street,
		Ward:      a.Ward,
		District:  a.District,
		Province:  province,
		IsDefault: a.IsDefault,
	}
}

// OrderInfo 后端订单文档。
type OrderInfo struct {
	ID            FlexString     `json:"_id,omitempty"`
	AltID         FlexString     `json:"id,omitempty"`
	Code          string         `json:"orderCode,omitempty"`
	Status        string         `json:"status,omitempty"`
	Items         []CartItemInfo `json:"items,omitempty"`
	OrderItems    []CartItemInfo `json:"orderItems,omitempty"`
	Subtotal      FlexDecimal    `json:"subtotal,omitempty"`
	Discount      FlexDecimal    `json:"discountAmount,omitempty"`
	ShippingFee   FlexDecimal    `json:"shippingFee,omitempty"`
	Total         FlexDecimal    `json:"totalAmount,omitempty"`
	TotalPrice    FlexDecimal    `json:"totalPrice,omitempty"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
	Address       *AddressInfo   `json:"shippingAddress,omitempty"`
	Note          string         `json:"note,omitempty"`
	CreatedAt     *time.Time     `json:"createdAt,omitempty"`
}

// ToModel 将订单转换为领域模型，缺失的小计与总价由商品行推算。
func (o OrderInfo) ToModel() model.Order {
	raw := o.Items
	if len(raw) == 0 {
		raw = o.OrderItems
	}
	lines := make([]model.OrderLine, 0, len(raw))
	subtotal := decimal.Zero
	for _, item := range raw {
		l := item.ToModel()
		lines = append(lines, model.OrderLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Image:     l.Image,
		})
		subtotal = subtotal.Add(l.LineTotal())
	}
	if o.Subtotal.IsPositive() {
		subtotal = o.Subtotal.Decimal
	}
	total := o.Total.Decimal
	if !total.IsPositive() {
		total = o.TotalPrice.Decimal
	}
	if !total.IsPositive() {
		total = subtotal.Sub(o.Discount.Decimal).Add(o.ShippingFee.Decimal)
	}
	order := model.Order{
		ID:            firstNonEmpty(o.ID, o.AltID).String(),
		Code:          o.Code,
		Status:        model.OrderStatus(strings.ToLower(o.Status)),
		Items:         lines,
		Subtotal:      subtotal,
		Discount:      o.Discount.Decimal,
		ShippingFee:   o.ShippingFee.Decimal,
		Total:         nonNegative(total),
		PaymentMethod: model.PaymentMethod(strings.ToLower(o.PaymentMethod)),
		Note:          o.Note,
	}
	if order.Status == "" {
		order.Status = model.OrderStatusPending
	}
	if o.Address != nil {
		order.Address = o.Address.ToModel()
	}
	if o.CreatedAt != nil {
		order.CreatedAt = *o.CreatedAt
	}
	return order
}

// OrderStatusInfo 订单状态接口载荷。
type OrderStatusInfo struct {
	Status string `json:"status,omitempty"`
}

// DiscountInfo 折扣校验结果。
type DiscountInfo struct {
	Code           string      `json:"code,omitempty"`
	Type           string      `json:"type,omitempty"`
	DiscountType   string      `json:"discountType,omitempty"`
	Value          FlexDecimal `json:"value,omitempty"`
	DiscountValue  FlexDecimal `json:"discountValue,omitempty"`
	DiscountAmount FlexDecimal `json:"discountAmount,omitempty"`
	MinOrder       FlexDecimal `json:"minOrderValue,omitempty"`
}

// ToModel 将折扣转换为领域模型。
func (d DiscountInfo) ToModel() model.Discount {
	typ := d.Type
	if typ == "" {
		typ = d.DiscountType
	}
	value := d.Value.Decimal
	if value.IsZero() {
		value = d.DiscountValue.Decimal
	}
	kind := model.DiscountFixed
	if strings.HasPrefix(strings.ToLower(typ), "percent") {
		kind = model.DiscountPercent
	}
	return model.Discount{
		Code:     strings.ToUpper(d.Code),
		Type:     kind,
		Value:    value,
		Amount:   d.DiscountAmount.Decimal,
		MinOrder: d.MinOrder.Decimal,
	}
}

// mergeProduct 以嵌套商品为准，平铺字段补齐缺失项。
func mergeProduct(nested *ProductRefInfo, flat ProductInfo) model.Product {
	if nested == nil {
		return flat.ToModel()
	}
	p := nested.ToModel()
	f := flat.ToModel()
	if p.ID == "" {
		p.ID = f.ID
	}
	if p.Name == "" {
		p.Name = f.Name
	}
	if !p.Price.IsPositive() && !p.SalePrice.IsPositive() {
		p.Price, p.SalePrice = f.Price, f.SalePrice
	}
	if len(p.Images) == 0 {
		p.Images = f.Images
	}
	return p
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
