package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexString 兼容字符串和数字的 JSON 字段。
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	// 对象形式的引用（populate 后的文档）取其 _id
	var ref struct {
		ID  FlexString `json:"_id"`
		Alt FlexString `json:"id"`
	}
	if err := json.Unmarshal(data, &ref); err == nil {
		*f = firstNonEmpty(ref.ID, ref.Alt)
	}
	return nil
}

// String 返回字符串值。
func (f FlexString) String() string {
	return string(f)
}

// FlexDecimal 兼容数字与数字字符串的金额字段，无法解析时为 0。
type FlexDecimal struct {
	decimal.Decimal
}

func (f *FlexDecimal) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		f.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		f.Decimal = decimal.Zero
		return nil
	}
	f.Decimal = d
	return nil
}

// FlexInt 兼容数字与数字字符串的整数字段。
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	var d FlexDecimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = FlexInt(d.IntPart())
	return nil
}

// Envelope 是所有响应共有的 {success, message} 外壳，缺少 success 视为成功。
type Envelope struct {
	Success *bool  `json:"success,omitempty"`
	Msg     string `json:"message,omitempty"`
	ErrMsg  string `json:"error,omitempty"`
}

// IsSuccess 实现 httpclient.OkRsp。
func (e *Envelope) IsSuccess() bool {
	if e == nil || e.Success == nil {
		return true
	}
	return *e.Success
}

// Error 满足 error 接口，便于 httpclient 包装。
func (e *Envelope) Error() string {
	return e.Message()
}

// Message 返回服务端消息。
func (e *Envelope) Message() string {
	if e == nil {
		return ""
	}
	if e.Msg != "" {
		return e.Msg
	}
	return e.ErrMsg
}

// List 兼容数组或 {items|products|data|docs: [...]} 的列表载荷。
type List[T any] []T

var listKeys = []string{"items", "products", "data", "docs", "results"}

func (l *List[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	for _, key := range listKeys {
		if raw, ok := obj[key]; ok {
			return l.UnmarshalJSON(raw)
		}
	}
	*l = List[T]{}
	return nil
}

// ListResponse 为列表类接口的响应，载荷可能位于不同字段，也可能直接是数组。
type ListResponse[T any] struct {
	listBody[T]
}

type listBody[T any] struct {
	Envelope
	Data      List[T] `json:"data,omitempty"`
	Items     List[T] `json:"items,omitempty"`
	Products  List[T] `json:"products,omitempty"`
	Cart      List[T] `json:"cart,omitempty"`
	Wishlist  List[T] `json:"wishlist,omitempty"`
	Orders    List[T] `json:"orders,omitempty"`
	Addresses List[T] `json:"addresses,omitempty"`
}

func (r *ListResponse[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return r.Data.UnmarshalJSON(trimmed)
	}
	return json.Unmarshal(trimmed, &r.listBody)
}

// Values 返回第一个存在的载荷，均缺失时返回非 nil 空切片。
func (r *ListResponse[T]) Values() []T {
	for _, l := range []List[T]{r.Data, r.Items, r.Products, r.Cart, r.Wishlist, r.Orders, r.Addresses} {
		if l != nil {
			return l
		}
	}
	return []T{}
}

// ItemResponse 为单对象接口的响应。
type ItemResponse[T any] struct {
	Envelope
	Data     *T `json:"data,omitempty"`
	Product  *T `json:"product,omitempty"`
	Order    *T `json:"order,omitempty"`
	Address  *T `json:"address,omitempty"`
	User     *T `json:"user,omitempty"`
	Discount *T `json:"discount,omitempty"`
}

// Value 返回第一个存在的载荷。
func (r *ItemResponse[T]) Value() (T, bool) {
	for _, v := range []*T{r.Data, r.Product, r.Order, r.Address, r.User, r.Discount} {
		if v != nil {
			return *v, true
		}
	}
	var zero T
	return zero, false
}

func buildRequest(ctx context.Context, method, base, path string, query url.Values, body any) (*http.Request, error) {
	u := joinURL(base, path)
	if len(query) > 0 {
		if strings.Contains(u, "?") {
			u += "&" + query.Encode()
		} else {
			u += "?" + query.Encode()
		}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("gateway: 编码请求体失败: %w", err)
		}
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}
	return req, nil
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	base = strings.TrimSuffix(base, "/")
	if path == "" {
		return base
	}
	if strings.HasPrefix(path, "/") {
		return base + path
	}
	return base + "/" + path
}

func firstNonEmpty(values ...FlexString) FlexString {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
