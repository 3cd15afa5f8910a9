package commerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
	"github.com/shopspring/decimal"
)

// remoteID accepts identifiers sent either as JSON numbers or strings.
type remoteID string

func (id *remoteID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = remoteID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("remote id: %w", err)
	}
	*id = remoteID(n.String())
	return nil
}

type productDTO struct {
	ID            remoteID         `json:"id"`
	Name          string           `json:"name"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity int              `json:"stockQuantity"`
	ImageURLs     []string         `json:"imageUrls"`
	ImageURL      string           `json:"imageUrl"`
}

type cartItemDTO struct {
	ID        remoteID         `json:"id"`
	ProductID remoteID         `json:"productId"`
	Product   productDTO       `json:"product"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

type cartDTO struct {
	Items []cartItemDTO `json:"items"`
}

func (c cartDTO) lineItems() []types.LineItem {
	items := make([]types.LineItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, item.lineItem())
	}
	return items
}

func (i cartItemDTO) lineItem() types.LineItem {
	productID := strings.TrimSpace(string(i.Product.ID))
	if productID == "" {
		productID = strings.TrimSpace(string(i.ProductID))
	}

	price := decimal.Zero
	switch {
	case i.UnitPrice != nil:
		price = *i.UnitPrice
	case i.Price != nil:
		price = *i.Price
	case i.Product.Price != nil:
		price = *i.Product.Price
	}

	image := i.Product.ImageURL
	if image == "" && len(i.Product.ImageURLs) > 0 {
		image = i.Product.ImageURLs[0]
	}

	return types.LineItem{
		ProductID: productID,
		UnitPrice: price,
		Quantity:  i.Quantity,
		Product: types.ProductSnapshot{
			Name:          i.Product.Name,
			StockQuantity: i.Product.StockQuantity,
			ImageRef:      image,
		},
	}
}

type orderDTO struct {
	ID            remoteID        `json:"id"`
	OrderNumber   string          `json:"orderNumber"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	ShippingCost  decimal.Decimal `json:"shippingCost"`
	Total         decimal.Decimal `json:"total"`
}

func (o orderDTO) order() checkout.Order {
	return checkout.Order{
		ID:            strings.TrimSpace(string(o.ID)),
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		ShippingCost:  o.ShippingCost,
		Total:         o.Total,
	}
}

type intentDTO struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}
