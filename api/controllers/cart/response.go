package cart

import (
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/pkg/types"
)

type lineItemResponse struct {
	ProductID     string `json:"productId"`
	Name          string `json:"name"`
	ImageRef      string `json:"imageRef,omitempty"`
	UnitPrice     string `json:"unitPrice"`
	Quantity      int    `json:"quantity"`
	LineTotal     string `json:"lineTotal"`
	StockQuantity int    `json:"stockQuantity"`
}

type cartResponse struct {
	Items     []lineItemResponse       `json:"items"`
	ItemCount int                      `json:"itemCount"`
	Breakdown pricing.DisplayBreakdown `json:"breakdown"`
}

func newCartResponse(items []types.LineItem, breakdown pricing.CostBreakdown) cartResponse {
	resp := cartResponse{
		Items:     make([]lineItemResponse, 0, len(items)),
		Breakdown: breakdown.Display(),
	}
	for _, item := range items {
		resp.ItemCount += item.Quantity
		resp.Items = append(resp.Items, lineItemResponse{
			ProductID:     item.ProductID,
			Name:          item.Product.Name,
			ImageRef:      item.Product.ImageRef,
			UnitPrice:     item.UnitPrice.StringFixed(2),
			Quantity:      item.Quantity,
			LineTotal:     item.LineTotal().StringFixed(2),
			StockQuantity: item.Product.StockQuantity,
		})
	}
	return resp
}
