package cart

// Quantity bounds are enforced by the cart store so the client sees the
// same error kinds it would for any other invalid mutation.

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}
