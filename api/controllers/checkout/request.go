package checkout

import "github.com/angelmondragon/techstore-checkout/pkg/types"

// Shipping fields are validated by the orchestrator so that an incomplete
// address fails the attempt with INVALID_SHIPPING rather than a generic
// request error.
type shippingInfoRequest struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
	Country     string `json:"country"`
	PhoneNumber string `json:"phoneNumber"`
}

func (s shippingInfoRequest) toShippingInfo() types.ShippingInfo {
	return types.ShippingInfo{
		Street:      s.Street,
		City:        s.City,
		State:       s.State,
		ZipCode:     s.ZipCode,
		Country:     s.Country,
		PhoneNumber: s.PhoneNumber,
	}
}

type checkoutRequest struct {
	ShippingInfo    shippingInfoRequest `json:"shippingInfo"`
	PaymentMethodID string              `json:"paymentMethodId"`
}
