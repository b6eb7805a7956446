package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// productRef decodes either a bare product id or a populated product document.
type productRef struct {
	ID         string           `json:"_id"`
	Name       string           `json:"name"`
	Price      decimal.Decimal  `json:"price"`
	OfferPrice *decimal.Decimal `json:"offerPrice"`
}

func (p *productRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.ID)
	}
	type plain productRef
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = productRef(v)
	return nil
}

// addressRef decodes either an address id or a populated address document.
type addressRef struct {
	domain.Address
}

func (a *addressRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &a.ID)
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(data, &a.Address)
}

type cartItemDTO struct {
	Product  productRef `json:"product"`
	Quantity int        `json:"quantity"`
}

type cartResponse struct {
	Cart struct {
		Items []cartItemDTO   `json:"items"`
		Total decimal.Decimal `json:"total"`
	} `json:"cart"`
}

type cartUpdateRequest struct {
	UserID    string         `json:"userId"`
	CartItems map[string]int `json:"cartItems"`
}

type productsResponse struct {
	Products []domain.Product `json:"products"`
}

type stockRequest struct {
	ID      string `json:"id"`
	InStock bool   `json:"inStock"`
}

type productUpdateRequest struct {
	ID          string               `json:"id"`
	ProductData domain.ProductUpdate `json:"productData"`
}

type productIDRequest struct {
	ID string `json:"id"`
}

type addressesResponse struct {
	Addresses []domain.Address `json:"addresses"`
}

type addAddressRequest struct {
	Address domain.Address `json:"address"`
}

type orderItemDTO struct {
	Product  productRef       `json:"product"`
	Quantity int              `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

type orderDTO struct {
	ID          string          `json:"_id"`
	OrderNumber string          `json:"orderNumber"`
	UserID      string          `json:"userId"`
	Items       []orderItemDTO  `json:"items"`
	Amount      decimal.Decimal `json:"amount"`
	Address     addressRef      `json:"address"`
	Status      string          `json:"status"`
	PaymentType string          `json:"paymentType"`
	IsPaid      bool            `json:"isPaid"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (o orderDTO) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		unit := it.Product.Price
		if it.Product.OfferPrice != nil {
			unit = *it.Product.OfferPrice
		}
		if it.Price != nil {
			unit = *it.Price
		}
		items = append(items, domain.OrderItem{
			ProductID: it.Product.ID,
			Name:      it.Product.Name,
			Quantity:  it.Quantity,
			UnitPrice: unit,
		})
	}

	status, err := domain.ParseOrderStatus(o.Status)
	if err != nil {
		status = domain.OrderStatusPending
	}
	method, err := domain.ParsePaymentMethod(o.PaymentType)
	if err != nil {
		method = domain.PaymentCOD
	}

	return domain.Order{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Items:         items,
		Address:       o.Address.Address,
		PaymentMethod: method,
		Amount:        o.Amount,
		Status:        status,
		IsPaid:        o.IsPaid,
		CreatedAt:     o.CreatedAt,
	}
}

type ordersResponse struct {
	Orders []orderDTO `json:"orders"`
}

type orderResponse struct {
	Order orderDTO `json:"order"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// OrderLine is one line of an order request; Price is the unit price captured
// when the order was built.
type OrderLine struct {
	ProductID string          `json:"product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
	Phone   string `json:"phone,omitempty"`
}

func ShippingAddressFrom(a domain.Address) ShippingAddress {
	return ShippingAddress{
		Street:  a.Street,
		City:    a.City,
		State:   a.State,
		Country: a.Country,
		ZipCode: a.ZipCode,
		Phone:   a.Phone,
	}
}

type CODOrderRequest struct {
	UserID         string          `json:"userId"`
	Items          []OrderLine     `json:"items"`
	Address        ShippingAddress `json:"address"`
	IdempotencyKey string          `json:"-"`
}

type PaymentRequest struct {
	CardNumber      string          `json:"cardNumber"`
	UserID          string          `json:"userId"`
	CartItems       []OrderLine     `json:"cartItems"`
	Amount          decimal.Decimal `json:"amount"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	IdempotencyKey  string          `json:"-"`
}

// PlacedOrder is the backend acknowledgement of a created order.
type PlacedOrder struct {
	OrderID     string
	OrderNumber string
	Order       domain.Order
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User domain.User `json:"user"`
}

type dashboardResponse struct {
	Stats struct {
		TotalOrders   int             `json:"totalOrders"`
		TotalProducts int             `json:"totalProducts"`
		TotalRevenue  decimal.Decimal `json:"totalRevenue"`
		RecentOrders  []orderDTO      `json:"recentOrders"`
	} `json:"stats"`
}
