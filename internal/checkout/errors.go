package checkout

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrNoAddressSelected  = errors.New("no delivery address selected")
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrValidation         = errors.New("order validation failed")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrNetwork            = errors.New("order submission failed, please retry")
	ErrAuthRequired       = errors.New("login required to place an order")
	ErrInvalidCard        = errors.New("invalid card number")
)
