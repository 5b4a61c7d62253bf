package service

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidState       = errors.New("illegal order status transition")
	ErrForbidden          = errors.New("no permission to access this resource")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrWrongPassword      = errors.New("old password is incorrect")
)
