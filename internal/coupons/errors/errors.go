package errors

import "errors"

var (
	ErrNotFound = errors.New("coupon not found")

	ErrDuplicateCode = errors.New("coupon code already exists")
)
