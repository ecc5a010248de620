package service

import "errors"

var (
	ErrNotFound        = errors.New("error not found")
	ErrInvalidPosition = errors.New("error invalid position input")
)
