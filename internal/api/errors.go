package api

import "errors"

var (
	// ErrUnknownLayout is returned for a layout name other than unified or split.
	ErrUnknownLayout = errors.New("unknown layout")
)
