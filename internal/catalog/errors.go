package catalog

import "errors"

var ErrUnknownProduct = errors.New("unknown product")
