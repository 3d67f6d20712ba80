package surface

import "errors"

var errNilDocument = errors.New("document is nil")
