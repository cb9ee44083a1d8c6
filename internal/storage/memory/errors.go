package memory

import "errors"

var errForeignKey = errors.New("unknown user")
