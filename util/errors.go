package util

import (
	"errors"
	"fmt"
)

func PanicToError(err interface{}) error {
	switch x := err.(type) {
	case string:
		return errors.New(x)
	case error:
		return x
	default:
		return fmt.Errorf("unknown panic: %v", x)
	}
}
