package values

import "fmt"

var (
	ErrInvalid  = fmt.Errorf("invalid")
	ErrTooHigh  = fmt.Errorf("index too high")
	ErrInternal = fmt.Errorf("internal error")
)
