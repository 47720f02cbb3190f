package system

import "errors"

var (
	ErrParentCycle = errors.New("system: transform parent cycle")
	ErrNoBehaviour = errors.New("system: script has no behaviour")
)
