package core

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// DefaultAppPrefix marks every platform app forkgate creates.
const DefaultAppPrefix = "tkt-cyber-xmd-v3"

// Ownership is the tag that identifies instances created by this service.
// The platform has no owner field we control, so the name prefix is the
// only marker: the provisioner stamps it and the reclaimer trusts it. Any
// app sharing the prefix is treated as ours.
type Ownership struct {
	Prefix string
}

// NewName returns a fresh owned name: prefix, unix millis, and a random
// suffix in [0,1000) to make same-millisecond collisions unlikely.
func (o Ownership) NewName(now time.Time, suffix int) string {
	return fmt.Sprintf("%s%d-%d", o.Prefix, now.UnixMilli(), suffix)
}

// RandomSuffix returns a disambiguator for NewName.
func RandomSuffix() int {
	return rand.IntN(1000)
}

// Owns reports whether name carries the ownership marker.
func (o Ownership) Owns(name string) bool {
	return o.Prefix != "" && strings.HasPrefix(name, o.Prefix)
}
