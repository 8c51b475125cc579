// Package plansaver stores sampling plans in a compact binary file: magic
// bytes, a little-endian compatibility level and a protobuf wire encoded body.
package plansaver

import (
	"time"

	"github.com/paulmach/orb"
)

var MAGIC_BYTES = []byte("SSPL")

const COMPATIBILITY_LEVEL uint32 = 1

type Metadata struct {
	Version     uint32
	Seed        uint64
	Method      string
	Size        uint32
	DateCreated time.Time
}

// Plan is a sampling run: the candidates it drew from and the sample it kept.
type Plan struct {
	Metadata

	Candidates []orb.Point
	Sample     []orb.Point
}
