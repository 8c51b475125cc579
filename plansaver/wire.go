package plansaver

import (
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"
	"google.golang.org/protobuf/encoding/protowire"
)

// plan message
const (
	fieldMetadata   protowire.Number = 1
	fieldCandidates protowire.Number = 2
	fieldSample     protowire.Number = 3
)

// metadata message
const (
	fieldVersion     protowire.Number = 1
	fieldSeed        protowire.Number = 2
	fieldMethod      protowire.Number = 3
	fieldSize        protowire.Number = 4
	fieldDateCreated protowire.Number = 5
)

func marshalPlan(plan Plan) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldMetadata, protowire.BytesType)
	b = protowire.AppendBytes(b, marshalMetadata(plan.Metadata))
	b = appendPoints(b, fieldCandidates, plan.Candidates)
	b = appendPoints(b, fieldSample, plan.Sample)
	return b
}

func marshalMetadata(meta Metadata) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(meta.Version))
	b = protowire.AppendTag(b, fieldSeed, protowire.VarintType)
	b = protowire.AppendVarint(b, meta.Seed)
	b = protowire.AppendTag(b, fieldMethod, protowire.BytesType)
	b = protowire.AppendString(b, meta.Method)
	b = protowire.AppendTag(b, fieldSize, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(meta.Size))
	if !meta.DateCreated.IsZero() {
		b = protowire.AppendTag(b, fieldDateCreated, protowire.BytesType)
		b = protowire.AppendString(b, meta.DateCreated.Format(time.RFC3339))
	}
	return b
}

// appendPoints writes points as a packed repeated double of interleaved x, y.
func appendPoints(b []byte, num protowire.Number, points []orb.Point) []byte {
	if len(points) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(points)*2*8))
	for _, p := range points {
		b = protowire.AppendFixed64(b, math.Float64bits(p[0]))
		b = protowire.AppendFixed64(b, math.Float64bits(p[1]))
	}
	return b
}

func unmarshalPlan(b []byte) (Plan, error) {
	var plan Plan
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return plan, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case num == fieldMetadata && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return plan, protowire.ParseError(n)
			}
			meta, err := unmarshalMetadata(v)
			if err != nil {
				return plan, fmt.Errorf("error decoding metadata: %w", err)
			}
			plan.Metadata = meta
			b = b[n:]
		case (num == fieldCandidates || num == fieldSample) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return plan, protowire.ParseError(n)
			}
			points, err := decodePoints(v)
			if err != nil {
				return plan, err
			}
			if num == fieldCandidates {
				plan.Candidates = append(plan.Candidates, points...)
			} else {
				plan.Sample = append(plan.Sample, points...)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return plan, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return plan, nil
}

func unmarshalMetadata(b []byte) (Metadata, error) {
	var meta Metadata
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return meta, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && (num == fieldVersion || num == fieldSeed || num == fieldSize):
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return meta, protowire.ParseError(n)
			}
			switch num {
			case fieldVersion:
				meta.Version = uint32(v)
			case fieldSeed:
				meta.Seed = v
			case fieldSize:
				meta.Size = uint32(v)
			}
			b = b[n:]
		case typ == protowire.BytesType && (num == fieldMethod || num == fieldDateCreated):
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return meta, protowire.ParseError(n)
			}
			if num == fieldMethod {
				meta.Method = v
			} else {
				created, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return meta, fmt.Errorf("error parsing creation date: %w", err)
				}
				meta.DateCreated = created
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return meta, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return meta, nil
}

func decodePoints(b []byte) ([]orb.Point, error) {
	if len(b)%16 != 0 {
		return nil, fmt.Errorf("packed points length %d is not a multiple of 16", len(b))
	}
	points := make([]orb.Point, 0, len(b)/16)
	for len(b) > 0 {
		x, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		y, m := protowire.ConsumeFixed64(b[n:])
		if m < 0 {
			return nil, protowire.ParseError(m)
		}
		points = append(points, orb.Point{math.Float64frombits(x), math.Float64frombits(y)})
		b = b[n+m:]
	}
	return points, nil
}
