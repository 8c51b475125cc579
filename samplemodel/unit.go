package samplemodel

import (
	"fmt"

	"github.com/paulmach/orb"
)

type Status uint8

const (
	Undefined Status = iota
	Selected
	Excluded
)

func (s Status) String() string {
	switch s {
	case Undefined:
		return "undefined"
	case Selected:
		return "selected"
	case Excluded:
		return "excluded"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Unit is a candidate location competing for a place in the sample.
// Once Selected or Excluded a unit never changes status again.
type Unit struct {
	X, Y   float64
	Prob   float64
	Status Status
}

func NewUnit(p orb.Point, prob float64) (Unit, error) {
	if err := checkProb(prob); err != nil {
		return Unit{}, err
	}
	return Unit{X: p[0], Y: p[1], Prob: prob}, nil
}

// NewUnits builds the unit arena for a candidate list, every unit starting
// Undefined with the same inclusion probability.
func NewUnits(points []orb.Point, prob float64) ([]Unit, error) {
	if err := checkProb(prob); err != nil {
		return nil, err
	}
	units := make([]Unit, len(points))
	for i, p := range points {
		units[i] = Unit{X: p[0], Y: p[1], Prob: prob}
	}
	return units, nil
}

func (u *Unit) Point() orb.Point {
	return orb.Point{u.X, u.Y}
}

func (u *Unit) SetProb(prob float64) error {
	if err := checkProb(prob); err != nil {
		return err
	}
	u.Prob = prob
	return nil
}

func (u *Unit) IsUndefined() bool { return u.Status == Undefined }
func (u *Unit) IsSelected() bool  { return u.Status == Selected }
func (u *Unit) IsExcluded() bool  { return u.Status == Excluded }
func (u *Unit) IsTerminal() bool  { return u.Status != Undefined }

// Select marks the unit as part of the sample. No-op on a terminal unit.
func (u *Unit) Select() {
	if u.Status == Undefined {
		u.Status = Selected
	}
}

// Exclude drops the unit from the contest. No-op on a terminal unit.
func (u *Unit) Exclude() {
	if u.Status == Undefined {
		u.Status = Excluded
	}
}

func (u Unit) String() string {
	return fmt.Sprintf("POINT(%g %g) prob: %g status: %s", u.X, u.Y, u.Prob, u.Status)
}

// Points returns the coordinates of units at the given indices, in order.
func Points(units []Unit, idxs []int) []orb.Point {
	out := make([]orb.Point, len(idxs))
	for i, idx := range idxs {
		out[i] = units[idx].Point()
	}
	return out
}

func checkProb(prob float64) error {
	if !(prob >= 0 && prob <= 1) {
		return fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidArgument, prob)
	}
	return nil
}
