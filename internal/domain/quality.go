package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Quality parameter names, in reporting order.
const (
	ParamFFA = "FFA"
	ParamIV  = "IV"
	ParamS   = "S"
	ParamMI  = "MI"
)

// QualityParams lists every tracked parameter in a stable order.
var QualityParams = []string{ParamFFA, ParamIV, ParamS, ParamMI}

// Quality is a measured (or quantity-weighted) set of quality values.
type Quality struct {
	FFA float64 `json:"ffa"`
	IV  float64 `json:"iv"`
	S   float64 `json:"s"`
	MI  float64 `json:"mi"`
}

// Param returns the value of the named parameter.
func (q Quality) Param(name string) float64 {
	switch name {
	case ParamFFA:
		return q.FFA
	case ParamIV:
		return q.IV
	case ParamS:
		return q.S
	case ParamMI:
		return q.MI
	}
	return 0
}

// SetParam writes the named parameter.
func (q *Quality) SetParam(name string, v float64) {
	switch name {
	case ParamFFA:
		q.FFA = v
	case ParamIV:
		q.IV = v
	case ParamS:
		q.S = v
	case ParamMI:
		q.MI = v
	}
}

// QualityRange is the inclusive range a measured value must lie in.
type QualityRange struct {
	Min float64
	Max float64
}

// QualityRanges are the valid measurement ranges per parameter.
var QualityRanges = map[string]QualityRange{
	ParamFFA: {Min: 0, Max: 100},
	ParamIV:  {Min: 0, Max: 200},
	ParamS:   {Min: 0, Max: 100},
	ParamMI:  {Min: 0, Max: 100},
}

// RangeErrors returns one message per parameter outside its valid range.
func (q Quality) RangeErrors() map[string]string {
	errs := map[string]string{}
	for _, p := range QualityParams {
		r := QualityRanges[p]
		if v := q.Param(p); v < r.Min || v > r.Max {
			errs[p] = fmt.Sprintf("%s must be between %g and %g (got %g)", p, r.Min, r.Max, v)
		}
	}
	return errs
}

// QualitySpec is a contract's declared quality target. A nil parameter was not declared.
type QualitySpec struct {
	FFA *decimal.Decimal
	IV  *decimal.Decimal
	S   *decimal.Decimal
	MI  *decimal.Decimal
}

// Target returns the declared target for the named parameter, or nil.
func (s QualitySpec) Target(name string) *decimal.Decimal {
	switch name {
	case ParamFFA:
		return s.FFA
	case ParamIV:
		return s.IV
	case ParamS:
		return s.S
	case ParamMI:
		return s.MI
	}
	return nil
}

// ParseQualitySpec parses the four text-encoded target values of a contract.
// Blank values are treated as not declared.
func ParseQualitySpec(ffa, iv, s, mi string) (QualitySpec, error) {
	var spec QualitySpec
	var msgs []string
	parse := func(name, raw string) *decimal.Decimal {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			msgs = append(msgs, fmt.Sprintf("quality %s must be a number (got %q)", name, raw))
			return nil
		}
		return &d
	}
	spec.FFA = parse(ParamFFA, ffa)
	spec.IV = parse(ParamIV, iv)
	spec.S = parse(ParamS, s)
	spec.MI = parse(ParamMI, mi)
	if len(msgs) > 0 {
		return QualitySpec{}, NewValidationError(msgs...)
	}
	return spec, nil
}
