package quality

import (
	"fmt"

	"tradedesk-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	ceilingFactor = decimal.RequireFromString("1.10")
	ivBand        = decimal.NewFromInt(5)
)

// Report separates blocking errors (values outside their valid range) from
// advisory warnings (values outside the contract's tolerance).
type Report struct {
	Errors   map[string]string `json:"errors"`
	Warnings map[string]string `json:"warnings"`
}

func (r Report) HasErrors() bool { return len(r.Errors) > 0 }

// WarningList returns the warnings in parameter order.
func (r Report) WarningList() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, p := range domain.QualityParams {
		if w, ok := r.Warnings[p]; ok {
			out = append(out, w)
		}
	}
	return out
}

// ValidateAgainstSpec checks a measured quality against a contract's targets.
// FFA, S and MI warn above target*1.10; IV warns outside target±5.
// Undeclared targets are skipped. Comparisons are exact decimals, so a value
// sitting on the boundary never warns.
func ValidateAgainstSpec(measured domain.Quality, spec domain.QualitySpec) Report {
	report := Report{
		Errors:   measured.RangeErrors(),
		Warnings: map[string]string{},
	}
	for _, p := range domain.QualityParams {
		target := spec.Target(p)
		if target == nil {
			continue
		}
		if _, bad := report.Errors[p]; bad {
			continue
		}
		value := decimal.NewFromFloat(measured.Param(p))
		if p == domain.ParamIV {
			if value.Sub(*target).Abs().GreaterThan(ivBand) {
				report.Warnings[p] = fmt.Sprintf("IV %s is outside contract spec %s ±%s",
					value.String(), target.String(), ivBand.String())
			}
			continue
		}
		limit := target.Mul(ceilingFactor)
		if value.GreaterThan(limit) {
			report.Warnings[p] = fmt.Sprintf("%s %s exceeds contract spec %s by more than 10%% (max %s)",
				p, value.String(), target.String(), limit.String())
		}
	}
	return report
}

// UncheckableSpec is the warning for a contract whose stored spec does not parse.
func UncheckableSpec(c *domain.Contract, err error) string {
	return fmt.Sprintf("Contract %s quality spec could not be checked: %s", c.ID, err.Error())
}

// ContractWarnings checks measured against c's declared spec. A spec that
// cannot be parsed yields a single warning instead of an error.
func ContractWarnings(measured domain.Quality, c *domain.Contract) []string {
	spec, err := c.QualitySpec()
	if err != nil {
		return []string{UncheckableSpec(c, err)}
	}
	return ValidateAgainstSpec(measured, spec).WarningList()
}
