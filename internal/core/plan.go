package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Ratios holds the percentage of monthly income each bucket may receive.
type Ratios map[MainCategory]decimal.Decimal

// NewRatios builds integer percentage ratios.
func NewRatios(needs, wants, investments int64) Ratios {
	return Ratios{
		Needs:       decimal.NewFromInt(needs),
		Wants:       decimal.NewFromInt(wants),
		Investments: decimal.NewFromInt(investments),
	}
}

// Of returns the ratio for m, zero when absent.
func (r Ratios) Of(m MainCategory) decimal.Decimal {
	if v, ok := r[m]; ok {
		return v
	}
	return decimal.Zero
}

func (r Ratios) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, m := range MainCategories() {
		sum = sum.Add(r.Of(m))
	}
	return sum
}

// Validate requires all three buckets, each in [0, 100], adding up to exactly 100.
func (r Ratios) Validate() error {
	for key := range r {
		if !key.Valid() {
			return Invalid("ratios", "unknown main category %q", string(key))
		}
	}
	for _, m := range MainCategories() {
		v, ok := r[m]
		if !ok {
			return Invalid("ratios", "missing ratio for %s", m.RatioKey())
		}
		if v.IsNegative() || v.GreaterThan(hundred) {
			return Invalid("ratios", "%s ratio must be between 0 and 100, got %s", m.RatioKey(), v)
		}
	}
	if sum := r.Sum(); !sum.Equal(hundred) {
		return Invalid("ratios", "ratios must add up to 100%%, current total: %s%%", sum)
	}
	return nil
}

func (r Ratios) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.Number, len(r))
	for m, v := range r {
		out[m.RatioKey()] = json.Number(v.String())
	}
	return json.Marshal(out)
}

func (r *Ratios) UnmarshalJSON(data []byte) error {
	var raw map[string]decimal.Decimal
	if err := json.Unmarshal(data, &raw); err != nil {
		return Invalid("ratios", "must be an object of numeric percentages")
	}
	out := make(Ratios, len(raw))
	for key, v := range raw {
		m, err := ParseMainCategory(key)
		if err != nil {
			return Invalid("ratios", "unknown ratio key %q", key)
		}
		if _, dup := out[m]; dup {
			return Invalid("ratios", "ratio for %s given twice", m.RatioKey())
		}
		out[m] = v
	}
	*r = out
	return nil
}

// Ceiling is floor(income × ratio / 100) in cents.
func Ceiling(income Money, ratio decimal.Decimal) Money {
	c := decimal.NewFromInt(income.Cents).Mul(ratio).Div(hundred).Floor()
	return Money{Cents: c.IntPart()}
}

// BudgetPref is the typed form of a plan's budget preferences: the ratio set
// and the subcategory names listed under each bucket.
type BudgetPref struct {
	Ratios        Ratios
	Subcategories map[MainCategory][]string
}

type budgetPrefJSON struct {
	Ratios        Ratios              `json:"ratios"`
	Subcategories map[string][]string `json:"subcategories"`
}

func (p BudgetPref) MarshalJSON() ([]byte, error) {
	out := budgetPrefJSON{Ratios: p.Ratios, Subcategories: map[string][]string{}}
	for _, m := range MainCategories() {
		names := p.Subcategories[m]
		if names == nil {
			names = []string{}
		}
		out.Subcategories[m.RatioKey()] = names
	}
	return json.Marshal(out)
}

func (p *BudgetPref) UnmarshalJSON(data []byte) error {
	var in budgetPrefJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	subs := make(map[MainCategory][]string, len(in.Subcategories))
	for key, names := range in.Subcategories {
		m, err := ParseMainCategory(key)
		if err != nil {
			return Invalid("subcategories", "unknown key %q", key)
		}
		subs[m] = append(subs[m], names...)
	}
	p.Ratios = in.Ratios
	p.Subcategories = subs
	return nil
}

// Validate checks the ratio set and the subcategory lists.
func (p BudgetPref) Validate() error {
	if err := p.Ratios.Validate(); err != nil {
		return err
	}
	for m, names := range p.Subcategories {
		if !m.Valid() {
			return Invalid("subcategories", "unknown main category %q", string(m))
		}
		seen := make(map[string]bool, len(names))
		for _, name := range names {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				return Invalid("subcategories", "subcategory names cannot be blank")
			}
			if seen[key] {
				return Invalid("subcategories", "subcategory %q is listed twice under %s", name, m.RatioKey())
			}
			seen[key] = true
		}
	}
	return nil
}

// Clone returns a deep copy, so callers may edit it without aliasing.
func (p BudgetPref) Clone() BudgetPref {
	out := BudgetPref{
		Ratios:        make(Ratios, len(p.Ratios)),
		Subcategories: make(map[MainCategory][]string, len(p.Subcategories)),
	}
	for k, v := range p.Ratios {
		out.Ratios[k] = v
	}
	for k, v := range p.Subcategories {
		out.Subcategories[k] = append([]string(nil), v...)
	}
	return out
}

func (p BudgetPref) HasSubcategory(m MainCategory, name string) bool {
	for _, existing := range p.Subcategories[m] {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// WithSubcategory returns a copy with name appended under m.
func (p BudgetPref) WithSubcategory(m MainCategory, name string) (BudgetPref, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return p, Invalid("subcategory", "name cannot be blank")
	}
	if !m.Valid() {
		return p, Invalid("main_category", "unknown main category %q", string(m))
	}
	if p.HasSubcategory(m, name) {
		return p, Invalid("subcategory", "%q already exists under %s", name, m.RatioKey())
	}
	out := p.Clone()
	out.Subcategories[m] = append(out.Subcategories[m], name)
	return out, nil
}

// WithoutSubcategory returns a copy with name removed from m.
func (p BudgetPref) WithoutSubcategory(m MainCategory, name string) (BudgetPref, error) {
	if !p.HasSubcategory(m, name) {
		return p, NotFound("subcategory", name)
	}
	out := p.Clone()
	kept := out.Subcategories[m][:0]
	for _, existing := range out.Subcategories[m] {
		if !strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(name)) {
			kept = append(kept, existing)
		}
	}
	out.Subcategories[m] = kept
	return out, nil
}

// Plan is a user's budget plan.
type Plan struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	MonthlyIncome Money      `json:"monthly_income"`
	Pref          BudgetPref `json:"budget_pref"`
	// Start is the plan's first active month; its rollover is zero.
	Start     Period    `json:"start"`
	CreatedAt time.Time `json:"created_at"`
}

// Ceiling is the most that may be assigned to m in any single month.
func (p Plan) Ceiling(m MainCategory) Money {
	return Ceiling(p.MonthlyIncome, p.Pref.Ratios.Of(m))
}

func (p Plan) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Invalid("name", "plan name cannot be blank")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return Invalid("user_id", "cannot be blank")
	}
	if p.MonthlyIncome.IsNegative() {
		return Invalid("monthly_income", "cannot be negative")
	}
	if p.Start.IsZero() {
		return Invalid("start", "plan start month is required")
	}
	return p.Pref.Validate()
}
