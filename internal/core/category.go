package core

import (
	"encoding/json"
	"strings"
)

// MainCategory is one of the three fixed budget buckets.
type MainCategory string

const (
	Needs       MainCategory = "needs"
	Wants       MainCategory = "wants"
	Investments MainCategory = "investments"
)

// MainCategories lists the buckets in display order.
func MainCategories() []MainCategory {
	return []MainCategory{Needs, Wants, Investments}
}

// ParseMainCategory accepts a category name or a ratio key. The ratio
// vocabulary calls the investments bucket "savings"; this is the one place
// where the two names are reconciled.
func ParseMainCategory(s string) (MainCategory, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "needs":
		return Needs, nil
	case "wants":
		return Wants, nil
	case "investments", "savings":
		return Investments, nil
	}
	return "", Invalid("main_category", "unknown main category %q", s)
}

// RatioKey is the key under which the bucket's ratio and subcategories are
// stored in a plan's budget preferences.
func (m MainCategory) RatioKey() string {
	if m == Investments {
		return "savings"
	}
	return string(m)
}

func (m MainCategory) Valid() bool {
	return m == Needs || m == Wants || m == Investments
}

// Label is the human form used in messages.
func (m MainCategory) Label() string {
	switch m {
	case Needs:
		return "Needs"
	case Wants:
		return "Wants"
	case Investments:
		return "Investments"
	}
	return string(m)
}

func (m *MainCategory) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return Invalid("main_category", "must be a string")
	}
	parsed, err := ParseMainCategory(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
