package core

import "github.com/shopspring/decimal"

// CategoryLine is one category's state in a month.
type CategoryLine struct {
	CategoryID int64        `json:"category_id"`
	Name       string       `json:"name"`
	Icon       string       `json:"icon"`
	Main       MainCategory `json:"main_category"`
	Assigned   Money        `json:"assigned"`
	Spent      Money        `json:"spent"`
	Available  Money        `json:"available"`
}

// MainCategoryGroup aggregates the categories of one bucket.
type MainCategoryGroup struct {
	Main       MainCategory    `json:"main_category"`
	Ratio      decimal.Decimal `json:"ratio"`
	Ceiling    Money           `json:"ceiling"`
	Assigned   Money           `json:"assigned"`
	Spent      Money           `json:"spent"`
	Available  Money           `json:"available"`
	Unassigned Money           `json:"unassigned"`
	Categories []CategoryLine  `json:"categories"`
}

// MonthSummary is the read model of a plan for one month.
type MonthSummary struct {
	PlanID                 int64               `json:"plan_id"`
	PlanName               string              `json:"plan_name"`
	Period                 Period              `json:"period"`
	MonthlyIncome          Money               `json:"monthly_income"`
	AdditionalIncome       Money               `json:"additional_income"`
	Rollover               Money               `json:"rollover"`
	MoneyToAssign          Money               `json:"money_to_assign"`
	TotalAssigned          Money               `json:"total_assigned"`
	TotalSpent             Money               `json:"total_spent"`
	MoneyRemainingToAssign Money               `json:"money_remaining_to_assign"`
	Groups                 []MainCategoryGroup `json:"groups"`
	TopSpending            []CategoryLine      `json:"top_spending"`
	CanGoPrev              bool                `json:"can_go_prev"`
	Prev                   Period              `json:"prev"`
	Next                   Period              `json:"next"`
}

// Group returns the aggregate of bucket m.
func (s MonthSummary) Group(m MainCategory) (MainCategoryGroup, bool) {
	for _, g := range s.Groups {
		if g.Main == m {
			return g, true
		}
	}
	return MainCategoryGroup{}, false
}

// Line returns the line of category id.
func (s MonthSummary) Line(id int64) (CategoryLine, bool) {
	for _, g := range s.Groups {
		for _, l := range g.Categories {
			if l.CategoryID == id {
				return l, true
			}
		}
	}
	return CategoryLine{}, false
}
