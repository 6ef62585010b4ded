package services

import (
	"context"
	"log/slog"
	"strings"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// PlanInput describes a new plan. Start defaults to the current month.
type PlanInput struct {
	Name          string          `json:"name"`
	MonthlyIncome core.Money      `json:"monthly_income"`
	Pref          core.BudgetPref `json:"budget_pref"`
	Start         *core.Period    `json:"start,omitempty"`
}

// CreatePlan creates a plan with one category per listed subcategory and
// makes it the user's active plan.
func (s *LedgerService) CreatePlan(ctx context.Context, userID string, in PlanInput) (core.Plan, error) {
	plan := core.Plan{
		UserID:        strings.TrimSpace(userID),
		Name:          strings.TrimSpace(in.Name),
		MonthlyIncome: in.MonthlyIncome,
		Pref:          in.Pref.Clone(),
		Start:         s.currentPeriod(),
		CreatedAt:     s.now(),
	}
	if in.Start != nil {
		if _, err := core.NewPeriod(in.Start.Year, int(in.Start.Month)); err != nil {
			return core.Plan{}, err
		}
		plan.Start = *in.Start
	}
	for m, names := range plan.Pref.Subcategories {
		for i, name := range names {
			plan.Pref.Subcategories[m][i] = strings.TrimSpace(name)
		}
	}
	if err := plan.Validate(); err != nil {
		return core.Plan{}, err
	}

	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if plan, err = q.CreatePlan(ctx, plan); err != nil {
			return err
		}
		for _, m := range core.MainCategories() {
			for _, name := range plan.Pref.Subcategories[m] {
				_, err := q.CreateCategory(ctx, core.BudgetCategory{
					PlanID:    plan.ID,
					Name:      name,
					Main:      m,
					Icon:      core.DefaultCategoryIcon,
					CreatedAt: s.now(),
				})
				if err != nil {
					return err
				}
			}
		}
		if err := q.SetActivePlan(ctx, plan.UserID, plan.ID, s.now()); err != nil {
			return err
		}
		return s.enqueue(ctx, q, []core.LedgerEvent{s.newEvent(plan.ID, core.EventPlanCreated, plan.Start)})
	})
	if err != nil {
		return core.Plan{}, err
	}

	slog.InfoContext(ctx, "Plan created",
		"plan_id", plan.ID, "user_id", plan.UserID, "start", plan.Start.String(),
		"monthly_income_cents", plan.MonthlyIncome.Cents)
	return plan, nil
}

// GetPlan returns a plan by ID, without ownership checks.
func (s *LedgerService) GetPlan(ctx context.Context, planID int64) (core.Plan, error) {
	return s.store.Queries().GetPlan(ctx, planID)
}

// PlanForUser returns the plan when it belongs to userID. Foreign plans are
// reported as not found.
func (s *LedgerService) PlanForUser(ctx context.Context, userID string, planID int64) (core.Plan, error) {
	plan, err := s.store.Queries().GetPlan(ctx, planID)
	if err != nil {
		return core.Plan{}, err
	}
	if plan.UserID != userID {
		return core.Plan{}, core.NotFound("plan", planID)
	}
	return plan, nil
}

func (s *LedgerService) ListPlans(ctx context.Context, userID string) ([]core.Plan, error) {
	return s.store.Queries().ListPlansByUser(ctx, userID)
}

// ListAllPlans returns every plan in the ledger.
func (s *LedgerService) ListAllPlans(ctx context.Context) ([]core.Plan, error) {
	return s.store.Queries().ListPlans(ctx)
}

// ActivePlan returns the user's active plan.
func (s *LedgerService) ActivePlan(ctx context.Context, userID string) (core.Plan, error) {
	id, err := s.store.Queries().ActivePlanID(ctx, userID)
	if err != nil {
		return core.Plan{}, err
	}
	return s.PlanForUser(ctx, userID, id)
}

// SwitchPlan makes one of the user's plans the active one.
func (s *LedgerService) SwitchPlan(ctx context.Context, userID string, planID int64) (core.Plan, error) {
	plan, err := s.PlanForUser(ctx, userID, planID)
	if err != nil {
		return core.Plan{}, err
	}
	if err := s.store.Queries().SetActivePlan(ctx, userID, plan.ID, s.now()); err != nil {
		return core.Plan{}, err
	}
	slog.InfoContext(ctx, "Active plan switched", "user_id", userID, "plan_id", plan.ID)
	return plan, nil
}

func (s *LedgerService) RenamePlan(ctx context.Context, planID int64, name string) (core.Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Plan{}, core.Invalid("name", "plan name cannot be blank")
	}
	var updated core.Plan
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		if err := q.UpdatePlanName(ctx, plan.ID, name); err != nil {
			return err
		}
		plan.Name = name
		updated = plan
		emit(core.EventPlanUpdated, s.currentPeriod())
		return nil
	})
	return updated, err
}

// AddSubcategory lists a new subcategory under main and creates its category.
func (s *LedgerService) AddSubcategory(ctx context.Context, planID int64, main core.MainCategory, name string) (core.Plan, error) {
	name = strings.TrimSpace(name)
	var updated core.Plan
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		pref, err := plan.Pref.WithSubcategory(main, name)
		if err != nil {
			return err
		}
		if err := q.UpdatePlanPref(ctx, plan.ID, pref); err != nil {
			return err
		}
		if _, err := q.FindCategory(ctx, plan.ID, main, name); err != nil {
			if !isNotFound(err) {
				return err
			}
			if _, err := q.CreateCategory(ctx, core.BudgetCategory{
				PlanID: plan.ID, Name: name, Main: main, Icon: core.DefaultCategoryIcon, CreatedAt: s.now(),
			}); err != nil {
				return err
			}
			emit(core.EventCategoryCreated, s.currentPeriod())
		}
		plan.Pref = pref
		updated = plan
		emit(core.EventPlanUpdated, s.currentPeriod())
		return nil
	})
	return updated, err
}

// RemoveSubcategory drops a subcategory from the plan's preferences. Its
// category and history stay until deleted explicitly.
func (s *LedgerService) RemoveSubcategory(ctx context.Context, planID int64, main core.MainCategory, name string) (core.Plan, error) {
	var updated core.Plan
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		pref, err := plan.Pref.WithoutSubcategory(main, name)
		if err != nil {
			return err
		}
		if err := q.UpdatePlanPref(ctx, plan.ID, pref); err != nil {
			return err
		}
		plan.Pref = pref
		updated = plan
		emit(core.EventPlanUpdated, s.currentPeriod())
		return nil
	})
	return updated, err
}

// CreateCategory adds a category under main. An empty icon gets the default.
func (s *LedgerService) CreateCategory(ctx context.Context, planID int64, name string, main core.MainCategory, icon string) (core.BudgetCategory, error) {
	cat := core.BudgetCategory{
		PlanID: planID,
		Name:   strings.TrimSpace(name),
		Main:   main,
		Icon:   strings.TrimSpace(icon),
	}
	if cat.Icon == "" {
		cat.Icon = core.DefaultCategoryIcon
	}
	if err := cat.Validate(); err != nil {
		return core.BudgetCategory{}, err
	}

	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		cat.CreatedAt = s.now()
		var err error
		if cat, err = q.CreateCategory(ctx, cat); err != nil {
			return err
		}
		emit(core.EventCategoryCreated, s.currentPeriod())
		return nil
	})
	if err != nil {
		return core.BudgetCategory{}, err
	}
	slog.InfoContext(ctx, "Category created",
		"plan_id", planID, "category_id", cat.ID, "main_category", string(cat.Main))
	return cat, nil
}

// DeleteCategory removes a category together with its monthly rows and
// transactions. Leftovers frozen since its first transaction are discarded.
func (s *LedgerService) DeleteCategory(ctx context.Context, planID, categoryID int64) error {
	return s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		cat, err := q.GetCategory(ctx, plan.ID, categoryID)
		if err != nil {
			return err
		}
		first, ok, err := q.EarliestTransactionPeriod(ctx, cat.ID)
		if err != nil {
			return err
		}
		if err := q.DeleteCategory(ctx, plan.ID, cat.ID); err != nil {
			return err
		}
		if ok {
			if err := s.invalidateFrom(ctx, q, plan, first); err != nil {
				return err
			}
		}
		emit(core.EventCategoryDeleted, s.currentPeriod())
		return nil
	})
}

func (s *LedgerService) ListCategories(ctx context.Context, planID int64) ([]core.BudgetCategory, error) {
	return s.store.Queries().ListCategories(ctx, planID)
}
