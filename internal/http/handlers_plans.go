package http

import (
	"net/http"
	"strconv"

	"budgeting/internal/core"
	"budgeting/internal/log"
	"budgeting/internal/services"
)

type createPlanRequest struct {
	Name          string          `json:"name"`
	MonthlyIncome core.Money      `json:"monthly_income"`
	BudgetPref    core.BudgetPref `json:"budget_pref"`
	Start         *core.Period    `json:"start,omitempty"`
}

type renamePlanRequest struct {
	Name string `json:"name"`
}

type updateRatiosRequest struct {
	Ratios core.Ratios `json:"ratios"`
}

type subcategoryRequest struct {
	MainCategory core.MainCategory `json:"main_category"`
	Name         string            `json:"name"`
}

type createCategoryRequest struct {
	Name         string            `json:"name"`
	MainCategory core.MainCategory `json:"main_category"`
	Icon         string            `json:"icon,omitempty"`
}

// ownedPlan resolves {planID} and checks it belongs to the caller. It writes
// the error response itself and reports whether the handler may continue.
func (s *Server) ownedPlan(w http.ResponseWriter, r *http.Request, op string) (core.Plan, bool) {
	planID, err := pathID(r, "planID")
	if err != nil {
		writeRequestError(w, r, op, 0, err)
		return core.Plan{}, false
	}
	plan, err := s.ledger.PlanForUser(r.Context(), userFrom(r.Context()), planID)
	if err != nil {
		writeLedgerError(w, r, op, planID, "", err)
		return core.Plan{}, false
	}
	return plan, true
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.ledger.ListPlans(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeLedgerError(w, r, log.OpList, 0, "", err)
		return
	}
	if plans == nil {
		plans = []core.Plan{}
	}
	NewResponse().JSON(plans).Write(w)
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpCreate, 0, err)
		return
	}
	plan, err := s.ledger.CreatePlan(r.Context(), userFrom(r.Context()), services.PlanInput{
		Name:          sanitizeInput(req.Name),
		MonthlyIncome: req.MonthlyIncome,
		Pref:          req.BudgetPref,
		Start:         req.Start,
	})
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, 0, "", err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/plans/"+strconv.FormatInt(plan.ID, 10)).
		JSON(plan).
		Write(w)
}

func (s *Server) handleActivePlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.ledger.ActivePlan(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeLedgerError(w, r, log.OpRead, 0, "", err)
		return
	}
	NewResponse().JSON(plan).Write(w)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpRead)
	if !ok {
		return
	}
	NewResponse().JSON(plan).Write(w)
}

func (s *Server) handleSwitchPlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpUpdate)
	if !ok {
		return
	}
	active, err := s.ledger.SwitchPlan(r.Context(), userFrom(r.Context()), plan.ID)
	if err != nil {
		writeLedgerError(w, r, log.OpUpdate, plan.ID, "", err)
		return
	}
	NewResponse().JSON(active).Write(w)
}

func (s *Server) handleRenamePlan(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpUpdate)
	if !ok {
		return
	}
	var req renamePlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpUpdate, plan.ID, err)
		return
	}
	updated, err := s.ledger.RenamePlan(r.Context(), plan.ID, sanitizeInput(req.Name))
	if err != nil {
		writeLedgerError(w, r, log.OpUpdate, plan.ID, "", err)
		return
	}
	NewResponse().JSON(updated).Write(w)
}

func (s *Server) handleUpdateRatios(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpUpdate)
	if !ok {
		return
	}
	var req updateRatiosRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpUpdate, plan.ID, err)
		return
	}
	updated, err := s.ledger.UpdateRatios(r.Context(), plan.ID, req.Ratios)
	if err != nil {
		writeLedgerError(w, r, log.OpUpdate, plan.ID, "", err)
		return
	}
	NewResponse().JSON(updated).Write(w)
}

func (s *Server) handleAddSubcategory(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpCreate)
	if !ok {
		return
	}
	var req subcategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpCreate, plan.ID, err)
		return
	}
	updated, err := s.ledger.AddSubcategory(r.Context(), plan.ID, req.MainCategory, sanitizeInput(req.Name))
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, plan.ID, "", err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(updated).Write(w)
}

func (s *Server) handleRemoveSubcategory(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpDelete)
	if !ok {
		return
	}
	main, err := core.ParseMainCategory(r.PathValue("main"))
	if err != nil {
		writeLedgerError(w, r, log.OpDelete, plan.ID, "", err)
		return
	}
	updated, err := s.ledger.RemoveSubcategory(r.Context(), plan.ID, main, r.PathValue("name"))
	if err != nil {
		writeLedgerError(w, r, log.OpDelete, plan.ID, "", err)
		return
	}
	NewResponse().JSON(updated).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpList)
	if !ok {
		return
	}
	cats, err := s.ledger.ListCategories(r.Context(), plan.ID)
	if err != nil {
		writeLedgerError(w, r, log.OpList, plan.ID, "", err)
		return
	}
	if cats == nil {
		cats = []core.BudgetCategory{}
	}
	NewResponse().JSON(cats).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpCreate)
	if !ok {
		return
	}
	var req createCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpCreate, plan.ID, err)
		return
	}
	cat, err := s.ledger.CreateCategory(r.Context(), plan.ID, sanitizeInput(req.Name), req.MainCategory, sanitizeInput(req.Icon))
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, plan.ID, "", err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(cat).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpDelete)
	if !ok {
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		writeRequestError(w, r, log.OpDelete, plan.ID, err)
		return
	}
	if err := s.ledger.DeleteCategory(r.Context(), plan.ID, categoryID); err != nil {
		writeLedgerError(w, r, log.OpDelete, plan.ID, "", err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
