package http

import (
	"net/http"

	"budgeting/internal/core"
	"budgeting/internal/log"
	"budgeting/internal/services"
)

type assignRequest struct {
	Amount core.Money `json:"amount"`
}

// transactionRequest carries the date as YYYY-MM-DD.
type transactionRequest struct {
	CategoryID    int64           `json:"category_id"`
	Amount        core.Money      `json:"amount"`
	Date          string          `json:"transaction_date"`
	Description   string          `json:"description"`
	PayeeID       int64           `json:"payee_id,omitempty"`
	PayeeName     string          `json:"payee_name,omitempty"`
	Source        core.SourceType `json:"source_type,omitempty"`
	BankReference string          `json:"bank_reference,omitempty"`
	Notes         string          `json:"user_notes,omitempty"`
}

type suggestionRequest struct {
	Vendor       string            `json:"vendor"`
	Amount       core.Money        `json:"amount"`
	Date         string            `json:"date"`
	MainCategory core.MainCategory `json:"main_category"`
	Subcategory  string            `json:"subcategory"`
	Notes        string            `json:"notes,omitempty"`
}

type incomeRequest struct {
	Year        int        `json:"year"`
	Month       int        `json:"month"`
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpRead)
	if !ok {
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		writeRequestError(w, r, log.OpRead, plan.ID, err)
		return
	}
	summary, err := s.ledger.MonthSummary(r.Context(), plan.ID, p)
	if err != nil {
		writeLedgerError(w, r, log.OpRead, plan.ID, p.String(), err)
		return
	}
	NewResponse().JSON(summary).Write(w)
}

func (s *Server) handleAssignAmount(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpAssign)
	if !ok {
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		writeRequestError(w, r, log.OpAssign, plan.ID, err)
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		writeRequestError(w, r, log.OpAssign, plan.ID, err)
		return
	}
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpAssign, plan.ID, err)
		return
	}

	summary, err := s.ledger.AssignAmount(r.Context(), plan.ID, categoryID, p, req.Amount)
	if err != nil {
		writeLedgerError(w, r, log.OpAssign, plan.ID, p.String(), err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Amount assigned",
		log.FieldPlanID, plan.ID, log.FieldCategoryID, categoryID,
		log.FieldPeriod, p.String(), log.FieldAmountCents, req.Amount.Cents)
	NewResponse().JSON(summary).Write(w)
}

func (s *Server) handleListRollovers(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpList)
	if !ok {
		return
	}
	rollovers, err := s.ledger.Rollovers(r.Context(), plan.ID)
	if err != nil {
		writeLedgerError(w, r, log.OpList, plan.ID, "", err)
		return
	}
	if rollovers == nil {
		rollovers = []core.MonthlyRollover{}
	}
	NewResponse().JSON(rollovers).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpList)
	if !ok {
		return
	}
	p, err := queryPeriod(r, s.now())
	if err != nil {
		writeRequestError(w, r, log.OpList, plan.ID, err)
		return
	}
	txns, err := s.ledger.ListTransactions(r.Context(), plan.ID, p)
	if err != nil {
		writeLedgerError(w, r, log.OpList, plan.ID, p.String(), err)
		return
	}
	if txns == nil {
		txns = []core.Transaction{}
	}
	NewResponse().JSON(txns).Write(w)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpCreate)
	if !ok {
		return
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpCreate, plan.ID, err)
		return
	}
	date, err := parseDate("transaction_date", req.Date, s.now())
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, plan.ID, "", err)
		return
	}

	txn, err := s.ledger.AddTransaction(r.Context(), plan.ID, services.TransactionInput{
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		Date:          date,
		Description:   sanitizeInput(req.Description),
		PayeeID:       req.PayeeID,
		PayeeName:     sanitizeInput(req.PayeeName),
		Source:        req.Source,
		BankReference: sanitizeInput(req.BankReference),
		Notes:         sanitizeInput(req.Notes),
	})
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, plan.ID, core.PeriodOf(date).String(), err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(txn).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpDelete)
	if !ok {
		return
	}
	transactionID, err := pathID(r, "transactionID")
	if err != nil {
		writeRequestError(w, r, log.OpDelete, plan.ID, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), plan.ID, transactionID); err != nil {
		writeLedgerError(w, r, log.OpDelete, plan.ID, "", err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpCreate)
	if !ok {
		return
	}
	var req suggestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpCreate, plan.ID, err)
		return
	}
	date, err := parseDate("date", req.Date, s.now())
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, plan.ID, "", err)
		return
	}

	txn, err := s.ledger.ApplySuggestion(r.Context(), plan.ID, core.CategorizationSuggestion{
		Vendor:       sanitizeInput(req.Vendor),
		Amount:       req.Amount,
		Date:         date,
		MainCategory: req.MainCategory,
		Subcategory:  sanitizeInput(req.Subcategory),
		Notes:        sanitizeInput(req.Notes),
	})
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, plan.ID, core.PeriodOf(date).String(), err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(txn).Write(w)
}

func (s *Server) handleListPayees(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpList)
	if !ok {
		return
	}
	payees, err := s.ledger.ListPayees(r.Context(), plan.ID)
	if err != nil {
		writeLedgerError(w, r, log.OpList, plan.ID, "", err)
		return
	}
	if payees == nil {
		payees = []core.Payee{}
	}
	NewResponse().JSON(payees).Write(w)
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpList)
	if !ok {
		return
	}
	p, err := queryPeriod(r, s.now())
	if err != nil {
		writeRequestError(w, r, log.OpList, plan.ID, err)
		return
	}
	incomes, err := s.ledger.ListIncome(r.Context(), plan.ID, p)
	if err != nil {
		writeLedgerError(w, r, log.OpList, plan.ID, p.String(), err)
		return
	}
	if incomes == nil {
		incomes = []core.AdditionalIncome{}
	}
	NewResponse().JSON(incomes).Write(w)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpCreate)
	if !ok {
		return
	}
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeRequestError(w, r, log.OpCreate, plan.ID, err)
		return
	}
	p := core.PeriodOf(s.now())
	if req.Year != 0 || req.Month != 0 {
		var err error
		if p, err = core.NewPeriod(req.Year, req.Month); err != nil {
			writeLedgerError(w, r, log.OpCreate, plan.ID, "", err)
			return
		}
	}

	income, err := s.ledger.AddIncome(r.Context(), plan.ID, p, req.Amount, sanitizeInput(req.Description))
	if err != nil {
		writeLedgerError(w, r, log.OpCreate, plan.ID, p.String(), err)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(income).Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	plan, ok := s.ownedPlan(w, r, log.OpDelete)
	if !ok {
		return
	}
	incomeID, err := pathID(r, "incomeID")
	if err != nil {
		writeRequestError(w, r, log.OpDelete, plan.ID, err)
		return
	}
	if err := s.ledger.DeleteIncome(r.Context(), plan.ID, incomeID); err != nil {
		writeLedgerError(w, r, log.OpDelete, plan.ID, "", err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Write(w)
}
