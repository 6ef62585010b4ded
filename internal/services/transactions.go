package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

const maxDescriptionLength = 200

// TransactionInput describes a spend. Amount is the positive amount spent;
// the ledger stores it negated.
type TransactionInput struct {
	CategoryID    int64           `json:"category_id"`
	Amount        core.Money      `json:"amount"`
	Date          time.Time       `json:"transaction_date"`
	Description   string          `json:"description"`
	PayeeID       int64           `json:"payee_id,omitempty"`
	PayeeName     string          `json:"payee_name,omitempty"`
	Source        core.SourceType `json:"source_type,omitempty"`
	BankReference string          `json:"bank_reference,omitempty"`
	Notes         string          `json:"user_notes,omitempty"`
}

func (in TransactionInput) Validate() error {
	if in.CategoryID <= 0 {
		return core.Invalid("category_id", "is required")
	}
	if !in.Amount.IsPositive() {
		return core.Invalid("amount", "must be greater than zero")
	}
	if len(in.Description) > maxDescriptionLength {
		return core.Invalid("description", "must be at most %d characters", maxDescriptionLength)
	}
	if in.Source != "" && !in.Source.Valid() {
		return core.Invalid("source_type", "unknown source %q", string(in.Source))
	}
	return nil
}

// AddTransaction records a spend and refreshes the category's spent amount
// for the transaction's month.
func (s *LedgerService) AddTransaction(ctx context.Context, planID int64, in TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}
	if in.Source == "" {
		in.Source = core.SourceManual
	}
	p := core.PeriodOf(in.Date)

	var created core.Transaction
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		if err := checkPeriod(plan, p); err != nil {
			return err
		}
		cat, err := q.GetCategory(ctx, plan.ID, in.CategoryID)
		if err != nil {
			return err
		}
		payeeID, err := s.resolvePayee(ctx, q, plan, in)
		if err != nil {
			return err
		}

		row, err := s.recomputeSpent(ctx, q, cat, p)
		if err != nil {
			return err
		}
		if s.config.EnforceSpendingLimit && in.Amount.Cents > row.Available().Cents {
			return &core.OverflowError{
				Scope:        core.ScopeSpending,
				MainCategory: cat.Main,
				Period:       p,
				Limit:        row.Assigned,
				Committed:    row.Spent,
				Allowed:      row.Available(),
				Requested:    in.Amount,
			}
		}

		txn := core.Transaction{
			PlanID:        plan.ID,
			CategoryID:    cat.ID,
			PayeeID:       payeeID,
			Description:   strings.TrimSpace(in.Description),
			Amount:        in.Amount.Neg(),
			Date:          in.Date,
			Source:        in.Source,
			BankReference: strings.TrimSpace(in.BankReference),
			Notes:         strings.TrimSpace(in.Notes),
			CreatedAt:     s.now(),
		}
		if err := txn.Validate(); err != nil {
			return err
		}
		if created, err = q.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		// the row was recomputed above; reread it with the new spend included
		cat, err = q.GetCategory(ctx, plan.ID, cat.ID)
		if err != nil {
			return err
		}
		if _, err := s.recomputeSpent(ctx, q, cat, p); err != nil {
			return err
		}
		if err := s.invalidateFrom(ctx, q, plan, p); err != nil {
			return err
		}
		emit(core.EventTransactionAdded, p)
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Transaction rejected",
			"plan_id", planID, "category_id", in.CategoryID, "amount_cents", in.Amount.Cents, "error", err)
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"plan_id", planID, "transaction_id", created.ID, "category_id", created.CategoryID,
		"amount_cents", created.Amount.Cents, "period", p.String(), "source", string(created.Source))
	return created, nil
}

func (s *LedgerService) resolvePayee(ctx context.Context, q *storage.Queries, plan core.Plan, in TransactionInput) (int64, error) {
	if in.PayeeID > 0 {
		p, err := q.GetPayee(ctx, plan.ID, in.PayeeID)
		if err != nil {
			return 0, err
		}
		return p.ID, nil
	}
	if strings.TrimSpace(in.PayeeName) == "" {
		return 0, nil
	}
	p, _, err := q.EnsurePayee(ctx, plan.ID, in.PayeeName, s.now())
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// DeleteTransaction removes a spend and reverses its effect on the month.
func (s *LedgerService) DeleteTransaction(ctx context.Context, planID, transactionID int64) error {
	err := s.mutate(ctx, planID, func(q *storage.Queries, plan core.Plan, emit emitFunc) error {
		txn, err := q.GetTransaction(ctx, plan.ID, transactionID)
		if err != nil {
			return err
		}
		cat, err := q.GetCategory(ctx, plan.ID, txn.CategoryID)
		if err != nil {
			return err
		}
		if err := q.DeleteTransaction(ctx, plan.ID, txn.ID); err != nil {
			return err
		}
		p := txn.Period()
		if _, err := s.recomputeSpent(ctx, q, cat, p); err != nil {
			return err
		}
		if err := s.invalidateFrom(ctx, q, plan, p); err != nil {
			return err
		}
		emit(core.EventTransactionDeleted, p)
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "plan_id", planID, "transaction_id", transactionID)
	return nil
}

// ListTransactions lists the month's transactions, newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, planID int64, p core.Period) ([]core.Transaction, error) {
	return s.store.Queries().ListTransactions(ctx, planID, p)
}

// ListPayees lists the plan's payees by name.
func (s *LedgerService) ListPayees(ctx context.Context, planID int64) ([]core.Payee, error) {
	return s.store.Queries().ListPayees(ctx, planID)
}

// ApplySuggestion records a receipt categorization as a transaction in the
// category named by the suggestion, under the same rules as AddTransaction.
func (s *LedgerService) ApplySuggestion(ctx context.Context, planID int64, sg core.CategorizationSuggestion) (core.Transaction, error) {
	if err := sg.Validate(); err != nil {
		return core.Transaction{}, err
	}
	cat, err := s.store.Queries().FindCategory(ctx, planID, sg.MainCategory, strings.TrimSpace(sg.Subcategory))
	if err != nil {
		return core.Transaction{}, err
	}
	return s.AddTransaction(ctx, planID, TransactionInput{
		CategoryID:  cat.ID,
		Amount:      sg.Amount,
		Date:        sg.Date,
		Description: sg.Vendor,
		PayeeName:   sg.Vendor,
		Source:      core.SourceReceipt,
		Notes:       sg.Notes,
	})
}
