package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestTransactionBalanceEffect(t *testing.T) {
	scoutID := uuid.New()
	amount := MoneyFromInt(40)

	tests := []struct {
		name string
		tx   Transaction
		want string
	}{
		{name: "deposit credits", tx: Transaction{Type: TxIBADeposit, Status: StatusApproved, ScoutID: &scoutID, Amount: amount}, want: "40.00"},
		{name: "fundraising income credits", tx: Transaction{Type: TxFundraisingIncome, Status: StatusApproved, ScoutID: &scoutID, Amount: amount}, want: "40.00"},
		{name: "camp transfer debits", tx: Transaction{Type: TxCampTransfer, Status: StatusApproved, ScoutID: &scoutID, Amount: amount}, want: "-40.00"},
		{name: "dues paid from iba debit", tx: Transaction{Type: TxDues, Status: StatusApproved, ScoutID: &scoutID, Amount: amount, PaidFromIBA: true}, want: "-40.00"},
		{name: "dues paid in cash leave balance", tx: Transaction{Type: TxDues, Status: StatusApproved, ScoutID: &scoutID, Amount: amount}, want: "0.00"},
		{name: "pending deposit has no effect", tx: Transaction{Type: TxIBADeposit, Status: StatusPending, ScoutID: &scoutID, Amount: amount}, want: "0.00"},
		{name: "rejected transfer has no effect", tx: Transaction{Type: TxCampTransfer, Status: StatusRejected, ScoutID: &scoutID, Amount: amount}, want: "0.00"},
		{name: "deposit without scout has no effect", tx: Transaction{Type: TxIBADeposit, Status: StatusApproved, Amount: amount}, want: "0.00"},
		{name: "expense never touches a balance", tx: Transaction{Type: TxExpense, Status: StatusApproved, ScoutID: &scoutID, Amount: amount}, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tx.BalanceEffect()
			if got.String() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTransactionPaymentContribution(t *testing.T) {
	amount := MoneyFromInt(25)
	tests := []struct {
		name string
		tx   Transaction
		want string
	}{
		{name: "registration income counts", tx: Transaction{Type: TxRegistrationIncome, Status: StatusApproved, Amount: amount}, want: "25.00"},
		{name: "troop subsidy counts", tx: Transaction{Type: TxTroopPayment, Status: StatusApproved, Amount: amount}, want: "25.00"},
		{name: "cash refund subtracts", tx: Transaction{Type: TxExpense, Status: StatusApproved, Amount: amount, IsRefund: true}, want: "-25.00"},
		{name: "iba refund subtracts", tx: Transaction{Type: TxIBADeposit, Status: StatusApproved, Amount: amount, IsRefund: true}, want: "-25.00"},
		{name: "plain expense ignored", tx: Transaction{Type: TxExpense, Status: StatusApproved, Amount: amount}, want: "0.00"},
		{name: "pending payment ignored", tx: Transaction{Type: TxEventPayment, Status: StatusPending, Amount: amount}, want: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tx.PaymentContribution()
			if got.String() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRecordTransactionRequestValidate(t *testing.T) {
	scoutID := uuid.New()
	tests := []struct {
		name      string
		req       RecordTransactionRequest
		wantField string
	}{
		{name: "valid deposit", req: RecordTransactionRequest{Type: TxIBADeposit, Amount: MoneyFromInt(5), Description: "popcorn", ScoutID: &scoutID}},
		{name: "unknown type", req: RecordTransactionRequest{Type: "GIFT", Amount: MoneyFromInt(5), Description: "x"}, wantField: "type"},
		{name: "zero amount", req: RecordTransactionRequest{Type: TxExpense, Amount: Zero, Description: "x"}, wantField: "amount"},
		{name: "missing description", req: RecordTransactionRequest{Type: TxExpense, Amount: MoneyFromInt(1), Description: " "}, wantField: "description"},
		{name: "iba payment on non dues", req: RecordTransactionRequest{Type: TxExpense, Amount: MoneyFromInt(1), Description: "x", PaidFromIBA: true, ScoutID: &scoutID}, wantField: "paid_from_iba"},
		{name: "iba dues without scout", req: RecordTransactionRequest{Type: TxDues, Amount: MoneyFromInt(1), Description: "x", PaidFromIBA: true}, wantField: "scout_id"},
		{name: "custom troop type accepted", req: RecordTransactionRequest{Type: "TROOP_INCENTIVE", Amount: MoneyFromInt(1), Description: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantField {
				t.Fatalf("expected field %q, got %q", tt.wantField, vErr.Field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected error to wrap ErrValidation")
			}
		})
	}
}
