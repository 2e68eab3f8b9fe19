package domain

import (
	"strings"
	"time"
)

type TransactionType string

const (
	TransactionTransfer TransactionType = "transfer"
	TransactionReferral TransactionType = "referral"
	TransactionPurchase TransactionType = "purchase"
	TransactionReward   TransactionType = "reward"
)

const (
	TransactionStatusCompleted = "completed"

	MaxNoteLength = 200
	HistoryLimit  = 50
)

// Transaction is an immutable record of one coin movement. A nil FromUserID
// means coins entered the system; a nil ToUserID means they left it.
type Transaction struct {
	ID         int64           `db:"id" json:"id"`
	Type       TransactionType `db:"type" json:"type"`
	Amount     int64           `db:"amount" json:"amount"`
	FromUserID *int64          `db:"from_user_id" json:"from_user_id,omitempty"`
	ToUserID   *int64          `db:"to_user_id" json:"to_user_id,omitempty"`
	Note       string          `db:"note" json:"note,omitempty"`
	Status     string          `db:"status" json:"status"`
	Reference  string          `db:"reference" json:"reference"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return NewValidationError("amount", "must be a positive integer")
	}
	return nil
}

// NormalizeNote trims the note and enforces the length limit.
func NormalizeNote(note string) (string, error) {
	note = strings.TrimSpace(note)
	if len([]rune(note)) > MaxNoteLength {
		return "", NewValidationError("note", "must be at most 200 characters")
	}
	return note, nil
}

// TransactionView is a transaction as seen by one of its parties.
type TransactionView struct {
	Transaction
	// SignedAmount is negative when coins left the viewer's balance.
	SignedAmount      int64  `json:"signed_amount"`
	Direction         string `json:"direction"`
	CounterpartyEmail string `json:"counterparty_email,omitempty"`
	CounterpartyName  string `json:"counterparty_name,omitempty"`
}

// ViewFor builds the viewer-relative projection of t.
func (t *Transaction) ViewFor(viewerID int64, counterpartyEmail, counterpartyName string) TransactionView {
	v := TransactionView{
		Transaction:       *t,
		SignedAmount:      t.Amount,
		Direction:         "in",
		CounterpartyEmail: counterpartyEmail,
		CounterpartyName:  counterpartyName,
	}
	if t.FromUserID != nil && *t.FromUserID == viewerID {
		v.SignedAmount = -t.Amount
		v.Direction = "out"
	}
	return v
}

// Net returns the balance effect of t on userID.
func (t *Transaction) Net(userID int64) int64 {
	var n int64
	if t.ToUserID != nil && *t.ToUserID == userID {
		n += t.Amount
	}
	if t.FromUserID != nil && *t.FromUserID == userID {
		n -= t.Amount
	}
	return n
}
