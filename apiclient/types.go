package apiclient

import "github.com/cienspay/cienspay-web/session"

// Backend paths, relative to the base URL
const (
	PathLogin      = "/auth/login/"
	PathRegister   = "/auth/register/"
	PathProfile    = "/auth/profile/"
	PathLogout     = "/auth/logout/"
	PathSummary    = "/transactions/summary/"
	PathUsersCards = "/admin/users-cards/"
	PathAdminUser  = "/admin/users/%d/"
	PathCardBal    = "/cards/%d/balance/"
	PathCardToggle = "/cards/%d/toggle/"
	PathCardGen    = "/cards/generate/"
)

// Transaction types as sent by the backend
const (
	TxDeposit    = "DEP"
	TxWithdrawal = "RET"
	TxTransfer   = "TRA"
	TxRefund     = "REE"
)

type LoginResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    session.User `json:"user"`
}

type RegisterRequest struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Password2      string `json:"password2"`
}

type Card struct {
	ID         int64  `json:"id"`
	Number     string `json:"numero_tarjeta"`
	Balance    int64  `json:"saldo"`
	AssignedAt string `json:"fecha_asignacion"`
	ExpiresAt  string `json:"fecha_vencimiento"`
	Active     bool   `json:"activo"`
}

type Transaction struct {
	ID            int64  `json:"id"`
	Type          string `json:"tipo"`
	Amount        int64  `json:"monto"`
	BalanceBefore int64  `json:"saldo_anterior"`
	BalanceAfter  int64  `json:"saldo_posterior"`
	Date          string `json:"fecha_operacion"`
	Description   string `json:"descripcion"`
	Succeeded     bool   `json:"exitoso"`
}

// TypeLabel is the display name of the transaction type
func (t Transaction) TypeLabel() string {
	switch t.Type {
	case TxDeposit:
		return "Depósito"
	case TxWithdrawal:
		return "Retiro"
	case TxTransfer:
		return "Transferencia"
	case TxRefund:
		return "Reembolso"
	}
	return t.Type
}

// Credit reports whether the transaction added money to the card
func (t Transaction) Credit() bool {
	return t.Type == TxDeposit || t.Type == TxRefund
}

type SummaryTotals struct {
	TotalCards        int   `json:"total_cards"`
	TotalTransactions int   `json:"total_transactions"`
	TotalBalance      int64 `json:"total_balance"`
}

type Summary struct {
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"full_name"`
	} `json:"user"`
	Cards        []Card        `json:"cards"`
	Transactions []Transaction `json:"transactions"`
	Totals       SummaryTotals `json:"summary"`
}

type AdminUser struct {
	ID               int64              `json:"id"`
	FullName         string             `json:"full_name"`
	Email            string             `json:"email"`
	DocumentType     string             `json:"document_type"`
	DocumentNumber   string             `json:"document_number"`
	Phone            string             `json:"phone"`
	Status           string             `json:"status"`
	RegistrationDate string             `json:"registration_date"`
	HasCard          bool               `json:"has_card"`
	Balance          session.FlexString `json:"balance"`
	Rol              bool               `json:"rol"`
	CardsCount       int                `json:"cards_count"`
	Cards            []Card             `json:"cards"`
}

// Active reports whether the account status is active
func (u AdminUser) Active() bool {
	return u.Status == "active"
}

type UsersPage struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
	Users    []AdminUser `json:"data"`
}

// Pages returns the number of pages, at least one
func (p UsersPage) Pages() int {
	if p.PageSize <= 0 || p.Total <= p.PageSize {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// ListUsersParams filters the admin user listing. Nil booleans mean "any".
type ListUsersParams struct {
	Page       int
	PageSize   int
	Search     string
	Status     string
	HasCard    *bool
	CardActive *bool
}

// UserPatch carries the fields to change; nil fields are not sent
type UserPatch struct {
	FullName       *string `json:"full_name,omitempty"`
	Email          *string `json:"email,omitempty"`
	DocumentType   *string `json:"document_type,omitempty"`
	DocumentNumber *string `json:"document_number,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Status         *string `json:"status,omitempty"`
	Rol            *bool   `json:"rol,omitempty"`
}

type GenerateCardRequest struct {
	UserID         *int64 `json:"user_id,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	InitialBalance *int64 `json:"saldo_inicial,omitempty"`
}

// CardResult is the response of every card mutation
type CardResult struct {
	Message string `json:"message"`
	Card    Card   `json:"card"`
}
