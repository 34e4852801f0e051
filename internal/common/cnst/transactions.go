package cnst

// BizPoints transaction types. The sign of a ledger entry's amount is
// derived from the type, never supplied by callers.
const (
	TxAdminCredit        = "ADMIN_CREDIT"
	TxAdminDebit         = "ADMIN_DEBIT"
	TxBonus              = "BONUS"
	TxSettlementWithdraw = "SETTLEMENT_WITHDRAW"
)

// IsDebitType reports whether a transaction type subtracts from the balance.
func IsDebitType(txType string) bool {
	return txType == TxAdminDebit || txType == TxSettlementWithdraw
}

// ValidTransactionType reports whether a transaction type is one of the
// enumerated kinds.
func ValidTransactionType(txType string) bool {
	switch txType {
	case TxAdminCredit, TxAdminDebit, TxBonus, TxSettlementWithdraw:
		return true
	default:
		return false
	}
}
