package ledger

import (
	"sort"
	"strings"

	"github.com/robinvdvleuten/beancount/ast"
	"github.com/shopspring/decimal"
)

// Account represents an account in the ledger
type Account struct {
	Name                 ast.Account
	Type                 ast.AccountType
	OpenDate             *ast.Date
	CloseDate            *ast.Date
	ConstraintCurrencies []string
	BookingMethod        string
	Metadata             []*ast.Metadata
	Inventory            *Inventory // Inventory with lot tracking
	Postings             []*AccountPosting
}

// AccountPosting records a single posting against this account together with
// the transaction it belongs to, in application order.
type AccountPosting struct {
	Transaction *ast.Transaction
	Posting     *ast.Posting
}

// GetPostingsBefore returns postings recorded strictly before the given date.
func (a *Account) GetPostingsBefore(date *ast.Date) []*AccountPosting {
	var result []*AccountPosting
	for _, p := range a.Postings {
		if p.Transaction.Date.Time.Before(date.Time) {
			result = append(result, p)
		}
	}
	return result
}

// GetPostingsInPeriod returns postings recorded within [start, end] inclusive.
func (a *Account) GetPostingsInPeriod(start, end *ast.Date) []*AccountPosting {
	var result []*AccountPosting
	for _, p := range a.Postings {
		txnDate := p.Transaction.Date.Time
		if txnDate.Before(start.Time) || txnDate.After(end.Time) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// ParseAccountType classifies an account by its leading segment (Assets,
// Liabilities, Equity, Income, Expenses). The segment names are fixed by the
// grammar regardless of any configured display root names.
func ParseAccountType(account ast.Account) ast.AccountType {
	parts := strings.SplitN(string(account), ":", 2)
	switch parts[0] {
	case "Liabilities":
		return ast.AccountTypeLiabilities
	case "Equity":
		return ast.AccountTypeEquity
	case "Income":
		return ast.AccountTypeIncome
	case "Expenses":
		return ast.AccountTypeExpenses
	default:
		return ast.AccountTypeAssets
	}
}

// IsOpen returns true if the account is open at the given date
func (a *Account) IsOpen(date *ast.Date) bool {
	if a.OpenDate == nil {
		return false
	}

	// Account must be opened before or on the date
	if a.OpenDate.After(date.Time) {
		return false
	}

	// If there's a close date, check that the date is not after closing
	// Transactions are allowed ON the close date, but not AFTER
	if a.CloseDate != nil && date.After(a.CloseDate.Time) {
		return false
	}

	return true
}

// IsClosed returns true if the account has been closed
func (a *Account) IsClosed() bool {
	return a.CloseDate != nil
}

// HasMetadata returns true if the account has metadata
func (a *Account) HasMetadata() bool {
	return len(a.Metadata) > 0
}

// GetParent returns the parent account path.
// For example, GetParent("Assets:US:Checking") returns "Assets:US".
// Returns empty string if the account has no parent (only one segment).
func (a *Account) GetParent() string {
	parts := strings.Split(string(a.Name), ":")
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], ":")
}

// GetBalance returns the balance for this account (not including children).
// Returns a map of commodity to decimal amount.
func (a *Account) GetBalance() map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal)
	for _, currency := range a.Inventory.Currencies() {
		result[currency] = a.Inventory.Get(currency)
	}
	return result
}

// GetChildren returns direct child accounts.
// For example, if this account is "Assets", returns child accounts like "Assets:US" and "Assets:Investments".
func (a *Account) GetChildren(l *Ledger) []*Account {
	parentPath := string(a.Name)
	prefix := parentPath + ":"
	seen := make(map[string]bool)
	var childPaths []string

	accounts := l.Accounts()
	for accountName := range accounts {
		if strings.HasPrefix(accountName, prefix) {
			remainder := strings.TrimPrefix(accountName, prefix)
			// Extract only the first segment (direct child)
			firstSegment := strings.Split(remainder, ":")[0]
			childPath := parentPath + ":" + firstSegment

			if !seen[childPath] {
				childPaths = append(childPaths, childPath)
				seen[childPath] = true
			}
		}
	}

	// Return Account structs, sorted by name
	sort.Strings(childPaths)
	var children []*Account
	for _, path := range childPaths {
		if child, ok := accounts[path]; ok {
			children = append(children, child)
		}
	}
	return children
}

// GetBalanceInPeriod returns the net balance contributed by postings recorded
// within [start, end] inclusive.
func (a *Account) GetBalanceInPeriod(start, end ast.Date) *Balance {
	balance := NewBalance()
	for _, p := range a.GetPostingsInPeriod(&start, &end) {
		if p.Posting.Amount == nil {
			continue
		}
		amount, err := ParseAmount(p.Posting.Amount)
		if err != nil {
			continue
		}
		balance.Add(p.Posting.Amount.Currency, amount)
	}
	return balance
}

// GetSubtreeBalance returns the aggregated balance for this account and all its descendants.
// Useful for balance sheet reporting where parent balances sum their children.
// Returns a map of commodity to total decimal amount.
func (a *Account) GetSubtreeBalance(l *Ledger) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal)

	// Add this account's direct balance
	for currency, amount := range a.GetBalance() {
		result[currency] = amount
	}

	// Add all descendants recursively
	a.addDescendantBalances(l, result)
	return result
}

// addDescendantBalances recursively accumulates balances from all descendant accounts.
func (a *Account) addDescendantBalances(l *Ledger, result map[string]decimal.Decimal) {
	for _, child := range a.GetChildren(l) {
		// Add child's direct balance
		for currency, amount := range child.GetBalance() {
			result[currency] = result[currency].Add(amount)
		}
		// Recursively add child's descendants
		child.addDescendantBalances(l, result)
	}
}
