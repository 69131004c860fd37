package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/robinvdvleuten/beancount/ast"
	"github.com/robinvdvleuten/beancount/formatter"
)

// Error types for ledger validation errors. Every error carries a stable
// diagnostic code and severity so callers (the CLI, the web UI, JSON
// reporters) can classify and filter them uniformly, alongside a
// human-readable message.

// Severity distinguishes fatal validation errors from advisory warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// AccountNotOpenError is returned when a directive references an account that hasn't been opened.
type AccountNotOpenError struct {
	Account   ast.Account
	Date      *ast.Date
	Pos       ast.Position
	Directive ast.Directive // the directive that referenced the unopened account
}

func (e *AccountNotOpenError) Code() string     { return "E0001" }
func (e *AccountNotOpenError) Severity() Severity { return SeverityError }

func (e *AccountNotOpenError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = e.Date.Format("2006-01-02")
	}

	return fmt.Sprintf("%s: Invalid reference to unknown account '%s'", location, e.Account)
}

// NewAccountNotOpenError builds an AccountNotOpenError for a posting whose
// account has no matching open directive.
func NewAccountNotOpenError(txn *ast.Transaction, account ast.Account) *AccountNotOpenError {
	return &AccountNotOpenError{
		Account:   account,
		Date:      txn.Date,
		Pos:       txn.Pos,
		Directive: txn,
	}
}

// NewAccountNotOpenErrorFromBalance builds an AccountNotOpenError for a
// balance directive referencing an unopened account.
func NewAccountNotOpenErrorFromBalance(balance *ast.Balance) *AccountNotOpenError {
	return &AccountNotOpenError{
		Account:   balance.Account,
		Date:      balance.Date,
		Pos:       balance.Pos,
		Directive: balance,
	}
}

// NewAccountNotOpenErrorFromPad builds an AccountNotOpenError for a pad
// directive referencing an unopened account (either the padded account or
// the padding source).
func NewAccountNotOpenErrorFromPad(pad *ast.Pad, account ast.Account) *AccountNotOpenError {
	return &AccountNotOpenError{
		Account:   account,
		Date:      pad.Date,
		Pos:       pad.Pos,
		Directive: pad,
	}
}

// NewAccountNotOpenErrorFromNote builds an AccountNotOpenError for a note
// directive referencing an unopened account.
func NewAccountNotOpenErrorFromNote(note *ast.Note) *AccountNotOpenError {
	return &AccountNotOpenError{
		Account:   note.Account,
		Date:      note.Date,
		Pos:       note.Pos,
		Directive: note,
	}
}

// NewAccountNotOpenErrorFromDocument builds an AccountNotOpenError for a
// document directive referencing an unopened account.
func NewAccountNotOpenErrorFromDocument(doc *ast.Document) *AccountNotOpenError {
	return &AccountNotOpenError{
		Account:   doc.Account,
		Date:      doc.Date,
		Pos:       doc.Pos,
		Directive: doc,
	}
}

// FormatWithContext formats the full error message including the directive context.
// This produces output similar to bean-check, showing the complete directive.
func (e *AccountNotOpenError) FormatWithContext(f *formatter.Formatter) string {
	var buf bytes.Buffer

	buf.WriteString(e.Error())
	buf.WriteString("\n\n")

	if e.Directive != nil {
		if txn, ok := e.Directive.(*ast.Transaction); ok {
			var txnBuf bytes.Buffer
			directiveFormatter := formatter.New()
			if f != nil && f.CurrencyColumn > 0 {
				directiveFormatter = formatter.New(formatter.WithCurrencyColumn(f.CurrencyColumn))
			}

			if err := directiveFormatter.FormatTransaction(txn, &txnBuf); err == nil {
				indentLines(&buf, txnBuf.Bytes())
			}
		} else {
			buf.WriteString("   ")

			switch d := e.Directive.(type) {
			case *ast.Balance:
				fmt.Fprintf(&buf, "%s balance %s", d.Date.Format("2006-01-02"), d.Account)
				if d.Amount != nil {
					fmt.Fprintf(&buf, "  %s %s", d.Amount.Value, d.Amount.Currency)
				}
			case *ast.Pad:
				fmt.Fprintf(&buf, "%s pad %s %s", d.Date.Format("2006-01-02"), d.Account, d.AccountPad)
			case *ast.Note:
				fmt.Fprintf(&buf, "%s note %s %q", d.Date.Format("2006-01-02"), d.Account, d.Description.Value)
			case *ast.Document:
				fmt.Fprintf(&buf, "%s document %s %q", d.Date.Format("2006-01-02"), d.Account, d.PathToDocument.Value)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// indentLines writes each line of b to buf, prefixed with 3 spaces,
// matching bean-check's directive-context indentation.
func indentLines(buf *bytes.Buffer, b []byte) {
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(line) > 0 {
			buf.WriteString("   ")
			buf.Write(line)
			buf.WriteByte('\n')
		}
	}
}

// AccountAlreadyOpenError is returned when trying to open an account that's already open.
type AccountAlreadyOpenError struct {
	Account    ast.Account
	Date       *ast.Date
	OpenedDate *ast.Date
}

func (e *AccountAlreadyOpenError) Code() string     { return "E0002" }
func (e *AccountAlreadyOpenError) Severity() Severity { return SeverityError }

func (e *AccountAlreadyOpenError) Error() string {
	return fmt.Sprintf("%s: Account %s is already open (opened on %s)",
		e.Date.Format("2006-01-02"), e.Account, e.OpenedDate.Format("2006-01-02"))
}

// NewAccountAlreadyOpenError builds an AccountAlreadyOpenError for a
// duplicate open directive against an account that already exists.
func NewAccountAlreadyOpenError(open *ast.Open, openedDate *ast.Date) *AccountAlreadyOpenError {
	return &AccountAlreadyOpenError{
		Account:    open.Account,
		Date:       open.Date,
		OpenedDate: openedDate,
	}
}

// AccountAlreadyClosedError is returned when trying to use or close an account that's already closed.
type AccountAlreadyClosedError struct {
	Account    ast.Account
	Date       *ast.Date
	ClosedDate *ast.Date
}

func (e *AccountAlreadyClosedError) Code() string     { return "E0003" }
func (e *AccountAlreadyClosedError) Severity() Severity { return SeverityError }

func (e *AccountAlreadyClosedError) Error() string {
	return fmt.Sprintf("%s: Account %s is already closed (closed on %s)",
		e.Date.Format("2006-01-02"), e.Account, e.ClosedDate.Format("2006-01-02"))
}

// NewAccountAlreadyClosedError builds an AccountAlreadyClosedError for a
// close directive against an account that was already closed.
func NewAccountAlreadyClosedError(close *ast.Close, closedDate *ast.Date) *AccountAlreadyClosedError {
	return &AccountAlreadyClosedError{
		Account:    close.Account,
		Date:       close.Date,
		ClosedDate: closedDate,
	}
}

// AccountNotClosedError is returned when trying to close an account that was never opened.
type AccountNotClosedError struct {
	Account ast.Account
	Date    *ast.Date
}

// Code is E0001: closing an account that was never opened is the same
// underlying condition as any other directive referencing an unopened
// account.
func (e *AccountNotClosedError) Code() string     { return "E0001" }
func (e *AccountNotClosedError) Severity() Severity { return SeverityError }

func (e *AccountNotClosedError) Error() string {
	return fmt.Sprintf("%s: Cannot close account %s that was never opened",
		e.Date.Format("2006-01-02"), e.Account)
}

// NewAccountNotClosedError builds an AccountNotClosedError for a close
// directive against an account with no matching open directive.
func NewAccountNotClosedError(close *ast.Close) *AccountNotClosedError {
	return &AccountNotClosedError{
		Account: close.Account,
		Date:    close.Date,
	}
}

// TransactionNotBalancedError is returned when a transaction's postings don't sum to zero
// per currency within the configured tolerance.
type TransactionNotBalancedError struct {
	Pos         ast.Position
	Date        *ast.Date
	Narration   string
	Residuals   map[string]string // currency -> residual amount string
	Transaction *ast.Transaction
}

func (e *TransactionNotBalancedError) Code() string     { return "E0201" }
func (e *TransactionNotBalancedError) Severity() Severity { return SeverityError }

// Error returns a bean-check style error message with filename:line prefix.
func (e *TransactionNotBalancedError) Error() string {
	residualStr := e.formatResiduals()

	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = e.Date.Format("2006-01-02")
	}

	return fmt.Sprintf("%s: Transaction does not balance: %s", location, residualStr)
}

// NewTransactionNotBalancedError builds a TransactionNotBalancedError from
// the per-currency residual amounts left over after weight inference.
func NewTransactionNotBalancedError(txn *ast.Transaction, residuals map[string]string) *TransactionNotBalancedError {
	return &TransactionNotBalancedError{
		Pos:         txn.Pos,
		Date:        txn.Date,
		Narration:   txn.Narration.Value,
		Residuals:   residuals,
		Transaction: txn,
	}
}

// formatResiduals formats the residual amounts in a consistent order.
func (e *TransactionNotBalancedError) formatResiduals() string {
	if len(e.Residuals) == 0 {
		return ""
	}

	currencies := make([]string, 0, len(e.Residuals))
	for currency := range e.Residuals {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	result := "("
	for i, currency := range currencies {
		if i > 0 {
			result += ", "
		}
		result += fmt.Sprintf("%s %s", e.Residuals[currency], currency)
	}
	result += ")"

	return result
}

// FormatWithContext formats the full error message including the transaction context.
// This produces output similar to bean-check, showing the complete transaction.
func (e *TransactionNotBalancedError) FormatWithContext(f *formatter.Formatter) string {
	var buf bytes.Buffer

	buf.WriteString(e.Error())
	buf.WriteString("\n\n")

	if e.Transaction != nil {
		txnFormatter := formatter.New()
		if f != nil && f.CurrencyColumn > 0 {
			txnFormatter = formatter.New(formatter.WithCurrencyColumn(f.CurrencyColumn))
		}

		var txnBuf bytes.Buffer
		if err := txnFormatter.FormatTransaction(e.Transaction, &txnBuf); err == nil {
			indentLines(&buf, txnBuf.Bytes())
		}
	}

	return buf.String()
}

// InvalidAmountError is returned when an amount cannot be parsed or evaluated.
type InvalidAmountError struct {
	Date       *ast.Date
	Account    ast.Account
	Value      string
	Underlying error
}

// Code is E0702: the amount expression itself fails to evaluate, which is a
// syntactic problem surfaced outside the parser's own recovery loop, in the
// same E0701-E0703 family as other parser-surfaced diagnostics.
func (e *InvalidAmountError) Code() string     { return "E0702" }
func (e *InvalidAmountError) Severity() Severity { return SeverityError }

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s: Invalid amount %q for account %s: %v",
		e.Date.Format("2006-01-02"), e.Value, e.Account, e.Underlying)
}

// NewInvalidAmountError builds an InvalidAmountError for a posting amount
// that failed to parse or evaluate.
func NewInvalidAmountError(txn *ast.Transaction, account ast.Account, value string, err error) *InvalidAmountError {
	return &InvalidAmountError{
		Date:       txn.Date,
		Account:    account,
		Value:      value,
		Underlying: err,
	}
}

// NewInvalidAmountErrorFromBalance builds an InvalidAmountError for a
// balance directive's amount that failed to parse.
func NewInvalidAmountErrorFromBalance(balance *ast.Balance, err error) *InvalidAmountError {
	return &InvalidAmountError{
		Date:       balance.Date,
		Account:    balance.Account,
		Value:      balance.Amount.Value,
		Underlying: err,
	}
}

// InvalidCostError is returned when a posting's cost specification fails to
// parse: a malformed cost amount, a zero cost date, or an empty label.
type InvalidCostError struct {
	Date         *ast.Date
	Account      ast.Account
	PostingIndex int
	CostSpec     string
	Underlying   error
}

// NewInvalidCostError builds an InvalidCostError for a malformed cost
// specification on the posting at index in txn.
func NewInvalidCostError(txn *ast.Transaction, account ast.Account, index int, costSpec string, err error) *InvalidCostError {
	return &InvalidCostError{
		Date:         txn.Date,
		Account:      account,
		PostingIndex: index,
		CostSpec:     costSpec,
		Underlying:   err,
	}
}

// Code is E0702: a cost amount shares the same numeric grammar as a posting
// amount, so a malformed cost is the same underlying diagnostic as
// InvalidAmountError, just surfaced on the cost sub-expression.
func (e *InvalidCostError) Code() string       { return "E0702" }
func (e *InvalidCostError) Severity() Severity { return SeverityError }

func (e *InvalidCostError) Error() string {
	return fmt.Sprintf("%s: Invalid cost specification (Posting #%d: %s): %s: %v",
		e.Date.Format("2006-01-02"), e.PostingIndex+1, e.Account, e.CostSpec, e.Underlying)
}

// InvalidPriceError is returned when a posting's price specification fails
// to parse as a decimal amount.
type InvalidPriceError struct {
	Date         *ast.Date
	Account      ast.Account
	PostingIndex int
	PriceSpec    string
	Underlying   error
}

// NewInvalidPriceError builds an InvalidPriceError for a malformed price
// specification on the posting at index in txn.
func NewInvalidPriceError(txn *ast.Transaction, account ast.Account, index int, priceSpec string, err error) *InvalidPriceError {
	return &InvalidPriceError{
		Date:         txn.Date,
		Account:      account,
		PostingIndex: index,
		PriceSpec:    priceSpec,
		Underlying:   err,
	}
}

// Code is E0702: same family as InvalidCostError, a malformed price is a
// numeric-grammar failure on a posting sub-expression.
func (e *InvalidPriceError) Code() string       { return "E0702" }
func (e *InvalidPriceError) Severity() Severity { return SeverityError }

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("%s: Invalid price specification (Posting #%d: %s): %s: %v",
		e.Date.Format("2006-01-02"), e.PostingIndex+1, e.Account, e.PriceSpec, e.Underlying)
}

// InvalidMetadataError is returned when a metadata entry is structurally
// invalid: a duplicate key within the same directive or posting, or an
// empty string value.
type InvalidMetadataError struct {
	Date    *ast.Date
	Account ast.Account // empty for transaction-level metadata
	Key     string
	Value   *ast.MetadataValue
	Reason  string
}

// NewInvalidMetadataError builds an InvalidMetadataError for a metadata
// entry on txn. account is the empty ast.Account for transaction-level
// metadata, or the posting's account for posting-level metadata.
func NewInvalidMetadataError(txn *ast.Transaction, account ast.Account, key string, value *ast.MetadataValue, reason string) *InvalidMetadataError {
	return &InvalidMetadataError{
		Date:    txn.Date,
		Account: account,
		Key:     key,
		Value:   value,
		Reason:  reason,
	}
}

// Code is E0703: a structurally malformed metadata entry (duplicate key,
// empty value) is a secondary-validation diagnostic in the same
// parser-surfaced family as InvalidAmountError and InvalidCostError.
func (e *InvalidMetadataError) Code() string       { return "E0703" }
func (e *InvalidMetadataError) Severity() Severity { return SeverityError }

func (e *InvalidMetadataError) Error() string {
	if e.Account == "" {
		return fmt.Sprintf("%s: Invalid metadata: key=%q, value=%q: %s",
			e.Date.Format("2006-01-02"), e.Key, e.Value.String(), e.Reason)
	}
	return fmt.Sprintf("%s: Invalid metadata (account %s): key=%q, value=%q: %s",
		e.Date.Format("2006-01-02"), e.Account, e.Key, e.Value.String(), e.Reason)
}

// BalanceMismatchError is returned when a balance assertion fails.
type BalanceMismatchError struct {
	Date     *ast.Date
	Account  ast.Account
	Expected string
	Actual   string
	Currency string
}

func (e *BalanceMismatchError) Code() string     { return "E0101" }
func (e *BalanceMismatchError) Severity() Severity { return SeverityError }

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("%s: Balance mismatch for %s:\n  Expected: %s %s\n  Actual:   %s %s",
		e.Date.Format("2006-01-02"), e.Account,
		e.Expected, e.Currency,
		e.Actual, e.Currency)
}

// NewBalanceMismatchError builds a BalanceMismatchError for a balance
// assertion whose expected and actual amounts differ beyond tolerance.
func NewBalanceMismatchError(balance *ast.Balance, expected, actual, currency string) *BalanceMismatchError {
	return &BalanceMismatchError{
		Date:     balance.Date,
		Account:  balance.Account,
		Expected: expected,
		Actual:   actual,
		Currency: currency,
	}
}

// AmbiguousBookingError is returned when a reducing posting without an
// explicit cost or lot selector matches more than one lot under the STRICT
// booking method.
type AmbiguousBookingError struct {
	Date    *ast.Date
	Account ast.Account
	Amount  string
}

func (e *AmbiguousBookingError) Code() string     { return "E0301" }
func (e *AmbiguousBookingError) Severity() Severity { return SeverityError }

func (e *AmbiguousBookingError) Error() string {
	return fmt.Sprintf("%s: Ambiguous lot reduction for %s %s: multiple lots match under the STRICT booking method",
		e.Date.Format("2006-01-02"), e.Account, e.Amount)
}

// NoMatchingLotError is returned when a reducing posting with an explicit
// cost or lot selector matches no held lot.
type NoMatchingLotError struct {
	Date    *ast.Date
	Account ast.Account
	Amount  string
}

func (e *NoMatchingLotError) Code() string     { return "E0302" }
func (e *NoMatchingLotError) Severity() Severity { return SeverityError }

func (e *NoMatchingLotError) Error() string {
	return fmt.Sprintf("%s: No matching lot for reduction of %s %s",
		e.Date.Format("2006-01-02"), e.Account, e.Amount)
}

// InsufficientInventoryError is returned when a lot reduction can't be
// satisfied by the units currently held in an account's inventory.
type InsufficientInventoryError struct {
	Transaction *ast.Transaction
	Account     ast.Account
	Payee       string
	Details     error
}

// NewInsufficientInventoryError builds an InsufficientInventoryError from the
// transaction and account a failed lot reduction was attempted against.
func NewInsufficientInventoryError(txn *ast.Transaction, account ast.Account, details error) *InsufficientInventoryError {
	return &InsufficientInventoryError{
		Transaction: txn,
		Account:     account,
		Payee:       txn.Payee.Value,
		Details:     details,
	}
}

// Code is E0302: a lot reduction that can't be satisfied by held units is
// the same shortfall condition as NoMatchingLotError, just surfaced from the
// general inventory-reduction path rather than a specific-selector lookup.
func (e *InsufficientInventoryError) Code() string       { return "E0302" }
func (e *InsufficientInventoryError) Severity() Severity { return SeverityError }

func (e *InsufficientInventoryError) Error() string {
	pos := e.GetPosition()
	location := fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
	if pos.Filename == "" {
		location = e.GetDate().Format("2006-01-02")
	}
	return fmt.Sprintf("%s: Insufficient inventory in %s: %v", location, e.Account, e.Details)
}

// GetPosition returns the source position of the offending transaction.
func (e *InsufficientInventoryError) GetPosition() ast.Position {
	return e.Transaction.Position()
}

// GetDirective returns the transaction that triggered the error.
func (e *InsufficientInventoryError) GetDirective() ast.Directive {
	return ast.Directive(e.Transaction)
}

// GetAccount returns the account the reduction was attempted against.
func (e *InsufficientInventoryError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the transaction's date.
func (e *InsufficientInventoryError) GetDate() *ast.Date {
	return e.Transaction.GetDate()
}

// CurrencyConstraintError is returned when a posting uses a currency not in
// its account's constraint currency list (set on the account's open directive).
type CurrencyConstraintError struct {
	Transaction       *ast.Transaction
	Account           ast.Account
	Payee             string
	Currency          string
	AllowedCurrencies []string
}

// NewCurrencyConstraintError builds a CurrencyConstraintError for a posting
// whose currency isn't in the account's allowed list.
func NewCurrencyConstraintError(txn *ast.Transaction, account ast.Account, currency string, allowed []string) *CurrencyConstraintError {
	return &CurrencyConstraintError{
		Transaction:       txn,
		Account:           account,
		Payee:             txn.Payee.Value,
		Currency:          currency,
		AllowedCurrencies: allowed,
	}
}

func (e *CurrencyConstraintError) Code() string       { return "E0203" }
func (e *CurrencyConstraintError) Severity() Severity { return SeverityError }

func (e *CurrencyConstraintError) Error() string {
	pos := e.GetPosition()
	location := fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
	if pos.Filename == "" {
		location = e.GetDate().Format("2006-01-02")
	}
	return fmt.Sprintf("%s: Currency %s not allowed in %s (allowed: %v)",
		location, e.Currency, e.Account, e.AllowedCurrencies)
}

// GetPosition returns the source position of the offending transaction.
func (e *CurrencyConstraintError) GetPosition() ast.Position {
	return e.Transaction.Position()
}

// GetDirective returns the transaction that triggered the error.
func (e *CurrencyConstraintError) GetDirective() ast.Directive {
	return ast.Directive(e.Transaction)
}

// GetAccount returns the constrained account.
func (e *CurrencyConstraintError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the transaction's date.
func (e *CurrencyConstraintError) GetDate() *ast.Date {
	return e.Transaction.GetDate()
}

// AccountNameSyntaxError is returned when an account name fails the
// structural naming rules: colon-separated components, each starting with
// an uppercase letter, the first component one of the five fixed roots.
type AccountNameSyntaxError struct {
	Account ast.Account
	Date    *ast.Date
	Pos     ast.Position
	Reason  string
}

func (e *AccountNameSyntaxError) Code() string       { return "E0004" }
func (e *AccountNameSyntaxError) Severity() Severity { return SeverityError }

func (e *AccountNameSyntaxError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = e.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s: Invalid account name %q: %s", location, e.Account, e.Reason)
}

// CostBasisMismatchError is returned when a reducing posting's cost
// specification matches a held lot's selector but disagrees with its stored
// per-unit cost basis beyond tolerance.
type CostBasisMismatchError struct {
	Date         *ast.Date
	Account      ast.Account
	StoredCost   string
	RequestCost  string
	CostCurrency string
}

func (e *CostBasisMismatchError) Code() string       { return "E0303" }
func (e *CostBasisMismatchError) Severity() Severity { return SeverityError }

func (e *CostBasisMismatchError) Error() string {
	return fmt.Sprintf("%s: Cost basis mismatch for %s: lot holds %s %s, posting specifies %s %s",
		e.Date.Format("2006-01-02"), e.Account, e.StoredCost, e.CostCurrency, e.RequestCost, e.CostCurrency)
}

// FutureDatedError is returned when a directive's date lies beyond the
// configured "as of" horizon for the ledger being processed.
type FutureDatedError struct {
	Directive ast.Directive
	Date      *ast.Date
	AsOf      *ast.Date
}

func (e *FutureDatedError) Code() string       { return "E0401" }
func (e *FutureDatedError) Severity() Severity { return SeverityWarning }

func (e *FutureDatedError) Error() string {
	return fmt.Sprintf("%s: Directive is dated after the processing horizon %s",
		e.Date.Format("2006-01-02"), e.AsOf.Format("2006-01-02"))
}

// DateDecreaseError is returned when the date-sorted directive stream
// contains a directive whose date is earlier than the previous one's,
// which should be unreachable once directives are sorted by (date, index).
type DateDecreaseError struct {
	Directive    ast.Directive
	Date         *ast.Date
	PreviousDate *ast.Date
}

func (e *DateDecreaseError) Code() string       { return "E0402" }
func (e *DateDecreaseError) Severity() Severity { return SeverityError }

func (e *DateDecreaseError) Error() string {
	return fmt.Sprintf("%s: Directive date decreases from previous directive dated %s",
		e.Date.Format("2006-01-02"), e.PreviousDate.Format("2006-01-02"))
}

// DocumentPathMissingError is returned when a document directive has no
// path at all.
type DocumentPathMissingError struct {
	Account ast.Account
	Date    *ast.Date
	Pos     ast.Position
}

func (e *DocumentPathMissingError) Code() string       { return "E0501" }
func (e *DocumentPathMissingError) Severity() Severity { return SeverityError }

func (e *DocumentPathMissingError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = e.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s: Document directive for %s is missing a path", location, e.Account)
}

// DocumentPathNotAbsoluteError is returned when a document directive's path
// is not an absolute filesystem path.
type DocumentPathNotAbsoluteError struct {
	Account ast.Account
	Date    *ast.Date
	Pos     ast.Position
	Path    string
}

func (e *DocumentPathNotAbsoluteError) Code() string       { return "E0502" }
func (e *DocumentPathNotAbsoluteError) Severity() Severity { return SeverityError }

func (e *DocumentPathNotAbsoluteError) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = e.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s: Document path %q for %s is not absolute", location, e.Path, e.Account)
}

// UnusedPadWarning is reported when a pad directive is never consumed by a
// later balance assertion on the same account.
type UnusedPadWarning struct {
	Account ast.Account
	Date    *ast.Date
	Pos     ast.Position
	Pad     *ast.Pad
}

func NewUnusedPadWarning(pad *ast.Pad) *UnusedPadWarning {
	return &UnusedPadWarning{Account: pad.Account, Date: pad.Date, Pos: pad.Pos, Pad: pad}
}

func (e *UnusedPadWarning) Code() string       { return "E0104" }
func (e *UnusedPadWarning) Severity() Severity { return SeverityWarning }

func (e *UnusedPadWarning) Error() string {
	location := fmt.Sprintf("%s:%d", e.Pos.Filename, e.Pos.Line)
	if e.Pos.Filename == "" {
		location = e.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s: Pad directive for %s is never used by a following balance assertion", location, e.Account)
}
