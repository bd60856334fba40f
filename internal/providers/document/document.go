// Package document holds the view models rendered by the PDF and XLSX exporters.
package document

type ScheduleRow struct {
	Number    int
	DueDate   string
	Amount    string
	Principal string
	Interest  string
	Status    string
	PaidDate  string
}

type ScheduleData struct {
	Title         string
	CreditID      string
	OrderNumber   string
	CustomerName  string
	CustomerEmail string
	PlanName      string
	InterestRate  string
	TotalAmount   string
	PaidAmount    string
	PendingAmount string
	LateFees      string
	Status        string
	GeneratedAt   string
	Rows          []ScheduleRow
}

type ReceiptData struct {
	ReceiptNumber     string
	CreditID          string
	OrderNumber       string
	CustomerName      string
	CustomerEmail     string
	InstallmentNumber int
	InstallmentsCount int
	DueDate           string
	PaidDate          string
	PaymentMethod     string
	PaymentReference  string
	Principal         string
	Interest          string
	LateFee           string
	Total             string
	RemainingBalance  string
}
