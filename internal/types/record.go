package types

import "time"

// IdentityFields holds values read from the identity card.
type IdentityFields struct {
	IDNumber      *string `json:"id_number,omitempty"`
	FullName      *string `json:"full_name,omitempty"`
	MaritalStatus *string `json:"marital_status,omitempty"`
	FamilySize    *int    `json:"family_size,omitempty"`
}

// BankStatementFields holds values read from the bank statement ledger.
type BankStatementFields struct {
	MonthlySalary  *float64   `json:"monthly_salary,omitempty"`
	AccountBalance *float64   `json:"account_balance,omitempty"`
	SalaryDate     *time.Time `json:"salary_date,omitempty"`
	SalaryCredits  int        `json:"salary_credits"` // Number of salary-tagged credits seen
}

// CreditReportFields holds values read from the credit bureau report.
type CreditReportFields struct {
	CreditScore     *int     `json:"credit_score,omitempty"`
	ReportedIncome  *float64 `json:"reported_income,omitempty"`
	TotalSavings    *float64 `json:"total_savings,omitempty"`
	OutstandingDebt *float64 `json:"outstanding_debt,omitempty"`
}

// MedicalReportFields holds values read from the medical report.
type MedicalReportFields struct {
	Diagnosis     *string `json:"diagnosis,omitempty"`
	SeverityScore *int    `json:"severity_score,omitempty"` // 0..10
}

// ResumeFields holds values read from the résumé.
type ResumeFields struct {
	EmploymentSummary *string `json:"employment_summary,omitempty"`
}

// AssetSheetFields holds values read from the assets and liabilities sheet.
type AssetSheetFields struct {
	TotalAssetValue *float64 `json:"total_asset_value,omitempty"`
	ItemCount       int      `json:"item_count"`
}

// ExtractedRecord is the typed result of extracting one document. Exactly one
// payload matching Kind is set. A nil field inside the payload means the value
// was not found, which is different from a value of zero.
type ExtractedRecord struct {
	Kind     DocumentKind         `json:"kind"`
	Source   string               `json:"source,omitempty"`
	Identity *IdentityFields      `json:"identity,omitempty"`
	Bank     *BankStatementFields `json:"bank_statement,omitempty"`
	Credit   *CreditReportFields  `json:"credit_report,omitempty"`
	Medical  *MedicalReportFields `json:"medical_report,omitempty"`
	Resume   *ResumeFields        `json:"resume,omitempty"`
	Assets   *AssetSheetFields    `json:"asset_sheet,omitempty"`
}

// NewRecord returns an ExtractedRecord of the given kind with an empty payload.
func NewRecord(kind DocumentKind, source string) ExtractedRecord {
	rec := ExtractedRecord{Kind: kind, Source: source}
	switch kind {
	case KindIdentity:
		rec.Identity = &IdentityFields{}
	case KindBankStatement:
		rec.Bank = &BankStatementFields{}
	case KindCreditReport:
		rec.Credit = &CreditReportFields{}
	case KindMedicalReport:
		rec.Medical = &MedicalReportFields{}
	case KindResume:
		rec.Resume = &ResumeFields{}
	case KindAssetSheet:
		rec.Assets = &AssetSheetFields{}
	}
	return rec
}

// Clone returns a deep copy so that callers can derive a new record without
// touching the original.
func (r ExtractedRecord) Clone() ExtractedRecord {
	out := ExtractedRecord{Kind: r.Kind, Source: r.Source}
	if r.Identity != nil {
		out.Identity = &IdentityFields{
			IDNumber:      clonePtr(r.Identity.IDNumber),
			FullName:      clonePtr(r.Identity.FullName),
			MaritalStatus: clonePtr(r.Identity.MaritalStatus),
			FamilySize:    clonePtr(r.Identity.FamilySize),
		}
	}
	if r.Bank != nil {
		out.Bank = &BankStatementFields{
			MonthlySalary:  clonePtr(r.Bank.MonthlySalary),
			AccountBalance: clonePtr(r.Bank.AccountBalance),
			SalaryDate:     clonePtr(r.Bank.SalaryDate),
			SalaryCredits:  r.Bank.SalaryCredits,
		}
	}
	if r.Credit != nil {
		out.Credit = &CreditReportFields{
			CreditScore:     clonePtr(r.Credit.CreditScore),
			ReportedIncome:  clonePtr(r.Credit.ReportedIncome),
			TotalSavings:    clonePtr(r.Credit.TotalSavings),
			OutstandingDebt: clonePtr(r.Credit.OutstandingDebt),
		}
	}
	if r.Medical != nil {
		out.Medical = &MedicalReportFields{
			Diagnosis:     clonePtr(r.Medical.Diagnosis),
			SeverityScore: clonePtr(r.Medical.SeverityScore),
		}
	}
	if r.Resume != nil {
		out.Resume = &ResumeFields{EmploymentSummary: clonePtr(r.Resume.EmploymentSummary)}
	}
	if r.Assets != nil {
		out.Assets = &AssetSheetFields{
			TotalAssetValue: clonePtr(r.Assets.TotalAssetValue),
			ItemCount:       r.Assets.ItemCount,
		}
	}
	return out
}

// Ptr returns a pointer to v. It keeps literal optional fields readable.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
