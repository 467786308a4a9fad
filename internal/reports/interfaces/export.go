package interfaces

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"backoffice-ledger/internal/reports"
)

// formatMinor renders base-currency minor units with two decimals.
func formatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// BuildTrialBalanceCSV renders a trial balance as CSV.
func BuildTrialBalanceCSV(report *reports.TrialBalanceReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"code", "name", "type", "debit", "credit"}); err != nil {
		return nil, err
	}
	for _, line := range report.Lines {
		record := []string{
			line.Code, line.Name, string(line.Type),
			formatMinor(line.Debit), formatMinor(line.Credit),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"", "TOTAL", "", formatMinor(report.TotalDebit), formatMinor(report.TotalCredit)}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTrialBalancePDF renders a minimal PDF for a trial balance.
func BuildTrialBalancePDF(report *reports.TrialBalanceReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Trial Balance")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("As of: %s", report.AsOf.Format("2006-01-02")))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "Code", "1", 0, "C", false, 0, "")
	pdf.CellFormat(65, 6, "Account", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Debit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Credit", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, line := range report.Lines {
		pdf.CellFormat(25, 6, line.Code, "1", 0, "L", false, 0, "")
		pdf.CellFormat(65, 6, line.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(line.Type), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, formatMinor(line.Debit), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, formatMinor(line.Credit), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(115, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, formatMinor(report.TotalDebit), "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 6, formatMinor(report.TotalCredit), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildTrialBalanceXLSX renders a minimal XLSX for a trial balance.
func BuildTrialBalanceXLSX(report *reports.TrialBalanceReport) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "trial_balance"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Trial Balance")
	_ = f.SetCellValue(sheet, "A2", "As of")
	_ = f.SetCellValue(sheet, "B2", report.AsOf.Format("2006-01-02"))

	_ = f.SetCellValue(sheet, "A4", "Code")
	_ = f.SetCellValue(sheet, "B4", "Account")
	_ = f.SetCellValue(sheet, "C4", "Type")
	_ = f.SetCellValue(sheet, "D4", "Debit")
	_ = f.SetCellValue(sheet, "E4", "Credit")
	for i, line := range report.Lines {
		row := i + 5
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.Code)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), line.Name)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), string(line.Type))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), formatMinor(line.Debit))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), formatMinor(line.Credit))
	}
	totalRow := len(report.Lines) + 5
	_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", totalRow), "Total")
	_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", totalRow), formatMinor(report.TotalDebit))
	_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", totalRow), formatMinor(report.TotalCredit))

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildProfitAndLossCSV renders an income statement as CSV.
func BuildProfitAndLossCSV(report *reports.ProfitAndLossReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"section", "code", "name", "amount"}); err != nil {
		return nil, err
	}
	for _, line := range report.Income {
		if err := w.Write([]string{"income", line.Code, line.Name, formatMinor(line.Amount)}); err != nil {
			return nil, err
		}
	}
	for _, line := range report.Expenses {
		if err := w.Write([]string{"expense", line.Code, line.Name, formatMinor(line.Amount)}); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"total", "", "NET PROFIT", formatMinor(report.NetProfit)}); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildBalanceSheetXLSX renders a minimal XLSX for a balance sheet.
func BuildBalanceSheetXLSX(report *reports.BalanceSheetReport) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "balance_sheet"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Balance Sheet")
	_ = f.SetCellValue(sheet, "A2", "As of")
	_ = f.SetCellValue(sheet, "B2", report.AsOf.Format("2006-01-02"))

	row := 4
	writeSection := func(title string, lines []reports.AccountAmount, total int64) {
		_ = f.SetCellValue(sheet, "A"+strconv.Itoa(row), title)
		row++
		for _, line := range lines {
			_ = f.SetCellValue(sheet, "A"+strconv.Itoa(row), line.Code)
			_ = f.SetCellValue(sheet, "B"+strconv.Itoa(row), line.Name)
			_ = f.SetCellValue(sheet, "C"+strconv.Itoa(row), formatMinor(line.Amount))
			row++
		}
		_ = f.SetCellValue(sheet, "B"+strconv.Itoa(row), "Total "+title)
		_ = f.SetCellValue(sheet, "C"+strconv.Itoa(row), formatMinor(total))
		row += 2
	}
	writeSection("Assets", report.Assets, report.TotalAssets)
	writeSection("Liabilities", report.Liabilities, report.TotalLiabilities)
	writeSection("Equity", report.Equity, report.TotalEquity)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
