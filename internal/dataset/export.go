package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
)

// Download file names offered by the dashboard
const (
	OrdersFileName    = "filtered_orders.csv"
	CustomersFileName = "rfm_customers.csv"
	ScoredFileName    = "rfm_scored.csv"
	WorkbookFileName  = "dashboard.xlsx"
)

// Workbook sheet names
const (
	SheetOrders = "orders"
	SheetRFM    = "rfm"
	SheetScored = "rfm_scored"
)

var scoredHeader = []string{
	ColCustomerID, ColRecency, ColFrequency, ColMonetary,
	"R_score", "F_score", "M_score", ColRFMScore, "segment",
}

// WriteOrdersCSV writes the orders with their original header and cells
func WriteOrdersCSV(w io.Writer, orders *Orders) error {
	return writeCSV(w, orders.Header, func(emit func([]string) error) error {
		for _, o := range orders.Rows {
			if err := emit(o.Fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCustomersCSV writes the RFM table unchanged, id column included
func WriteCustomersCSV(w io.Writer, customers *Customers) error {
	return writeCSV(w, customers.Header, func(emit func([]string) error) error {
		for _, c := range customers.Rows {
			if err := emit(c.Fields); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteScoredCSV writes scorer output with the derived segment name
func WriteScoredCSV(w io.Writer, scored []rfm.Scored) error {
	return writeCSV(w, scoredHeader, func(emit func([]string) error) error {
		for _, s := range scored {
			if err := emit(scoredRecord(s)); err != nil {
				return err
			}
		}
		return nil
	})
}

func scoredRecord(s rfm.Scored) []string {
	return []string{
		s.CustomerID,
		strconv.FormatFloat(s.Recency, 'f', -1, 64),
		strconv.FormatFloat(s.Frequency, 'f', -1, 64),
		strconv.FormatFloat(s.Monetary, 'f', -1, 64),
		strconv.Itoa(s.RecencyScore),
		strconv.Itoa(s.FrequencyScore),
		strconv.Itoa(s.MonetaryScore),
		s.Code,
		rfm.Segment(s.Code),
	}
}

func writeCSV(w io.Writer, header []string, rows func(emit func([]string) error) error) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := rows(cw.Write); err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteWorkbook writes an XLSX file with an "orders" and an "rfm" sheet, plus
// an "rfm_scored" sheet when scored is not empty
func WriteWorkbook(w io.Writer, orders *Orders, customers *Customers, scored []rfm.Scored) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOrders); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	orderRows := make([][]string, len(orders.Rows))
	for i, o := range orders.Rows {
		orderRows[i] = o.Fields
	}
	if err := fillSheet(f, SheetOrders, orders.Header, orderRows); err != nil {
		return err
	}

	customerRows := make([][]string, len(customers.Rows))
	for i, c := range customers.Rows {
		customerRows[i] = c.Fields
	}
	if _, err := f.NewSheet(SheetRFM); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetRFM, err)
	}
	if err := fillSheet(f, SheetRFM, customers.Header, customerRows); err != nil {
		return err
	}

	if len(scored) > 0 {
		scoredRows := make([][]string, len(scored))
		for i, s := range scored {
			scoredRows[i] = scoredRecord(s)
		}
		if _, err := f.NewSheet(SheetScored); err != nil {
			return fmt.Errorf("create sheet %s: %w", SheetScored, err)
		}
		if err := fillSheet(f, SheetScored, scoredHeader, scoredRows); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func fillSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}
	for r, fields := range rows {
		for c, v := range fields {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return fmt.Errorf("sheet %s: %w", sheet, err)
			}
		}
	}
	return nil
}

// cellValue stores numeric cells as numbers so spreadsheets can sum them
func cellValue(s string) interface{} {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}
