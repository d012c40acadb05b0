package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bizdesk/internal/repository"
)

// DocumentLineRequest is one line of a quotation or invoice. When ProductID is set,
// missing description and unit price are taken from the catalog.
type DocumentLineRequest struct {
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice   string `json:"unit_price"`
}

type DocumentLineResponse struct {
	ProductID   *string `json:"product_id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	LineTotal   string  `json:"line_total"`
}

type pricedLine struct {
	ProductID   *uuid.UUID
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

type documentTotals struct {
	Subtotal   decimal.Decimal
	TaxPercent decimal.Decimal
	TaxAmount  decimal.Decimal
	Total      decimal.Decimal
}

func priceLines(ctx context.Context, products repository.ProductRepository, reqs []DocumentLineRequest) ([]pricedLine, decimal.Decimal, error) {
	if len(reqs) == 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: at least one line is required", ErrValidation)
	}

	lines := make([]pricedLine, 0, len(reqs))
	subtotal := decimal.Zero
	for i, r := range reqs {
		field := fmt.Sprintf("lines[%d]", i)
		if r.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("%w: %s.quantity must be positive", ErrValidation, field)
		}
		productID, err := parseOptionalID(r.ProductID, field+".product_id")
		if err != nil {
			return nil, decimal.Zero, err
		}

		description := strings.TrimSpace(r.Description)
		var unit decimal.Decimal
		if strings.TrimSpace(r.UnitPrice) != "" {
			unit, err = parseMoney(strings.TrimSpace(r.UnitPrice), field+".unit_price")
			if err != nil {
				return nil, decimal.Zero, err
			}
		}
		if productID != nil {
			product, err := products.FindByID(ctx, *productID)
			if err != nil {
				return nil, decimal.Zero, notFoundOr(err, field+" product")
			}
			if description == "" {
				description = product.Name
			}
			if strings.TrimSpace(r.UnitPrice) == "" {
				unit = product.SalePrice
			}
		} else if strings.TrimSpace(r.UnitPrice) == "" {
			return nil, decimal.Zero, fmt.Errorf("%w: %s.unit_price is required without a product", ErrValidation, field)
		}
		if description == "" {
			return nil, decimal.Zero, fmt.Errorf("%w: %s.description is required", ErrValidation, field)
		}

		total := unit.Mul(decimal.NewFromInt(int64(r.Quantity))).Round(2)
		subtotal = subtotal.Add(total)
		lines = append(lines, pricedLine{
			ProductID:   productID,
			Description: description,
			Quantity:    r.Quantity,
			UnitPrice:   unit.Round(2),
			LineTotal:   total,
		})
	}
	return lines, subtotal, nil
}

// computeTotals adds GCT on the subtotal. Tax is rounded to cents once.
func computeTotals(subtotal, taxPercent decimal.Decimal) documentTotals {
	tax := subtotal.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(2)
	return documentTotals{
		Subtotal:   subtotal,
		TaxPercent: taxPercent,
		TaxAmount:  tax,
		Total:      subtotal.Add(tax),
	}
}

func lineResponse(productID *uuid.UUID, description string, qty int, unit, total decimal.Decimal) DocumentLineResponse {
	var pid *string
	if productID != nil {
		s := productID.String()
		pid = &s
	}
	return DocumentLineResponse{
		ProductID:   pid,
		Description: description,
		Quantity:    qty,
		UnitPrice:   unit.StringFixed(2),
		LineTotal:   total.StringFixed(2),
	}
}

// sheetDocument is what exportSheet renders: a header block, the lines table and the totals
type sheetDocument struct {
	Title    string
	Header   [][2]string
	Lines    []DocumentLineResponse
	Totals   documentTotals
	Currency string
}

func exportSheet(doc sheetDocument) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := doc.Title
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	row := 1
	setRow := func(values ...interface{}) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return f.SetSheetRow(sheet, cell, &values)
	}

	if err := setRow(doc.Title); err != nil {
		return nil, fmt.Errorf("failed to write title: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
		return nil, fmt.Errorf("failed to style title: %w", err)
	}
	for _, kv := range doc.Header {
		if err := setRow(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}
	row++

	headerRow := row
	if err := setRow("Description", "Quantity", "Unit price", "Line total"); err != nil {
		return nil, fmt.Errorf("failed to write table header: %w", err)
	}
	start, _ := excelize.CoordinatesToCellName(1, headerRow)
	end, _ := excelize.CoordinatesToCellName(4, headerRow)
	if err := f.SetCellStyle(sheet, start, end, bold); err != nil {
		return nil, fmt.Errorf("failed to style table header: %w", err)
	}

	for _, l := range doc.Lines {
		unit, _ := decimal.NewFromString(l.UnitPrice)
		total, _ := decimal.NewFromString(l.LineTotal)
		if err := setRow(l.Description, l.Quantity, unit.InexactFloat64(), total.InexactFloat64()); err != nil {
			return nil, fmt.Errorf("failed to write line: %w", err)
		}
	}
	row++

	totals := [][2]interface{}{
		{"Subtotal", doc.Totals.Subtotal},
		{"GCT " + doc.Totals.TaxPercent.String() + "%", doc.Totals.TaxAmount},
		{"Total (" + doc.Currency + ")", doc.Totals.Total},
	}
	for _, t := range totals {
		if err := setRow("", "", t[0], t[1].(decimal.Decimal).InexactFloat64()); err != nil {
			return nil, fmt.Errorf("failed to write totals: %w", err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "A", 48); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "D", 16); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
