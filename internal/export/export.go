// Package export renders catalog data as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"

	"github.com/foodville/marketplace-api/internal/model"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	Filename    = "products.xlsx"
	sheetName   = "Products"
	timeLayout  = "2006-01-02 15:04:05"
)

var productHeaders = []string{
	"ID", "Name", "Category", "Price", "Available", "Description", "CreatedAt", "UpdatedAt",
}

// WriteProducts writes products as an xlsx workbook with a single sheet: a
// header row followed by one row per product.
func WriteProducts(w io.Writer, products []model.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(sheetName)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range productHeaders {
		header.AddCell().SetString(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID.String())
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.CategoryName)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetBool(p.IsAvailable)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.CreatedAt.Format(timeLayout))
		row.AddCell().SetString(p.UpdatedAt.Format(timeLayout))
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
