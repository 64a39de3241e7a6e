package excel

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"procurement-backend/models"
)

var ErrNoSheets = errors.New("workbook has no sheets")

// requiredColumns are the bill-of-quantities headers a line item sheet
// must carry, in the order the fields map to.
var requiredColumns = []string{"项目编码", "项目名称", "项目特征", "计量单位", "工程量"}

// ParseLineItems reads the first sheet of an .xlsx workbook and extracts
// procurement line items. Header matching is fuzzy: full-width spaces are
// normalized and a header containing (or contained in) the expected name
// counts as a match. Rows missing code, name or unit are skipped rather
// than failing the whole upload.
func ParseLineItems(r io.Reader) ([]models.LineItem, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	headerIdx, mapping := findHeaderRow(rows)
	if mapping == nil {
		return nil, fmt.Errorf("missing required columns, expected: %s", strings.Join(requiredColumns, ", "))
	}

	var items []models.LineItem
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]

		code := cellAt(row, mapping["项目编码"])
		name := cellAt(row, mapping["项目名称"])
		unit := cellAt(row, mapping["计量单位"])
		if code == "" || name == "" || unit == "" {
			continue
		}

		item := models.LineItem{
			ProjectCode: code,
			ProjectName: name,
			Unit:        unit,
			Quantity:    parseQuantity(cellAt(row, mapping["工程量"])),
		}
		if features := cellAt(row, mapping["项目特征"]); features != "" {
			item.ProjectFeatures = &features
		}
		items = append(items, item)
	}

	log.Printf("[Excel解析] 从 %s 解析出 %d 条明细", sheets[0], len(items))
	return items, nil
}

// findHeaderRow scans the first rows for one containing every required
// column and returns its index plus the column mapping. Bills of
// quantities often carry title rows above the real header.
func findHeaderRow(rows [][]string) (int, map[string]int) {
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}

	for i := 0; i < limit; i++ {
		mapping := make(map[string]int, len(requiredColumns))
		for _, required := range requiredColumns {
			if col := findColumn(rows[i], required); col >= 0 {
				mapping[required] = col
			}
		}
		if len(mapping) == len(requiredColumns) {
			return i, mapping
		}
	}
	return 0, nil
}

func findColumn(header []string, target string) int {
	target = normalizeHeader(target)

	for col, name := range header {
		if normalizeHeader(name) == target {
			return col
		}
	}
	for col, name := range header {
		normalized := normalizeHeader(name)
		if normalized == "" {
			continue
		}
		if strings.Contains(normalized, target) || strings.Contains(target, normalized) {
			return col
		}
	}
	return -1
}

func normalizeHeader(s string) string {
	s = strings.ReplaceAll(s, "　", " ")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.TrimSpace(s)
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func parseQuantity(s string) float64 {
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return q
}
