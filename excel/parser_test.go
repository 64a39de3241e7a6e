package excel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Reader {
	t.Helper()

	workbook := excelize.NewFile()
	defer workbook.Close()

	sheet := workbook.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, workbook.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, workbook.Write(&buf))
	return bytes.NewReader(buf.Bytes())
}

func TestParseLineItems(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"项目编码", "项目名称", "项目特征", "计量单位", "工程量"},
		{"030408001001", "电力电缆", "1.名称:YJV-10kV", "米", "1,500.5"},
		{"030408001002", "控制电缆", "", "米", "120"},
	})

	items, err := ParseLineItems(r)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "030408001001", items[0].ProjectCode)
	assert.Equal(t, "电力电缆", items[0].ProjectName)
	require.NotNil(t, items[0].ProjectFeatures)
	assert.Equal(t, "1.名称:YJV-10kV", *items[0].ProjectFeatures)
	assert.Equal(t, "米", items[0].Unit)
	assert.Equal(t, 1500.5, items[0].Quantity)

	assert.Nil(t, items[1].ProjectFeatures)
	assert.Equal(t, 120.0, items[1].Quantity)
}

func TestParseLineItems_HeaderNotOnFirstRow(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"某某工程分部分项清单"},
		{},
		{"项目编码", "项目名称", "项目特征", "计量单位", "工程量"},
		{"0101", "桥架", "热镀锌", "米", "80"},
	})

	items, err := ParseLineItems(r)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "桥架", items[0].ProjectName)
}

func TestParseLineItems_FuzzyHeaders(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"项目编码", "项目名称", "项目特征描述", "计量\n单位", "工程量"},
		{"0101", "阀门", "DN100", "个", "12"},
	})

	items, err := ParseLineItems(r)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ProjectFeatures)
	assert.Equal(t, "DN100", *items[0].ProjectFeatures)
	assert.Equal(t, "个", items[0].Unit)
}

func TestParseLineItems_SkipsIncompleteRows(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"项目编码", "项目名称", "项目特征", "计量单位", "工程量"},
		{"0101", "电力电缆", "", "米", "100"},
		{"", "小计", "", "", ""},
		{"0102", "", "", "米", "50"},
		{"0103", "控制电缆", "", "", "30"},
	})

	items, err := ParseLineItems(r)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "电力电缆", items[0].ProjectName)
}

func TestParseLineItems_MissingColumns(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"名称", "数量"},
		{"电缆", "100"},
	})

	_, err := ParseLineItems(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "项目编码")
}

func TestParseLineItems_BadQuantityDefaultsToZero(t *testing.T) {
	r := buildWorkbook(t, [][]interface{}{
		{"项目编码", "项目名称", "项目特征", "计量单位", "工程量"},
		{"0101", "电缆", "", "米", "详见图纸"},
	})

	items, err := ParseLineItems(r)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.0, items[0].Quantity)
}
