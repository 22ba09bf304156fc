package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Compte 0001"))
	require.NoError(t, f.SetCellValue("Compte 0001", "A1", "Date"))
	require.NoError(t, f.SetCellValue("Compte 0001", "B1", "Libellé"))
	require.NoError(t, f.SetCellValue("Compte 0001", "A2", 45000))
	require.NoError(t, f.SetCellValue("Compte 0001", "B2", "  CARREFOUR  "))
	require.NoError(t, f.SetCellValue("Compte 0001", "C2", 12.5))

	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "hello"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestOpen_SheetNames(t *testing.T) {
	wb, err := Open(bytes.NewReader(buildWorkbook(t)))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Compte 0001", "Notes"}, wb.SheetNames())
}

func TestSheet_TypedCells(t *testing.T) {
	wb, err := Open(bytes.NewReader(buildWorkbook(t)))
	require.NoError(t, err)
	defer wb.Close()

	sh, err := wb.Sheet("Compte 0001")
	require.NoError(t, err)

	rows, cols := sh.Bounds()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 3, cols)

	date := sh.Cell(1, 0)
	assert.Equal(t, CellNumber, date.Type)
	assert.InDelta(t, 45000, date.Number, 0.0001)

	desc := sh.Cell(1, 1)
	assert.Equal(t, CellString, desc.Type)
	assert.Equal(t, "CARREFOUR", desc.Text)

	amount := sh.Cell(1, 2)
	assert.Equal(t, CellNumber, amount.Type)
	assert.InDelta(t, 12.5, amount.Number, 0.0001)

	assert.True(t, sh.Cell(0, 2).IsEmpty(), "missing cell in short row")
	assert.True(t, sh.Cell(10, 0).IsEmpty(), "row out of range")
	assert.True(t, sh.Cell(0, -1).IsEmpty(), "negative column")
}

func TestSheet_Unknown(t *testing.T) {
	wb, err := Open(bytes.NewReader(buildWorkbook(t)))
	require.NoError(t, err)
	defer wb.Close()

	_, err = wb.Sheet("Missing")
	assert.Error(t, err)
}

func TestOpen_NotAWorkbook(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte("Date;Libellé\n")))
	assert.Error(t, err)
}

func TestSheet_NonFiniteTextStaysString(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	for cell, v := range map[string]string{"A1": "NaN", "B1": "Inf", "C1": "-Infinity", "D1": "1e400"} {
		require.NoError(t, f.SetCellStr("Sheet1", cell, v))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	sh, err := wb.Sheet("Sheet1")
	require.NoError(t, err)

	for col := 0; col < 4; col++ {
		c := sh.Cell(0, col)
		assert.Equal(t, CellString, c.Type, c.Text)
	}
}
