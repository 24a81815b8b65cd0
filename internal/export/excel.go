package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/algasur/algatrack/internal/services"
)

const sheetName = "Reporte de Producción"

// Excel renders the report as a styled .xlsx workbook.
func Excel(data *services.ReportData) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, "", fmt.Errorf("excel sheet setup failed: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "E", 22); err != nil {
		return nil, "", fmt.Errorf("excel layout failed: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("excel style failed: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E7D32"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("excel style failed: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, "", fmt.Errorf("excel style failed: %w", err)
	}

	set := func(cell string, value interface{}) {
		_ = f.SetCellValue(sheetName, cell, value)
	}

	_ = f.MergeCell(sheetName, "A1", "E1")
	set("A1", fmt.Sprintf("Reporte de Producción - %s", data.Config.Company))
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	rowNum := 3
	meta := func(label, value string) {
		set(fmt.Sprintf("A%d", rowNum), label)
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), labelStyle)
		set(fmt.Sprintf("B%d", rowNum), value)
		rowNum++
	}
	meta("País", data.Config.Country)
	meta("Período", fmt.Sprintf("%s - %s", data.From.Format(dateLayout), data.To.Format(dateLayout)))
	meta("Unidad", data.UnitLabel)
	meta("Fecha de Generación", data.GeneratedAt.Format("02/01/2006 15:04"))
	rowNum++

	if len(data.Species) > 0 {
		header := []string{"Tipo de Alga", fmt.Sprintf("Total (%s)", data.UnitLabel), "Registros"}
		for i, h := range header {
			cell := fmt.Sprintf("%c%d", 'A'+i, rowNum)
			set(cell, h)
			_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}
		rowNum++
		for _, s := range data.Species {
			set(fmt.Sprintf("A%d", rowNum), s.Name)
			set(fmt.Sprintf("B%d", rowNum), round2cell(s.Total))
			set(fmt.Sprintf("C%d", rowNum), s.Count)
			rowNum++
		}
		rowNum++
	}

	if len(data.Monthly) > 0 && data.Config.ShowHistory {
		set(fmt.Sprintf("A%d", rowNum), "Producción Mensual")
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), labelStyle)
		rowNum++
		for _, m := range data.Monthly {
			set(fmt.Sprintf("A%d", rowNum), m.Month)
			set(fmt.Sprintf("B%d", rowNum), round2cell(m.Total))
			rowNum++
		}
		rowNum++
	}

	if data.Capacity != nil {
		set(fmt.Sprintf("A%d", rowNum), "Capacidad Productiva")
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), labelStyle)
		rowNum++
		c := data.Capacity
		if data.Config.ShowCapacity {
			meta("Capacidad Mensual Máxima", formatQty(c.MaxMonthly)+" "+data.UnitLabel)
			meta("Volumen Producido", formatQty(c.Produced)+" "+data.UnitLabel)
			meta("% Utilizado", fmt.Sprintf("%.2f%%", c.UtilizationPercent))
		}
		if data.Config.ShowAvailability {
			meta("Disponibilidad Mensual", formatQty(c.Availability)+" "+data.UnitLabel)
			meta("% Disponible", fmt.Sprintf("%.2f%%", c.AvailabilityPercent))
		}
		rowNum++
	}

	if len(data.Records) > 0 {
		header := []string{"Fecha", "Tipo de Alga", "Cantidad", "Sector", "Usuario"}
		for i, h := range header {
			cell := fmt.Sprintf("%c%d", 'A'+i, rowNum)
			set(cell, h)
			_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}
		rowNum++
		for _, r := range data.Records {
			species, author := "", ""
			if r.AlgaeType != nil {
				species = r.AlgaeType.Name
			}
			if r.User != nil {
				author = r.User.Username
			}
			set(fmt.Sprintf("A%d", rowNum), r.CreatedAt.Format(dateLayout))
			set(fmt.Sprintf("B%d", rowNum), species)
			set(fmt.Sprintf("C%d", rowNum), round2cell(r.Quantity*data.Factor))
			set(fmt.Sprintf("D%d", rowNum), r.Sector)
			set(fmt.Sprintf("E%d", rowNum), author)
			rowNum++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("excel generation failed: %w", err)
	}
	return buf.Bytes(), Filename(data.Config.Company, data.GeneratedAt, "xlsx"), nil
}

// round2cell keeps numeric cells numeric while matching the displayed
// two-decimal precision.
func round2cell(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
