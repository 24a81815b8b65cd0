// Package export renders composed report data into client documents.
// Rendering failures are returned as plain errors so callers can degrade
// to the inline HTML view instead of failing the request.
package export

import (
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/algasur/algatrack/internal/services"
)

const dateLayout = "02/01/2006"

// PDF renders the report as a tabular PDF. No charts: plain tables keep
// the output reliable across viewers.
func PDF(data *services.ReportData) ([]byte, string, error) {
	cfg := config.NewBuilder().
		WithLeftMargin(15).
		WithRightMargin(15).
		WithTopMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12, text.NewCol(12,
		fmt.Sprintf("Reporte de Producción - %s", data.Config.Company),
		props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}))

	addMetaRow(m, "País", data.Config.Country)
	addMetaRow(m, "Período", fmt.Sprintf("%s - %s",
		data.From.Format(dateLayout), data.To.Format(dateLayout)))
	addMetaRow(m, "Unidad", data.UnitLabel)
	addMetaRow(m, "Fecha de Generación", data.GeneratedAt.Format("02/01/2006 15:04"))
	m.AddRow(4)

	if len(data.Species) > 0 {
		m.AddRow(8,
			text.NewCol(6, "Tipo de Alga", props.Text{Style: fontstyle.Bold}),
			text.NewCol(3, fmt.Sprintf("Total (%s)", data.UnitLabel), props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.NewCol(3, "Registros", props.Text{Style: fontstyle.Bold, Align: align.Right}))
		for _, s := range data.Species {
			m.AddRow(6,
				text.NewCol(6, s.Name),
				text.NewCol(3, formatQty(s.Total), props.Text{Align: align.Right}),
				text.NewCol(3, fmt.Sprintf("%d", s.Count), props.Text{Align: align.Right}))
		}
		m.AddRow(4)
	}

	if len(data.Monthly) > 0 {
		m.AddRow(8, text.NewCol(12, "Producción Mensual", props.Text{Size: 12, Style: fontstyle.Bold}))
		for _, mb := range data.Monthly {
			m.AddRow(6,
				text.NewCol(4, mb.Month),
				text.NewCol(4, formatQty(mb.Total), props.Text{Align: align.Right}))
		}
		m.AddRow(4)
	}

	if data.Capacity != nil {
		m.AddRow(8, text.NewCol(12, "Capacidad Productiva", props.Text{Size: 12, Style: fontstyle.Bold}))
		c := data.Capacity
		if data.Config.ShowCapacity {
			addMetaRow(m, "Capacidad Mensual Máxima", formatQty(c.MaxMonthly)+" "+data.UnitLabel)
			addMetaRow(m, "Volumen Producido", formatQty(c.Produced)+" "+data.UnitLabel)
			addMetaRow(m, "% Utilizado", fmt.Sprintf("%.2f%%", c.UtilizationPercent))
		}
		if data.Config.ShowAvailability {
			addMetaRow(m, "Disponibilidad Mensual", formatQty(c.Availability)+" "+data.UnitLabel)
			addMetaRow(m, "% Disponible", fmt.Sprintf("%.2f%%", c.AvailabilityPercent))
		}
		m.AddRow(4)
	}

	if len(data.Records) > 0 {
		m.AddRow(8, text.NewCol(12, "Registros Detallados", props.Text{Size: 12, Style: fontstyle.Bold}))
		m.AddRow(7,
			text.NewCol(3, "Fecha", props.Text{Style: fontstyle.Bold}),
			text.NewCol(3, "Tipo", props.Text{Style: fontstyle.Bold}),
			text.NewCol(2, "Cantidad", props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.NewCol(2, "Sector", props.Text{Style: fontstyle.Bold}),
			text.NewCol(2, "Usuario", props.Text{Style: fontstyle.Bold}))
		for _, r := range data.Records {
			species, author := "", ""
			if r.AlgaeType != nil {
				species = r.AlgaeType.Name
			}
			if r.User != nil {
				author = r.User.Username
			}
			m.AddRow(6,
				text.NewCol(3, r.CreatedAt.Format(dateLayout)),
				text.NewCol(3, species),
				text.NewCol(2, formatQty(r.Quantity*data.Factor), props.Text{Align: align.Right}),
				text.NewCol(2, r.Sector),
				text.NewCol(2, author))
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("pdf generation failed: %w", err)
	}
	return doc.GetBytes(), Filename(data.Config.Company, data.GeneratedAt, "pdf"), nil
}

func addMetaRow(m core.Maroto, label, value string) {
	m.AddRow(6,
		text.NewCol(4, label+":", props.Text{Style: fontstyle.Bold}),
		text.NewCol(8, value))
}
