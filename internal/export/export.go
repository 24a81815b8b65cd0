package export

import (
	"fmt"
	"strings"
	"time"
)

// Filename builds the download name clients see, e.g.
// "reporte_SeaFarm_Industries_20260830.pdf".
func Filename(company string, at time.Time, ext string) string {
	name := strings.ReplaceAll(strings.TrimSpace(company), " ", "_")
	if name == "" {
		name = "reporte"
	}
	return fmt.Sprintf("reporte_%s_%s.%s", name, at.Format("20060102"), ext)
}

func formatQty(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
