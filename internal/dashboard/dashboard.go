// Package dashboard renders vehicle telemetry as a plain-text frame.
package dashboard

import (
	"fmt"
	"io"
	"math"
	"strings"

	"codeberg.org/mutker/evdash/internal/telemetry"
	"codeberg.org/mutker/evdash/internal/vehicle"
	"github.com/gosuri/uitable"
)

const (
	barWidth     = 20
	maxColWidth  = 48
	consumingTag = "CONSUMING"
	lowTag       = "LOW"
)

// Render writes one dashboard frame for d. The trip section is omitted when
// summary is nil.
func Render(w io.Writer, title string, d vehicle.Display, summary *telemetry.TripSummary) error {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.Separator = "  "

	s := d.State

	table.AddRow(title, d.Status)
	table.AddRow("SPEED", fmt.Sprintf("%s KM/H", round(s.Speed)), bar(s.Speed, vehicle.MaxSpeed))
	table.AddRow("GEAR", s.Gear.String())
	table.AddRow("POWER", fmt.Sprintf("%s%%", round(s.Power)), bar(s.Power, vehicle.MaxPower))
	table.AddRow("BATTERY", batteryLabel(d), bar(s.BatteryLevel, vehicle.MaxBattery))
	table.AddRow("VOLTAGE", fmt.Sprintf("%.1fV", d.Voltage))
	table.AddRow("CURRENT", fmt.Sprintf("%.1fA", d.Current))
	table.AddRow("TEMP", fmt.Sprintf("%s°C", round(d.Temperature)))
	table.AddRow("RANGE", fmt.Sprintf("%d KM", d.RangeKm))
	table.AddRow("MODE", d.Mode)
	if d.Consuming {
		table.AddRow("", consumingTag)
	}

	if summary != nil {
		table.AddRow("")
		table.AddRow("TRIP", fmt.Sprintf("%d samples", summary.Samples), summary.Duration.String())
		table.AddRow("MAX SPEED", fmt.Sprintf("%s KM/H", round(summary.MaxSpeed)))
		table.AddRow("AVG SPEED", fmt.Sprintf("%s KM/H", round(summary.AvgSpeed)))
		table.AddRow("AVG POWER", fmt.Sprintf("%s%%", round(summary.AvgPower)))
		table.AddRow("BATTERY USED", fmt.Sprintf("%.2f%%", summary.BatteryUsed))
	}

	_, err := fmt.Fprintln(w, table.String())
	return err
}

func batteryLabel(d vehicle.Display) string {
	label := fmt.Sprintf("%s%% (%s)", round(d.State.BatteryLevel), d.Band)
	if d.BatteryLow {
		label += " " + lowTag
	}
	return label
}

// round matches the gauges, which round half away from zero.
func round(v float64) string {
	return fmt.Sprintf("%.0f", math.Round(v))
}

func bar(v, full float64) string {
	filled := int(math.Round(vehicle.Clamp(v/full, 0, 1) * barWidth))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}
