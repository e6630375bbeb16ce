package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/isajjim/estimator/internal/export"
	"github.com/isajjim/estimator/internal/models"
	"github.com/isajjim/estimator/internal/session"
	"github.com/isajjim/estimator/internal/translate"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	truckStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderSummary formats the reviewed inventory for the terminal.
func renderSummary(state session.State) string {
	if state.Result == nil {
		return mutedStyle.Render("No analysis result.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("Estimate %d", state.EstimateID)))
	b.WriteString("\n")

	if truck, ok := state.Result.Truck(); ok {
		b.WriteString(truckStyle.Render(fmt.Sprintf("Truck: %s x %d", translate.TruckType(truck.ItemType), truck.Quantity)))
	} else {
		b.WriteString(mutedStyle.Render("Truck: " + translate.NoValue))
	}
	b.WriteString("\n")

	rows := export.Rows(state.EstimateID, *state.Result)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("ID", "Photo", "Item", "Type", "Qty")
	for _, r := range rows {
		t.Row(
			strconv.FormatInt(r.FurnitureID, 10),
			strconv.Itoa(r.ImageIndex+1),
			r.LabelName,
			r.TypeName,
			strconv.Itoa(r.Quantity),
		)
	}
	b.WriteString(t.String())
	b.WriteString("\n")

	if others := nonTruckItems(state.Result.Items); len(others) > 0 {
		b.WriteString(headingStyle.Render("Totals"))
		b.WriteString("\n")
		for _, item := range others {
			fmt.Fprintf(&b, "  %s %d\n", translate.Label(item.ItemType), item.Quantity)
		}
	}
	if state.Update == models.UpdateUpdating {
		b.WriteString(mutedStyle.Render("Recalculating..."))
		b.WriteString("\n")
	}
	return b.String()
}

func nonTruckItems(items []models.LineItem) []models.LineItem {
	var out []models.LineItem
	for _, item := range items {
		if item.Category != models.CategoryTruck {
			out = append(out, item)
		}
	}
	return out
}
