package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/verse91/clipy/internal/credits"
)

var _ list.Item = planItem{}

// planItem wraps [credits.Plan] to implement [list.Item].
type planItem struct {
	plan credits.Plan
}

func (i planItem) FilterValue() string { return i.plan.ID }
func (i planItem) Title() string {
	return fmt.Sprintf("%d credits • %s", i.plan.Credits, i.plan.PriceLabel())
}
func (i planItem) Description() string {
	parts := []string{}
	if was := i.plan.OriginalPriceLabel(); was != "" {
		parts = append(parts, "was "+was)
	}
	if off := i.plan.DiscountLabel(); off != "" {
		parts = append(parts, off)
	}
	if i.plan.Popular {
		parts = append(parts, "Most popular")
	}
	if len(parts) == 0 {
		return i.plan.BuyLabel()
	}
	return strings.Join(parts, " • ")
}

// newPlanList builds the drawer list with the default plan selected.
func newPlanList(plans []credits.Plan) list.Model {
	items := make([]list.Item, len(plans))
	selected := 0
	def := credits.DefaultPlan().ID
	for i, p := range plans {
		items[i] = planItem{plan: p}
		if p.ID == def {
			selected = i
		}
	}

	l := list.New(items, list.NewDefaultDelegate(), 60, 14)
	l.Title = credits.DrawerTitle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.Select(selected)
	return l
}
