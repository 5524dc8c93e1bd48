package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/ladder"
	"github.com/rickgao/predict-core/internal/model"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func renderUser(w io.Writer, s model.Session) {
	tw := newTable(w)
	fmt.Fprintf(tw, "id\t%d\n", s.User.ID)
	fmt.Fprintf(tw, "email\t%s\n", s.User.Email)
	fmt.Fprintf(tw, "name\t%s\n", s.User.DisplayName)
	if s.User.Balance != nil {
		fmt.Fprintf(tw, "balance\t%s\n", formatCents(*s.User.Balance))
	}
	tw.Flush()
}

func renderEvents(w io.Writer, events []api.APIEvent) {
	tw := newTable(w)
	fmt.Fprintln(tw, "EVENT\tMARKET\tSTATUS\tYES\tNO\tTITLE")
	for i := range events {
		e := events[i].ToModel()
		fmt.Fprintf(tw, "%d\t\t%s\t\t\t%s\n", e.ID, e.Status, e.Title)
		for _, m := range e.Markets {
			fmt.Fprintf(tw, "\t%d\t%s\t%s\t%s\t%s\n",
				m.ID, m.Status, m.YesProbability.StringFixed(2), m.NoProbability.StringFixed(2), m.Question)
		}
	}
	tw.Flush()
}

func renderMarkets(w io.Writer, markets []model.Market) {
	tw := newTable(w)
	fmt.Fprintln(tw, "MARKET\tEVENT\tYES\tNO\tVOLUME\tQUESTION")
	for _, m := range markets {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%s\n",
			m.ID, m.EventID, m.YesProbability.StringFixed(2), m.NoProbability.StringFixed(2), m.Volume, m.Question)
	}
	tw.Flush()
}

// renderLadder prints asks above bids, best prices nearest the middle.
// Synthetic levels are marked with "~".
func renderLadder(w io.Writer, marketID uint64, l ladder.Ladder) {
	tw := newTable(w)
	fmt.Fprintf(tw, "market %d\t\t\n", marketID)
	fmt.Fprintln(tw, "SIDE\tPRICE\tQTY")
	for i := len(l.Asks) - 1; i >= 0; i-- {
		writeLevel(tw, "ask", l.Asks[i])
	}
	for _, lvl := range l.Bids {
		writeLevel(tw, "bid", lvl)
	}
	tw.Flush()
}

func writeLevel(w io.Writer, side string, lvl ladder.Level) {
	mark := ""
	if lvl.Synthetic {
		mark = "~"
	}
	fmt.Fprintf(w, "%s\t%s\t%s%s\n", side, lvl.Price.StringFixed(2), lvl.Quantity.String(), mark)
}

func renderPositions(w io.Writer, positions []api.APIPosition) {
	tw := newTable(w)
	fmt.Fprintln(tw, "MARKET\tSIDE\tQTY\tAVG")
	for i := range positions {
		p := positions[i].ToModel()
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", p.MarketID, p.Side, p.Quantity, p.AveragePrice.StringFixed(2))
	}
	tw.Flush()
}

func renderOrders(w io.Writer, orders []api.APIOrder) {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tMARKET\tSIDE\tACTION\tPRICE\tQTY\tREMAINING\tSTATUS")
	for i := range orders {
		o := orders[i].ToModel()
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			o.ID, o.MarketID, o.Side, o.Action, o.Price, o.Quantity, o.Remaining(), o.Status)
	}
	tw.Flush()
}
