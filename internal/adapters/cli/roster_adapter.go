package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// RosterAdapter prints the configured buses.
type RosterAdapter struct {
	roster secondary.Roster
	out    io.Writer
}

// NewRosterAdapter creates a new RosterAdapter.
func NewRosterAdapter(roster secondary.Roster, out io.Writer) *RosterAdapter {
	return &RosterAdapter{roster: roster, out: out}
}

// Show lists buses sorted by code.
func (a *RosterAdapter) Show() []models.Bus {
	buses := a.roster.Buses()
	sort.Slice(buses, func(i, j int) bool { return buses[i].Code < buses[j].Code })

	if len(buses) == 0 {
		fmt.Fprintln(a.out, "No buses configured.")
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Add buses to the roster file:")
		fmt.Fprintln(a.out, "  buses:")
		fmt.Fprintln(a.out, "    - code: BUS1")
		fmt.Fprintln(a.out, "      name: Main route")
		return buses
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tOPENING BALANCE")
	fmt.Fprintln(w, "----\t----\t---------------")
	for _, b := range buses {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Code, b.Name, rupees(b.OpeningBalance))
	}
	w.Flush()
	return buses
}
