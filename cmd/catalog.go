package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

func newOperationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List supported operations",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, d := range cita.Operations() {
				var notes []string
				if d.SingleOffice {
					notes = append(notes, "single office")
				}
				if d.RequiresReason {
					notes = append(notes, "reason")
				}
				fmt.Fprintf(w, "%-6s %-26s fields=%s %s\n", d.Code, d.Name, fieldNames(d.Fields), strings.Join(notes, ","))
			}
		},
	}
}

func newProvincesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provinces",
		Short: "List provinces and the portal application serving each",
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			for _, p := range cita.Provinces() {
				name, _ := cita.LookupProvince(p)
				r := cita.RouteFor(p)
				fmt.Fprintf(w, "%-3s %-16s %s\n", p, name, r.Category)
			}
		},
	}
}

func fieldNames(fs []cita.FieldRole) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}
