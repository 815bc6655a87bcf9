package main

import (
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "Show the configured size classes",
		Long: `The classes command prints the size classes an allocator would be
built with, after sorting and validation.

Example:
  slabctl classes
  slabctl classes --class 16:64KiB --class 256:1MiB --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
}

type classRow struct {
	Spec        string `json:"spec"`
	SlotSize    int    `json:"slot_size"`
	Slots       int    `json:"slots"`
	RegionBytes int    `json:"region_bytes"`
}

func runClasses() error {
	a, err := newAllocator()
	if err != nil {
		return err
	}

	var rows []classRow
	for _, c := range a.Classes() {
		rows = append(rows, classRow{
			Spec:        formatClassSpec(c),
			SlotSize:    c.SlotSize,
			Slots:       c.Slots(),
			RegionBytes: c.RegionSize,
		})
	}

	if jsonOut {
		return printJSON(rows)
	}

	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "SLOT\tSLOTS\tREGION\t\n")
	for _, r := range rows {
		p.Fprintf(tw, "%d\t%d\t%s\t\n", r.SlotSize, r.Slots, humanize.IBytes(uint64(r.RegionBytes))) //nolint:gosec // positive
	}
	return tw.Flush()
}
