package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hupe1980/slabkit/internal/dump"
	"github.com/hupe1980/slabkit/internal/fs"
)

func init() {
	rootCmd.AddCommand(newInspectCmd())
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <dump>",
		Short: "Classify the slots of a region dump",
		Long: `The inspect command reads a dump written by "slabctl dump" or
Allocator.Dump and counts, per class, the slots that are free (poisoned),
handed out but untouched (scrubbed), and in use (live).

A free count that disagrees with the recorded allocation count points at a
write after free.

Example:
  slabctl inspect slab.dump
  slabctl inspect slab.dump --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
}

type inspectRow struct {
	dump.Classification
	Allocated      int    `json:"allocated"`
	FallbackAllocs uint64 `json:"fallback_allocs"`
	Consistent     bool   `json:"consistent"`
}

func runInspect(path string) error {
	f, err := fs.Open(fs.Default, path)
	if err != nil {
		return fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	d, err := dump.Read(f)
	if err != nil {
		return err
	}
	printVerbose("Dump version %d, %s compression, %d classes\n", d.Version, d.Compression, len(d.Classes))

	rows := make([]inspectRow, 0, len(d.Classes))
	for _, img := range d.Classes {
		cl := dump.Classify(img)
		rows = append(rows, inspectRow{
			Classification: cl,
			Allocated:      img.Allocated,
			FallbackAllocs: img.FallbackAllocs,
			Consistent:     cl.Poisoned == img.SlotCount-img.Allocated,
		})
	}

	if jsonOut {
		return printJSON(rows)
	}

	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "SLOT\tSLOTS\tALLOCATED\tPOISONED\tSCRUBBED\tLIVE\tFALLBACK\tOK\t\n")
	for _, r := range rows {
		p.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%d\t%t\t\n",
			r.SlotSize, r.Slots, r.Allocated, r.Poisoned, r.Scrubbed, r.Live, r.FallbackAllocs, r.Consistent)
	}
	return tw.Flush()
}
