package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cyramp/cyrscan/internal/entity"
	"github.com/cyramp/cyrscan/internal/jobcache"
	"github.com/cyramp/cyrscan/internal/packaging"
	"github.com/cyramp/cyrscan/internal/validation"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var (
		qr  string
		qty int
	)
	cmd := &cobra.Command{
		Use:   "validate <job> <part>",
		Short: "Check a part against a job workbook",
		Long: "Check a part against the CONTROLE sheet of a job workbook. With --qty the expected\n" +
			"quantity must match as well. Exits with status 2 when the part is rejected.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := ctx.ensureLoader()
			if err != nil {
				return err
			}
			req := validation.Request{JobNumber: args[0], PartID: args[1], QRCode: validation.FormatQRCode(qr)}
			if cmd.Flags().Changed("qty") {
				req.Quantity = &qty
			}

			v := validation.NewValidator(jobcache.New(loader.LoadJob, jobcache.WithLogger(ctx.logger)), ctx.logger)
			res := v.Validate(cmd.Context(), req)

			out := cmd.OutOrStdout()
			if ctx.jsonOutput {
				if err := writeJSON(out, res); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, renderTable(
					[]string{"Job", "Part", "Result", "Expected", "Job total"},
					[][]string{{req.JobNumber, req.PartID, res.Message, strconv.Itoa(res.ExpectedQuantity), strconv.Itoa(res.TotalQuantityJob)}},
					nil, 4, 5,
				))
			}
			if !res.Valid {
				return errRejected
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&qr, "qr", "", "Scanned QR code (membership check)")
	cmd.Flags().IntVar(&qty, "qty", 0, "Scanned quantity (quantity check)")
	cmd.MarkFlagsMutuallyExclusive("qr", "qty")
	return cmd
}

func newPartsCommand(ctx *commandContext) *cobra.Command {
	var details bool
	cmd := &cobra.Command{
		Use:   "parts <job>",
		Short: "List the parts a job workbook expects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := ctx.ensureLoader()
			if err != nil {
				return err
			}
			set, err := loader.LoadJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if details {
				occ := set.Occurrences()
				if ctx.jsonOutput {
					return writeJSON(out, occ)
				}
				rows := make([][]string, 0, len(occ))
				for _, o := range occ {
					seq := ""
					if o.Seq > 0 {
						seq = strconv.Itoa(o.Seq)
					}
					rows = append(rows, []string{o.PartID, seq, strconv.Itoa(o.Line)})
				}
				fmt.Fprintln(out, renderTable([]string{"Part", "Seq", "Line"}, rows,
					[]string{"Tags", strconv.Itoa(len(occ))}, 2, 3))
				return nil
			}

			parts := make([]entity.PartQuantity, 0)
			for _, id := range set.PartIDs() {
				q, _ := set.Expected(id)
				parts = append(parts, entity.PartQuantity{PartID: id, Quantity: q})
			}
			if ctx.jsonOutput {
				return writeJSON(out, parts)
			}
			rows := make([][]string, 0, len(parts))
			for _, p := range parts {
				rows = append(rows, []string{p.PartID, strconv.Itoa(p.Quantity)})
			}
			fmt.Fprintln(out, renderTable([]string{"Part", "Quantity"}, rows,
				[]string{"Total", strconv.Itoa(set.TotalQuantity())}, 2))
			return nil
		},
	}
	cmd.Flags().BoolVar(&details, "details", false, "Expand rows into individual expected tags")
	return cmd
}

func newWorkbooksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "workbooks",
		Short: "List job workbooks in the workbook directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := ctx.ensureLoader()
			if err != nil {
				return err
			}
			entries, err := loader.Locator().List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.jsonOutput {
				return writeJSON(out, entries)
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{e.JobNumber, e.Name})
			}
			fmt.Fprintln(out, renderTable([]string{"Job", "File"}, rows, nil))
			return nil
		},
	}
}

func newPackagingPreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "packaging-preview <job> <part=qty>...",
		Short: "Compute packaging lines and totals without writing a manifest",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantities, err := parseQuantities(args[1:])
			if err != nil {
				return err
			}
			loader, err := ctx.ensureLoader()
			if err != nil {
				return err
			}
			svc := packaging.NewService(nil, loader, nil, nil, nil, packaging.WithLogger(ctx.logger))
			m, err := svc.Preview(cmd.Context(), args[0], quantities)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.jsonOutput {
				return writeJSON(out, m)
			}
			rows := make([][]string, 0, len(m.Lines))
			for _, l := range m.Lines {
				rows = append(rows, []string{
					l.PartID, l.Height, l.Width, l.MaterialCode,
					strconv.Itoa(l.Quantity),
					strconv.FormatFloat(l.Area, 'f', 3, 64),
					strconv.FormatFloat(l.Mass, 'f', 2, 64),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Part", "Height", "Width", "Material", "Qty", "Area", "Mass"},
				rows,
				[]string{"Total", "", "", "", strconv.Itoa(m.TotalQuantity), "", strconv.FormatFloat(m.TotalMass, 'f', 2, 64)},
				5, 6, 7,
			))
			if len(m.Missing) > 0 {
				fmt.Fprintf(out, "Missing from PROJET: %s\n", strings.Join(m.Missing, ", "))
			}
			return nil
		},
	}
}

// parseQuantities reads "PART=QTY" arguments.
func parseQuantities(args []string) ([]entity.PartQuantity, error) {
	out := make([]entity.PartQuantity, 0, len(args))
	for _, a := range args {
		part, raw, ok := strings.Cut(a, "=")
		part = strings.TrimSpace(part)
		if !ok || part == "" {
			return nil, fmt.Errorf("expected PART=QTY, got %q", a)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid quantity in %q", a)
		}
		out = append(out, entity.PartQuantity{PartID: part, Quantity: n})
	}
	return out, nil
}
