package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/rfm"
	"github.com/ZanzyTHEbar/rfm-dashboard/internal/types"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rfmctl",
		Short:         "RFM scoring and revenue summaries for exported CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(scoreCmd())
	root.AddCommand(segmentsCmd())
	root.AddCommand(revenueCmd())
	return root
}

func scoreCmd() *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute R, F and M quintile scores for an RFM table",
		RunE: func(cmd *cobra.Command, args []string) error {
			customers, err := readCustomers(in)
			if err != nil {
				return err
			}
			scored, err := scoreTable(customers)
			if err != nil {
				return err
			}

			if out == "" {
				return dataset.WriteScoredCSV(cmd.OutOrStdout(), scored)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := writeAndClose(f, scored); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "scored %d customers into %s\n", len(scored), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", dataset.CustomersFile, "RFM CSV with Recency, Frequency and Monetary columns")
	cmd.Flags().StringVar(&out, "out", "", "write the scored CSV here instead of stdout")
	return cmd
}

// writeAndClose writes the scored CSV and closes w. A failed close means the
// data may not have reached the disk, so it is reported like a failed write
func writeAndClose(w io.WriteCloser, scored []rfm.Scored) error {
	if err := dataset.WriteScoredCSV(w, scored); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func segmentsCmd() *cobra.Command {
	var in string
	var top int

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "Show the most common RFM codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			customers, err := readCustomers(in)
			if err != nil {
				return err
			}

			var codes []string
			if customers.HasScore {
				codes = customers.Scores()
			} else {
				scored, err := scoreTable(customers)
				if err != nil {
					return err
				}
				codes = rfm.Codes(scored)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RFM\tcount\tsegment")
			for _, s := range rfm.TopSegments(codes, top) {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Code, s.Count, s.Segment)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&in, "in", dataset.CustomersFile, "RFM CSV")
	cmd.Flags().IntVar(&top, "top", rfm.DefaultTopSegments, "number of segments to show, 0 for all")
	return cmd
}

func revenueCmd() *cobra.Command {
	var path, start, end, country string

	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Monthly revenue of an orders CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			orders, err := dataset.ParseOrders(f)
			if err != nil {
				return err
			}

			filter := dataset.Filter{Country: country}
			if filter.Start, err = parseDay("start", start); err != nil {
				return err
			}
			if filter.End, err = parseDay("end", end); err != nil {
				return err
			}
			filtered := orders.Filter(filter)

			return writeRevenue(cmd.OutOrStdout(), filtered)
		},
	}

	cmd.Flags().StringVar(&path, "orders", dataset.OrdersFile, "orders CSV with InvoiceDate and TotalAmount")
	cmd.Flags().StringVar(&start, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&country, "country", dataset.AllCountries, "country filter")
	return cmd
}

func writeRevenue(w io.Writer, orders *dataset.Orders) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "month\ttotal_amount\t")
	for _, p := range dataset.MonthlyRevenue(orders) {
		fmt.Fprintf(tw, "%s\t%s\t\n", p.InvoiceDate.Format(types.DateLayout), p.Sum.StringFixed(2))
	}
	fmt.Fprintf(tw, "total\t%s\t\n", dataset.TotalRevenue(orders).StringFixed(2))
	return tw.Flush()
}

func readCustomers(path string) (*dataset.Customers, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dataset.ParseCustomers(f)
}

func scoreTable(customers *dataset.Customers) ([]rfm.Scored, error) {
	if !customers.HasRFM {
		return nil, errors.New("the RFM file needs Recency, Frequency and Monetary columns to be scored")
	}
	return rfm.Score(customers.RFMCustomers())
}

func parseDay(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(types.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", name, err)
	}
	return t, nil
}
