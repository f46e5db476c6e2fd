package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/domain"
	"github.com/urbanmart/sales-dashboard/internal/export"
	"github.com/urbanmart/sales-dashboard/internal/logger"
	"github.com/urbanmart/sales-dashboard/internal/narrative"
	"github.com/urbanmart/sales-dashboard/internal/query"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "summary":
		runSummary(log)
	case "top":
		runTop(log)
	case "insights":
		runInsights(log)
	case "export":
		runExport(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("UrbanMart Sales CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  summary   Print KPI summary for a filtered view")
	fmt.Println("  top       Print top-N ranking for a dimension")
	fmt.Println("  insights  Print best performers and recommendation text")
	fmt.Println("  export    Write the filtered view to a CSV file")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// filterFlags collects the filter options shared by every command.
type filterFlags struct {
	data       *string
	start      *string
	end        *string
	stores     *string
	channel    *string
	categories *string
	segments   *string
	payments   *string
	highValue  *float64
}

func addFilterFlags(fs *flag.FlagSet) *filterFlags {
	return &filterFlags{
		data:       fs.String("data", "urbanmart_sales.csv", "Path to the sales CSV"),
		start:      fs.String("start", "", "Start date (YYYY-MM-DD, inclusive)"),
		end:        fs.String("end", "", "End date (YYYY-MM-DD, inclusive)"),
		stores:     fs.String("stores", "", "Comma-separated store locations (empty keeps all)"),
		channel:    fs.String("channel", "All", "Channel, or \"All\""),
		categories: fs.String("categories", "", "Comma-separated product categories (empty keeps all)"),
		segments:   fs.String("segments", "", "Comma-separated customer segments (empty keeps all)"),
		payments:   fs.String("payments", "", "Comma-separated payment methods (empty keeps all)"),
		highValue:  fs.Float64("high-value", 0, "Keep only customers with at least this revenue (0 disables)"),
	}
}

func (f *filterFlags) criteria() (query.Criteria, error) {
	var c query.Criteria
	if *f.start != "" {
		d, err := civil.ParseDate(*f.start)
		if err != nil {
			return c, fmt.Errorf("invalid -start %q: %w", *f.start, err)
		}
		c.DateRange.Start = &d
	}
	if *f.end != "" {
		d, err := civil.ParseDate(*f.end)
		if err != nil {
			return c, fmt.Errorf("invalid -end %q: %w", *f.end, err)
		}
		c.DateRange.End = &d
	}
	c.StoreLocations = splitList(*f.stores)
	c.Channel = *f.channel
	c.Categories = splitList(*f.categories)
	c.Segments = splitList(*f.segments)
	c.PaymentMethods = splitList(*f.payments)
	if *f.highValue > 0 {
		c.HighValue = query.HighValueFilter{
			Enabled:   true,
			Threshold: decimal.NewFromFloat(*f.highValue),
		}
	}
	return c, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// filteredRows loads the dataset and applies the CLI filter flags. Load and
// criteria problems are fatal; the CLI has no recovery path.
func filteredRows(log zerolog.Logger, flags *filterFlags) []domain.TransactionLine {
	criteria, err := flags.criteria()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filter flags")
	}

	ctx := context.Background()
	table, err := dataset.Load(ctx, dataset.FileSource{Path: *flags.data}, domain.DefaultMargins)
	if err != nil {
		log.Fatal().Err(err).Str("path", *flags.data).Msg("Failed to load dataset")
	}

	rows, err := query.Filter(table, criteria)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid filter criteria")
	}
	return rows
}

func runSummary(log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	flags := addFilterFlags(fs)
	threshold := fs.Float64("threshold", 1000, "High-value customer revenue threshold")
	fs.Parse(os.Args[2:])

	rows := filteredRows(log, flags)
	summary := query.Summarize(rows, decimal.NewFromFloat(*threshold))
	growth := query.GrowthSummary(rows)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Rows\t%d\n", len(rows))
	fmt.Fprintf(w, "Total revenue\t%s\n", summary.TotalRevenue.StringFixed(2))
	fmt.Fprintf(w, "Transactions\t%d\n", summary.TransactionCount)
	fmt.Fprintf(w, "Avg revenue / transaction\t%s\n", summary.AvgRevenuePerTransaction.StringFixed(2))
	fmt.Fprintf(w, "Unique customers\t%d\n", summary.UniqueCustomers)
	fmt.Fprintf(w, "Avg customer value\t%s\n", summary.AvgCustomerValue.StringFixed(2))
	fmt.Fprintf(w, "Repeat purchase rate\t%.1f%%\n", summary.RepeatPurchaseRate)
	fmt.Fprintf(w, "High-value customers\t%d\n", summary.HighValueCustomers)
	fmt.Fprintf(w, "Estimated profit\t%s\n", summary.EstimatedProfit.StringFixed(2))
	fmt.Fprintf(w, "Margin coverage\t%.1f%%\n", summary.MarginCoverage)
	fmt.Fprintf(w, "MoM growth\t%.1f%%\n", growth.MonthOverMonth)
	fmt.Fprintf(w, "QoQ growth\t%.1f%%\n", growth.QuarterOverQuarter)
	w.Flush()
}

func runTop(log zerolog.Logger) {
	fs := flag.NewFlagSet("top", flag.ExitOnError)
	flags := addFilterFlags(fs)
	dim := fs.String("dim", "product", "Dimension: category|store|product|customer|segment|payment")
	n := fs.Int("n", 5, "Number of entries")
	fs.Parse(os.Args[2:])

	rows := filteredRows(log, flags)

	var key query.KeyFunc
	switch *dim {
	case "category":
		key = query.ByCategory
	case "store":
		key = query.ByStore
	case "product":
		key = query.ByProduct
	case "customer":
		key = query.ByCustomer
	case "segment":
		key = query.BySegment
	case "payment":
		key = query.ByPayment
	default:
		log.Fatal().Str("dim", *dim).Msg("Unknown dimension")
	}

	ranked := query.TopN(rows, key, query.LineRevenue, *n)
	shares := query.CumulativeShare(query.GroupSum(rows, key, query.LineRevenue))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKEY\tREVENUE\tCUM %")
	for i, g := range ranked {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.1f%%\n", i+1, g.Key, g.Total.StringFixed(2), shares[i].CumulativePercent)
	}
	w.Flush()
}

func runInsights(log zerolog.Logger) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	flags := addFilterFlags(fs)
	threshold := fs.Float64("threshold", 1000, "High-value customer revenue threshold")
	fs.Parse(os.Args[2:])

	rows := filteredRows(log, flags)
	insights := query.SelectInsights(rows)
	summary := query.Summarize(rows, decimal.NewFromFloat(*threshold))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, ins := range []query.Insight{
		insights.TopStore, insights.TopCategory,
		insights.BestChannelByAOV, insights.BestSegmentByACV,
	} {
		if ins.Available {
			fmt.Fprintf(w, "Best %s\t%s\t%s\n", ins.Dimension, ins.Key, ins.Value.StringFixed(2))
		} else {
			fmt.Fprintf(w, "Best %s\t(no data)\t\n", ins.Dimension)
		}
	}
	w.Flush()

	text, err := narrative.TemplateGenerator{}.Narrate(context.Background(), insights, summary)
	if err == nil {
		fmt.Println("\n" + text)
	}
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	flags := addFilterFlags(fs)
	out := fs.String("out", "filtered.csv", "Output CSV path")
	fs.Parse(os.Args[2:])

	rows := filteredRows(log, flags)

	f, err := os.Create(*out)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create output file")
	}
	defer f.Close()

	if err := export.WriteCSV(f, rows); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}
	fmt.Printf("Wrote %d rows to %s\n", len(rows), *out)
}
