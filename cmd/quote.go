package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/quotelane/exchange-cli/internal/model"
	"github.com/quotelane/exchange-cli/internal/rating"
)

var (
	quoteProfilePath string
	quoteInputPath   string
	quoteCarrierID   string
	quoteCatalogPath string
	quoteConcurrency int
	quoteJSON        bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Rate a customer profile against the carrier catalog",
	Long:  "Reads a rating profile from a JSON file (or stdin with --profile -) and prints every eligible carrier's offer, cheapest first. With --input, rates a JSONL file of profiles concurrently.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("quote"); err != nil {
			return err
		}

		catalog, err := loadCatalog(quoteCatalogPath)
		if err != nil {
			return err
		}
		engine := rating.New(catalog)

		if quoteInputPath != "" {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return quoteBatch(ctx, engine, quoteInputPath, quoteConcurrency, os.Stdout)
		}

		if quoteProfilePath == "" {
			return eris.New("either --profile or --input is required")
		}
		profile, err := readProfile(quoteProfilePath)
		if err != nil {
			return err
		}

		if quoteCarrierID != "" {
			q, err := engine.QuoteCarrier(profile, quoteCarrierID)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, q)
		}

		quotes, err := engine.Quote(profile)
		if err != nil {
			return err
		}
		if len(quotes) == 0 {
			fmt.Fprintln(os.Stderr, "No carriers quote this profile.")
			return nil
		}

		if quoteJSON {
			return printJSON(os.Stdout, quotes)
		}
		formatQuotes(os.Stdout, quotes)
		return nil
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteProfilePath, "profile", "", "rating profile JSON file, - for stdin")
	quoteCmd.Flags().StringVar(&quoteInputPath, "input", "", "JSONL file of rating profiles for batch mode")
	quoteCmd.Flags().StringVar(&quoteCarrierID, "carrier", "", "quote a single carrier by id")
	quoteCmd.Flags().StringVar(&quoteCatalogPath, "catalog", "", "carrier catalog YAML (default from config)")
	quoteCmd.Flags().IntVar(&quoteConcurrency, "concurrency", 4, "concurrent profiles in batch mode")
	quoteCmd.Flags().BoolVar(&quoteJSON, "json", false, "print quotes as JSON")
	rootCmd.AddCommand(quoteCmd)
}

func readProfile(path string) (*model.RatingProfile, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "read profile")
	}

	var profile model.RatingProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, eris.Wrap(err, "parse profile")
	}
	return &profile, nil
}

// batchResult is one JSONL output line of batch mode. Line numbers tie
// results back to the unordered input.
type batchResult struct {
	Line   int           `json:"line"`
	Quotes []model.Quote `json:"quotes,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// quoteBatch rates a JSONL file of profiles concurrently and streams
// one result line per profile to out.
func quoteBatch(ctx context.Context, engine *rating.Engine, path string, concurrency int, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrap(err, "open batch input")
	}
	defer f.Close() //nolint:errcheck

	if concurrency < 1 {
		concurrency = 1
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	var outMu sync.Mutex
	enc := json.NewEncoder(out)

	emit := func(res batchResult) {
		outMu.Lock()
		defer outMu.Unlock()
		_ = enc.Encode(res)
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		var profile model.RatingProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			failed.Add(1)
			emit(batchResult{Line: line, Error: err.Error()})
			continue
		}

		n := line
		g.Go(func() error {
			quotes, err := engine.Quote(&profile)
			if err != nil {
				failed.Add(1)
				zap.L().Error("rating failed", zap.Int("line", n), zap.Error(err))
				emit(batchResult{Line: n, Error: err.Error()})
				return nil // don't abort the batch on one bad profile
			}
			succeeded.Add(1)
			emit(batchResult{Line: n, Quotes: quotes})
			return nil
		})
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrap(err, "read batch input")
	}

	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "batch rating")
	}

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return nil
}

// formatQuotes writes a tabular quote comparison. Premiums are whole
// dollars with thousands separators.
func formatQuotes(out io.Writer, quotes []model.Quote) {
	p := message.NewPrinter(language.AmericanEnglish)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CARRIER\tRATING\tMONTHLY\tSEMIANNUAL\tANNUAL\tDISCOUNT\tSURCHARGE")
	_, _ = fmt.Fprintln(w, "-------\t------\t-------\t----------\t------\t--------\t---------")

	for _, q := range quotes {
		_, _ = p.Fprintf(w, "%s\t%.1f\t$%d\t$%d\t$%d\t-%.0f%%\t+%.0f%%\n",
			q.CarrierName,
			q.CarrierRating,
			q.MonthlyPremium,
			q.SemiannualPremium,
			q.AnnualPremium,
			q.TotalDiscount,
			q.TotalSurcharge,
		)
	}
	_ = w.Flush()
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
