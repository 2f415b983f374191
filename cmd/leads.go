package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/ledger"
	"github.com/quotelane/exchange-cli/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Submit and track leads",
	Long:  "Commands for submitting leads under active connections, working the buyer intake funnel, and sweeping stale leads.",
}

// -- leads submit --

var leadsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a lead under an active connection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}

		connID, _ := cmd.Flags().GetString("connection")
		name, _ := cmd.Flags().GetString("name")
		phone, _ := cmd.Flags().GetString("phone")
		email, _ := cmd.Flags().GetString("email")
		state, _ := cmd.Flags().GetString("state")
		vehicle, _ := cmd.Flags().GetString("vehicle")
		quoteType, _ := cmd.Flags().GetString("type")
		quotePath, _ := cmd.Flags().GetString("quote")

		var quote *model.Quote
		if quotePath != "" {
			data, err := os.ReadFile(quotePath)
			if err != nil {
				return eris.Wrap(err, "read quote")
			}
			quote = &model.Quote{}
			if err := json.Unmarshal(data, quote); err != nil {
				return eris.Wrap(err, "parse quote")
			}
		}

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Leads.Submit(ctx, actor, ledger.SubmitInput{
			ConnectionID:  connID,
			CustomerName:  name,
			CustomerPhone: phone,
			CustomerEmail: email,
			CustomerState: state,
			Vehicle:       vehicle,
			QuoteType:     model.QuoteType(quoteType),
			Quote:         quote,
		})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, lead)
	},
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		connID, _ := cmd.Flags().GetString("connection")
		provider, _ := cmd.Flags().GetString("provider")
		buyer, _ := cmd.Flags().GetString("buyer")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		leads, err := env.Leads.List(ctx, ledger.Filter{
			ConnectionID: connID,
			ProviderID:   provider,
			BuyerID:      buyer,
			Status:       model.LeadStatus(status),
			Limit:        limit,
		})
		if err != nil {
			return eris.Wrap(err, "leads list")
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

// -- leads show --

var leadsShowCmd = &cobra.Command{
	Use:   "show <lead-id>",
	Short: "Show full details of a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Leads.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "leads show")
		}
		return printJSON(os.Stdout, lead)
	},
}

// -- leads status --

var leadsStatusCmd = &cobra.Command{
	Use:   "status <lead-id> <claimed|converted|rejected|expired>",
	Short: "Move a lead through the intake funnel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Leads.UpdateStatus(ctx, actor, args[0], model.LeadStatus(args[1]))
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, lead)
	},
}

// -- leads expire --

var leadsExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire pending leads older than the cutoff",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		maxAge, _ := cmd.Flags().GetDuration("max-age")
		if maxAge == 0 {
			maxAge = time.Duration(cfg.Expiry.MaxAgeHours) * time.Hour
		}

		n, err := env.Leads.ExpireStale(ctx, maxAge)
		if err != nil {
			return err
		}
		zap.L().Info("expiry sweep complete", zap.Int("expired", n))
		fmt.Printf("Expired %d leads.\n", n)
		return nil
	},
}

func init() {
	registerActorFlags(leadsCmd)

	leadsSubmitCmd.Flags().String("connection", "", "connection id (required)")
	leadsSubmitCmd.Flags().String("name", "", "customer name (required)")
	leadsSubmitCmd.Flags().String("phone", "", "customer phone")
	leadsSubmitCmd.Flags().String("email", "", "customer email")
	leadsSubmitCmd.Flags().String("state", "", "customer state, e.g. OH")
	leadsSubmitCmd.Flags().String("vehicle", "", "vehicle description, e.g. '2021 Honda Accord'")
	leadsSubmitCmd.Flags().String("type", "quote", "lead type: call or quote")
	leadsSubmitCmd.Flags().String("quote", "", "JSON file with the rated quote to attach")
	_ = leadsSubmitCmd.MarkFlagRequired("connection")
	_ = leadsSubmitCmd.MarkFlagRequired("name")

	leadsListCmd.Flags().String("connection", "", "filter by connection id")
	leadsListCmd.Flags().String("provider", "", "filter by provider id")
	leadsListCmd.Flags().String("buyer", "", "filter by buyer id")
	leadsListCmd.Flags().String("status", "", "filter by status (pending, claimed, converted, rejected, expired)")
	leadsListCmd.Flags().Int("limit", 50, "max number of leads to display")

	leadsExpireCmd.Flags().Duration("max-age", 0, "pending age before expiry (default from config)")

	leadsCmd.AddCommand(leadsSubmitCmd)
	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsShowCmd)
	leadsCmd.AddCommand(leadsStatusCmd)
	leadsCmd.AddCommand(leadsExpireCmd)
	rootCmd.AddCommand(leadsCmd)
}

// formatLeadsList writes a tabular list of leads to w.
func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCONNECTION\tCUSTOMER\tTYPE\tSTATUS\tPAYOUT\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----------\t--------\t----\t------\t------\t-------")

	for _, l := range leads {
		customer := l.CustomerName
		if len(customer) > 30 {
			customer = customer[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t$%.2f\t%s\n",
			truncateID(l.ID),
			truncateID(l.ConnectionID),
			customer,
			l.QuoteType,
			l.Status,
			l.Payout,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
