package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quotelane/exchange-cli/internal/connection"
	"github.com/quotelane/exchange-cli/internal/model"
)

var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "Manage provider-buyer connections",
	Long:  "Commands for initiating connections, negotiating terms, and walking the accept/decline/terminate lifecycle.",
}

// -- connections list --

var connectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List connections",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		provider, _ := cmd.Flags().GetString("provider")
		buyer, _ := cmd.Flags().GetString("buyer")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		conns, err := env.Conns.List(ctx, connection.Filter{
			ProviderID: provider,
			BuyerID:    buyer,
			Status:     model.ConnectionStatus(status),
			Limit:      limit,
		})
		if err != nil {
			return eris.Wrap(err, "connections list")
		}

		if len(conns) == 0 {
			fmt.Fprintln(os.Stderr, "No connections found.")
			return nil
		}

		formatConnectionsList(os.Stdout, conns)
		return nil
	},
}

// -- connections show --

var connectionsShowCmd = &cobra.Command{
	Use:   "show <connection-id>",
	Short: "Show full details of a connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		conn, err := env.Conns.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "connections show")
		}
		return printJSON(os.Stdout, conn)
	},
}

// -- connections init --

var connectionsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initiate a connection between a provider and a buyer",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		actor, err := actorFromFlags(cmd)
		if err != nil {
			return err
		}

		provider, _ := cmd.Flags().GetString("provider")
		buyer, _ := cmd.Flags().GetString("buyer")
		msg, _ := cmd.Flags().GetString("message")

		// The initiating party may omit its own id.
		if provider == "" && actor.Role == model.RoleProvider {
			provider = actor.ID
		}
		if buyer == "" && actor.Role == model.RoleBuyer {
			buyer = actor.ID
		}

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		conn, err := env.Conns.Initiate(ctx, actor, provider, buyer, msg)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, conn)
	},
}

// -- connections set-terms / update-terms --

var connectionsSetTermsCmd = &cobra.Command{
	Use:   "set-terms <connection-id>",
	Short: "Propose contract terms as the buyer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTermsChange(cmd, args[0], false)
	},
}

var connectionsUpdateTermsCmd = &cobra.Command{
	Use:   "update-terms <connection-id>",
	Short: "Revise the terms of an active connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTermsChange(cmd, args[0], true)
	},
}

func runTermsChange(cmd *cobra.Command, connID string, revise bool) error {
	ctx := cmd.Context()

	actor, err := actorFromFlags(cmd)
	if err != nil {
		return err
	}
	terms := termsFromFlags(cmd)

	env, err := initExchange(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	var conn *model.Connection
	if revise {
		conn, err = env.Conns.UpdateTerms(ctx, actor, connID, terms)
	} else {
		conn, err = env.Conns.SetTerms(ctx, actor, connID, terms)
	}
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, conn)
}

// -- connections accept / decline / reject / terminate --

var connectionsAcceptCmd = &cobra.Command{
	Use:   "accept <connection-id>",
	Short: "Accept the proposed terms as the provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, args[0], connection.OpAccept)
	},
}

var connectionsDeclineCmd = &cobra.Command{
	Use:   "decline <connection-id>",
	Short: "Decline the proposed terms as the provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, args[0], connection.OpDecline)
	},
}

var connectionsRejectCmd = &cobra.Command{
	Use:   "reject <connection-id>",
	Short: "Reject the connection as the buyer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, args[0], connection.OpReject)
	},
}

var connectionsTerminateCmd = &cobra.Command{
	Use:   "terminate <connection-id>",
	Short: "Terminate an active connection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTransition(cmd, args[0], connection.OpTerminate)
	},
}

func runTransition(cmd *cobra.Command, connID, op string) error {
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

	var conn *model.Connection
	switch op {
	case connection.OpAccept:
		conn, err = env.Conns.Accept(ctx, actor, connID)
	case connection.OpDecline:
		conn, err = env.Conns.Decline(ctx, actor, connID)
	case connection.OpReject:
		conn, err = env.Conns.Reject(ctx, actor, connID)
	case connection.OpTerminate:
		reason, _ := cmd.Flags().GetString("reason")
		conn, err = env.Conns.Terminate(ctx, actor, connID, reason)
	default:
		return eris.Errorf("unknown operation: %s", op)
	}
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, conn)
}

func init() {
	registerActorFlags(connectionsCmd)

	connectionsListCmd.Flags().String("provider", "", "filter by provider id")
	connectionsListCmd.Flags().String("buyer", "", "filter by buyer id")
	connectionsListCmd.Flags().String("status", "", "filter by status (pending_buyer_review, active, terminated, ...)")
	connectionsListCmd.Flags().Int("limit", 50, "max number of connections to display")

	connectionsInitCmd.Flags().String("provider", "", "provider id (defaults to --as-provider)")
	connectionsInitCmd.Flags().String("buyer", "", "buyer id (defaults to --as-buyer)")
	connectionsInitCmd.Flags().String("message", "", "free-text note to the other party")

	registerTermsFlags(connectionsSetTermsCmd)
	registerTermsFlags(connectionsUpdateTermsCmd)

	connectionsTerminateCmd.Flags().String("reason", "", "why the connection is ending")

	connectionsCmd.AddCommand(connectionsListCmd)
	connectionsCmd.AddCommand(connectionsShowCmd)
	connectionsCmd.AddCommand(connectionsInitCmd)
	connectionsCmd.AddCommand(connectionsSetTermsCmd)
	connectionsCmd.AddCommand(connectionsUpdateTermsCmd)
	connectionsCmd.AddCommand(connectionsAcceptCmd)
	connectionsCmd.AddCommand(connectionsDeclineCmd)
	connectionsCmd.AddCommand(connectionsRejectCmd)
	connectionsCmd.AddCommand(connectionsTerminateCmd)
	rootCmd.AddCommand(connectionsCmd)
}

// registerActorFlags adds the identity flags mutating commands read.
func registerActorFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("as-provider", "", "act as this provider id")
	cmd.PersistentFlags().String("as-buyer", "", "act as this buyer id")
	cmd.PersistentFlags().String("as-admin", "", "act as this admin id")
}

// actorFromFlags resolves the acting identity. Exactly one identity flag
// must be set.
func actorFromFlags(cmd *cobra.Command) (model.Actor, error) {
	provider, _ := cmd.Flags().GetString("as-provider")
	buyer, _ := cmd.Flags().GetString("as-buyer")
	admin, _ := cmd.Flags().GetString("as-admin")

	var actors []model.Actor
	if provider != "" {
		actors = append(actors, model.Actor{ID: provider, Role: model.RoleProvider})
	}
	if buyer != "" {
		actors = append(actors, model.Actor{ID: buyer, Role: model.RoleBuyer})
	}
	if admin != "" {
		actors = append(actors, model.Actor{ID: admin, Role: model.RoleAdmin})
	}

	switch len(actors) {
	case 1:
		return actors[0], nil
	case 0:
		return model.Actor{}, eris.New("one of --as-provider, --as-buyer, or --as-admin is required")
	default:
		return model.Actor{}, eris.New("set exactly one of --as-provider, --as-buyer, or --as-admin")
	}
}

func registerTermsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("rate", 0, "payout per lead in dollars (required)")
	cmd.Flags().String("timing", "weekly", "payment timing: per_lead, weekly, biweekly, monthly")
	cmd.Flags().Float64("minimum-payout", 0, "minimum accrued payout before settlement")
	cmd.Flags().StringSlice("lead-types", nil, "accepted lead types (call, quote)")
	cmd.Flags().Bool("exclusive", false, "ask the provider for exclusivity")
	cmd.Flags().Int("notice-days", 0, "termination notice period in days")
	cmd.Flags().Int("weekly-limit", 0, "weekly lead cap, 0 for uncapped")
	cmd.Flags().Int("monthly-limit", 0, "monthly lead cap, 0 for uncapped")
	cmd.Flags().Bool("pause-at-cap", false, "block submissions once a cap window fills")
	_ = cmd.MarkFlagRequired("rate")
}

func termsFromFlags(cmd *cobra.Command) model.ContractTerms {
	rate, _ := cmd.Flags().GetFloat64("rate")
	timing, _ := cmd.Flags().GetString("timing")
	minPayout, _ := cmd.Flags().GetFloat64("minimum-payout")
	leadTypes, _ := cmd.Flags().GetStringSlice("lead-types")
	exclusive, _ := cmd.Flags().GetBool("exclusive")
	notice, _ := cmd.Flags().GetInt("notice-days")
	weekly, _ := cmd.Flags().GetInt("weekly-limit")
	monthly, _ := cmd.Flags().GetInt("monthly-limit")
	pause, _ := cmd.Flags().GetBool("pause-at-cap")

	return model.ContractTerms{
		RatePerLead:         rate,
		PaymentTiming:       model.PaymentTiming(timing),
		MinimumPayout:       minPayout,
		LeadTypes:           leadTypes,
		Exclusive:           exclusive,
		TerminationNotice:   notice,
		WeeklyLeadLimit:     weekly,
		MonthlyLeadLimit:    monthly,
		PauseWhenCapReached: pause,
	}
}

// formatConnectionsList writes a tabular list of connections to w.
func formatConnectionsList(out io.Writer, conns []model.Connection) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROVIDER\tBUYER\tSTATUS\tRATE\tLEADS\tPAID\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t-----\t------\t----\t-----\t----\t-------")

	for _, c := range conns {
		rate := "-"
		if c.Terms != nil {
			rate = fmt.Sprintf("$%.2f", c.Terms.RatePerLead)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t$%.2f\t%s\n",
			truncateID(c.ID),
			c.ProviderID,
			c.BuyerID,
			c.Status,
			rate,
			c.TotalLeads,
			c.TotalPaid,
			c.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
