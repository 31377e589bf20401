package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"creditflow/internal/adapters/messaging"
	"creditflow/internal/app"
	"creditflow/internal/config"
	"creditflow/internal/pkg/jwt"

	"github.com/spf13/cobra"
)

func topologyCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Declare broker exchanges and queues (safe to repeat)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cancel, err := setup(*timeout)
			if err != nil {
				return err
			}
			defer cancel()

			gw := messaging.NewGateway("creditctl", e.cfg.RabbitMQ, e.cfg.Consumer, e.log)
			defer gw.Close()

			if err := gw.Connect(e.ctx); err != nil {
				return err
			}
			if err := gw.DeclareTopology(e.ctx); err != nil {
				return err
			}

			r := e.cfg.RabbitMQ
			fmt.Printf("exchange %-20s -> queue %s\n", r.RequestCreatedExchange, r.RequestsQueue)
			fmt.Printf("exchange %-20s -> queue %s\n", r.CreditDecisionsExchange, r.DecisionsQueue)
			return nil
		},
	}
}

func evaluateCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate [id]",
		Short: "Evaluate a pending credit request now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid request id %q", args[0])
			}

			e, cancel, err := setup(*timeout)
			if err != nil {
				return err
			}
			defer cancel()

			c, err := app.New(e.ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer c.Close()

			req, err := c.Service.Evaluate(e.ctx, uint(id))
			if req != nil {
				fmt.Printf("request %d: %s\n", req.ID, req.Status)
				if req.RejectionReason != nil {
					fmt.Printf("reason: %s\n", *req.RejectionReason)
				}
			}
			return err
		},
	}
}

func reconcileCmd(timeout *time.Duration) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconcile sweep, re-publishing undelivered events",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cancel, err := setup(*timeout)
			if err != nil {
				return err
			}
			defer cancel()

			c, err := app.New(e.ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Reconcile.RunOnce(e.ctx)
			if err != nil {
				return err
			}
			fmt.Printf("republished created: %d\nrepublished decisions: %d\nfailed: %d\n",
				res.RepublishedCreated, res.RepublishedDecisions, res.Failed)
			return nil
		},
	}
}

func listCmd(timeout *time.Duration) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored credit requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cancel, err := setup(*timeout)
			if err != nil {
				return err
			}
			defer cancel()

			c, err := app.NewStoreOnly(e.ctx, e.cfg, e.log)
			if err != nil {
				return err
			}
			defer c.Close()

			all, err := c.Store.GetAll(e.ctx)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(all)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAPPLICANT\tAMOUNT\tSTATUS\tREQUESTED")
			for _, r := range all {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					r.ID, r.ApplicantName, r.RequestedAmount.StringFixed(2), r.Status, r.RequestDate.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an API token with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			secret := cfg.JWT.Secret
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			token, err := jwt.GenerateToken(subject, role, secret, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Token subject")
	cmd.Flags().StringVar(&role, "role", "operator", "Role claim (operator, admin, clerk)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.MarkFlagRequired("subject")
	return cmd
}
