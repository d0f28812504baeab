package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/server24/provisiond/internal/domain"
	"github.com/server24/provisiond/internal/service"
)

func newRegisterCommand(configPath *string) *cobra.Command {
	var username, fullName string

	cmd := &cobra.Command{
		Use:   "register <external-id>",
		Short: "Create or refresh a subscriber by platform account id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			externalID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid external id %q: %w", args[0], err)
			}

			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			sub, err := engine.RegisterSubscriber(cmd.Context(), externalID, username, fullName)
			if err != nil {
				return err
			}
			fmt.Printf("subscriber %d (external %d) balance %d\n", sub.ID, sub.ExternalID, sub.Balance)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display username")
	cmd.Flags().StringVar(&fullName, "full-name", "", "display full name")
	return cmd
}

func newIssueCommand(configPath *string) *cobra.Command {
	var (
		quota string
		days  int
		flow  string
	)

	cmd := &cobra.Command{
		Use:   "issue <subscriber-id>",
		Short: "Issue a credential for a subscriber",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subscriberID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid subscriber id %q: %w", args[0], err)
			}

			quotaBytes, err := parseQuota(quota)
			if err != nil {
				return err
			}

			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			res, err := engine.Issue(cmd.Context(), service.IssueRequest{
				SubscriberID: subscriberID,
				QuotaBytes:   quotaBytes,
				TTL:          time.Duration(days) * 24 * time.Hour,
				Flow:         flow,
			})
			if err != nil {
				return err
			}
			printIssued(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&quota, "quota", "0", "data quota, e.g. 10GB (0 = unlimited)")
	cmd.Flags().IntVar(&days, "days", 30, "validity in days")
	cmd.Flags().StringVar(&flow, "flow", "", "flow control tag")
	return cmd
}

func newPurchaseCommand(configPath *string) *cobra.Command {
	var (
		quota string
		days  int
		flow  string
	)

	cmd := &cobra.Command{
		Use:   "purchase <external-id>",
		Short: "Buy a credential against the subscriber's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			externalID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid external id %q: %w", args[0], err)
			}

			quotaBytes, err := parseQuota(quota)
			if err != nil {
				return err
			}

			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			res, err := engine.Purchase(cmd.Context(), service.PurchaseRequest{
				SubscriberExternalID: externalID,
				QuotaBytes:           quotaBytes,
				TTL:                  time.Duration(days) * 24 * time.Hour,
				Flow:                 flow,
			})
			if err != nil {
				return err
			}
			printIssued(&res.IssueResult)
			fmt.Printf("price %d, balance %d\n", res.Price, res.NewBalance)
			return nil
		},
	}
	cmd.Flags().StringVar(&quota, "quota", "10GB", "data quota, e.g. 10GB")
	cmd.Flags().IntVar(&days, "days", 30, "validity in days")
	cmd.Flags().StringVar(&flow, "flow", "", "flow control tag")
	return cmd
}

func newGetCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <credential-id>",
		Short: "Show a credential and its connection link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.CredentialIDFromString(args[0])
			if err != nil {
				return err
			}

			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			res, err := engine.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printCredential(res.Credential)
			fmt.Println(res.Link)
			return nil
		},
	}
}

func newRenewCommand(configPath *string) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "renew <credential-id>",
		Short: "Extend a credential's validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.CredentialIDFromString(args[0])
			if err != nil {
				return err
			}

			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			expiresAt, err := engine.Renew(cmd.Context(), id, time.Duration(days)*24*time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "days to add")
	return cmd
}

func newRevokeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <credential-id>",
		Short: "Revoke a credential everywhere",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.CredentialIDFromString(args[0])
			if err != nil {
				return err
			}

			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			res, err := engine.Revoke(cmd.Context(), id)
			if err != nil {
				return err
			}
			if res.Warning != nil {
				fmt.Printf("revoked with warning: %v\n", res.Warning)
				return nil
			}
			fmt.Println("revoked")
			return nil
		},
	}
}

func newListCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every issued credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			creds, err := engine.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			for _, cred := range creds {
				printCredential(cred)
			}
			fmt.Printf("%d credential(s)\n", len(creds))
			return nil
		},
	}
}

func newSubscribersCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribers",
		Short: "List every subscriber",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			subs, err := engine.ListSubscribers(cmd.Context())
			if err != nil {
				return err
			}
			for _, sub := range subs {
				fmt.Printf("%d  external=%d  username=%s  balance=%d  active=%t\n",
					sub.ID, sub.ExternalID, sub.Username, sub.Balance, sub.Active)
			}
			fmt.Printf("%d subscriber(s)\n", len(subs))
			return nil
		},
	}
}

func newSyncCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the daemon config document with the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, done, err := newEngine(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			res, err := engine.Reconcile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("added %d, removed %d\n", res.Added, res.Removed)
			if res.Warning != nil {
				fmt.Printf("warning: %v\n", res.Warning)
			}
			return nil
		},
	}
}

func parseQuota(s string) (int64, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	quota, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quota %q: %w", s, err)
	}
	return int64(quota), nil
}

func printIssued(res *service.IssueResult) {
	printCredential(res.Credential)
	fmt.Println(res.Link)
	if res.Warning != nil {
		fmt.Printf("warning: %v\n", res.Warning)
	}
}

func printCredential(cred *domain.Credential) {
	quota := "unlimited"
	if remaining := cred.RemainingBytes(); remaining >= 0 {
		quota = fmt.Sprintf("%s left of %s",
			humanize.IBytes(uint64(remaining)), humanize.IBytes(uint64(cred.QuotaBytes)))
	}

	state := "active"
	if !cred.Active {
		state = "inactive"
	}
	if cred.Expired(time.Now().UTC()) {
		state = "expired"
	}

	fmt.Printf("%s  port=%d  used=%s  quota=%s  expires=%s  %s\n",
		cred.ID.String(), cred.Port,
		humanize.IBytes(uint64(cred.UsedBytes)), quota,
		cred.ExpiresAt.Format(time.RFC3339), state)
}
