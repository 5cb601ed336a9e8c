package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailmerge/internal/auth"
	"github.com/mailmerge/internal/model"
	"github.com/mailmerge/internal/store"
)

var (
	databaseURL string
	keyName     string
	keyScope    string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage function keys",
	Long: `Manage the keys accepted by the EmailSetup server.

Keys have the form <id>.<secret>. Only a bcrypt hash of the secret is
stored, so a key is printed once when it is created.`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a new key without storing it",
	Long:  `Print a new key, suitable for the MASTER_KEY environment variable.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		key, _, _ := auth.GenerateKey()
		fmt.Fprintln(cmd.OutOrStdout(), key)
	},
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create and store a key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope := model.Scope(keyScope)
		if !scope.Valid() {
			return fmt.Errorf("scope must be %q or %q", model.ScopeFunction, model.ScopeAdmin)
		}
		if keyName == "" {
			return fmt.Errorf("--name is required")
		}

		return withKeyStore(cmd.Context(), func(keys *store.KeyStore) error {
			raw, id, secret := auth.GenerateKey()
			hash, err := auth.Hash(secret)
			if err != nil {
				return fmt.Errorf("failed to hash key: %w", err)
			}
			if err := keys.Create(cmd.Context(), id, keyName, scope, hash); err != nil {
				return fmt.Errorf("failed to store key: %w", err)
			}

			logger.Info("Created key", "id", id, "scope", scope)
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		})
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeyStore(cmd.Context(), func(keys *store.KeyStore) error {
			list, err := keys.ListAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list keys: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSCOPE\tCREATED\tLAST USED\tSTATUS")
			for _, k := range list {
				status := "active"
				if k.Revoked() {
					status = "revoked"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					k.ID, k.Name, k.Scope, k.CreatedAt.Format(time.RFC3339), formatTime(k.LastUsedAt), status)
			}
			return tw.Flush()
		})
	},
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke ID",
	Short: "Revoke a stored key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeyStore(cmd.Context(), func(keys *store.KeyStore) error {
			if err := keys.Revoke(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to revoke %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Revoked %s\n", args[0])
			return nil
		})
	},
}

func init() {
	defaultURL := os.Getenv("DATABASE_URL")
	if defaultURL == "" {
		defaultURL = "mailmerge.db"
	}
	keysCmd.PersistentFlags().StringVar(&databaseURL, "database-url", defaultURL, "SQLite path or PostgreSQL connection string")

	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "key name")
	keysCreateCmd.Flags().StringVar(&keyScope, "scope", string(model.ScopeFunction), "key scope (function, admin)")

	keysCmd.AddCommand(keysGenerateCmd)
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysRevokeCmd)
}

func withKeyStore(ctx context.Context, fn func(*store.KeyStore) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := store.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(store.NewKeyStore(db))
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
