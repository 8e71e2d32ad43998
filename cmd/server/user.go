package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ashureev/contactform/internal/config"
	"github.com/ashureev/contactform/internal/store"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect stored submitters",
	}

	userCmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored user as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			repo, err := store.NewSQLite(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer repo.Close()

			user, err := repo.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %d not found", id)
			}

			out, err := json.MarshalIndent(user, "", "  ")
			if err != nil {
				return fmt.Errorf("encode user: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	})
	return userCmd
}
