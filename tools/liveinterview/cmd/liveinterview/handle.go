package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/candorlabs/liveinterview/runtime/logger"
	"github.com/candorlabs/liveinterview/runtime/statestore"
)

func newHandleCmd() *cobra.Command {
	var (
		interviewID int
		reveal      bool
	)
	cmd := &cobra.Command{
		Use:   "handle",
		Short: "Inspect or clear the persisted resumption handle",
	}
	cmd.PersistentFlags().IntVar(&interviewID, "interview-id", 0, "Interview the handle belongs to")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored resumption handle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg.Resumption)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			key := handleKey(interviewID)
			rec, err := store.Load(cmd.Context(), key)
			if errors.Is(err, statestore.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No resumption handle stored for %s\n", key)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load handle: %w", err)
			}
			handle := rec.Handle
			if !reveal {
				handle = logger.RedactHandle(handle)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (updated %s)\n", key, handle, rec.UpdatedAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&reveal, "reveal", false, "Print the full handle")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored resumption handle so the next run starts fresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cfg.Resumption)
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			key := handleKey(interviewID)
			if err := store.Clear(cmd.Context(), key); err != nil {
				return fmt.Errorf("failed to clear handle: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared resumption handle for %s\n", key)
			return nil
		},
	}

	cmd.AddCommand(showCmd, clearCmd)
	return cmd
}
