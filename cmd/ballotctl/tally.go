package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"ballot-backend/internal/ballots"
	"ballot-backend/internal/shared/storage/db"
)

type tallyResult struct {
	PollID     string         `json:"poll_id"`
	TotalVotes int            `json:"total_votes"`
	Choices    map[string]int `json:"choices"`
}

func newTallyCmd() *cobra.Command {
	var pollID string
	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Count stored votes per choice for a poll",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(pollID) == "" {
				return errors.New("--poll is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			target, err := db.ParseURL(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			conn, err := db.Connect(cmd.Context(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return err
			}
			defer conn.Close()

			tally, err := ballots.NewSQLRepo(conn, target.Dialect).Tally(cmd.Context(), pollID)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tallyResult{
				PollID:     tally.PollID,
				TotalVotes: tally.Total,
				Choices:    tally.Choices,
			})
		},
	}
	cmd.Flags().StringVar(&pollID, "poll", "", "poll identifier")
	return cmd
}
