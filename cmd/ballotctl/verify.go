package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ballot-backend/internal/ballots"
	"ballot-backend/internal/bootstrap"
)

type identityResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	SignerName      string `json:"signer_name,omitempty"`
	VoterHash       string `json:"voter_hash,omitempty"`
}

func newVerifyIdentityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-identity FILE",
		Short: "Check a declaration's signature and print its identity hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			pipeline, err := bootstrap.BuildPipeline(cfg, ballots.NewMemoryRepo())
			if err != nil {
				return err
			}
			out, err := pipeline.ValidateIdentity(cmd.Context(), doc)
			if err != nil {
				return err
			}
			res := identityResult{
				Success:         out.Accepted,
				Message:         out.Message,
				RejectionReason: string(out.Reason),
				SignerName:      out.SignerName,
				VoterHash:       out.IdentityHash,
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !out.Accepted {
				return fmt.Errorf("declaration rejected: %s", out.Reason)
			}
			return nil
		},
	}
}
