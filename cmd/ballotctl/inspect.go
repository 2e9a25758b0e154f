package main

import (
	"crypto/x509"

	"github.com/spf13/cobra"

	"ballot-backend/internal/ballots"
	"ballot-backend/internal/extract"
	"ballot-backend/internal/pdfsig"
)

type signatureReport struct {
	Index               int      `json:"index"`
	ByteRange           [4]int64 `json:"byte_range"`
	CoversWholeDocument bool     `json:"covers_whole_document"`
	Valid               bool     `json:"valid"`
	Intact              bool     `json:"intact"`
	Signer              string   `json:"signer,omitempty"`
	Trusted             bool     `json:"trusted"`
	Problem             string   `json:"problem,omitempty"`
	Error               string   `json:"error,omitempty"`
}

type inspectReport struct {
	Fingerprint   string            `json:"fingerprint"`
	Signatures    []signatureReport `json:"signatures"`
	ScanError     string            `json:"scan_error,omitempty"`
	TextError     string            `json:"text_error,omitempty"`
	IdentityFound bool              `json:"identity_found"`
	VoterHash     string            `json:"voter_hash,omitempty"`
	Choice        string            `json:"choice,omitempty"`
	TokenCheck    string            `json:"token_check,omitempty"`
}

func newInspectCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Report what each validation gate sees in a declaration",
		Long:  "Inspect never records anything. The identity number itself is not printed, only its salted hash.",
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
			signers, err := ballots.NewSignerAllowList(cfg.AllowedSigners)
			if err != nil {
				return err
			}
			var roots *x509.CertPool
			if cfg.TrustRootsFile != "" {
				if roots, err = pdfsig.LoadRoots(cfg.TrustRootsFile); err != nil {
					return err
				}
			}
			validator := pdfsig.NewValidator(roots)

			report := inspectReport{Fingerprint: ballots.Fingerprint(doc)}
			sigs, err := validator.EmbeddedSignatures(doc)
			if err != nil {
				report.ScanError = err.Error()
			}
			for _, sig := range sigs {
				entry := signatureReport{
					Index:               sig.Index,
					ByteRange:           sig.ByteRange,
					CoversWholeDocument: sig.CoversWholeDocument,
				}
				status, err := validator.ValidateSignature(sig, pdfsig.SigningUsage)
				if err != nil {
					entry.Error = err.Error()
				} else {
					entry.Valid = status.Valid
					entry.Intact = status.Intact
					entry.Problem = status.Problem
					if status.SigningCert != nil {
						entry.Signer = pdfsig.SignerName(status.SigningCert)
						_, entry.Trusted = signers.Match(entry.Signer)
					}
				}
				report.Signatures = append(report.Signatures, entry)
			}

			text, err := extract.PDFExtractor{}.ExtractText(cmd.Context(), doc)
			if err != nil {
				report.TextError = err.Error()
			}
			if secret, ok := ballots.ExtractIdentitySecret(text); ok {
				report.IdentityFound = true
				report.VoterHash = ballots.HashIdentity(secret, cfg.SaltKey)
			}
			report.Choice, _ = ballots.ExtractChoice(text)
			if token != "" {
				report.TokenCheck = "ok"
				if rej := (ballots.ContextBinder{}).Check(text, token); rej != nil {
					report.TokenCheck = string(rej.Reason)
				}
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "poll token expected in the declaration text")
	return cmd
}
