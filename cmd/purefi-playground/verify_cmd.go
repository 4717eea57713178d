package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/purefi/playground-sdk-go/services/verification"
	"github.com/purefi/playground-sdk-go/types"
)

var (
	verifyFile          string
	verifyProd          bool
	verifyIssuerURL     string
	verifySignatureType string
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Submit a signed payload to the PureFi issuer",
	Long: `Reads a signed payload (output of "sign") from --file or stdin and posts it
to the issuer. Prints the package on success; a FORBIDDEN response points to the
dashboard for additional verification.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if verifyFile != "" && verifyFile != "-" {
			f, err := os.Open(verifyFile)
			if err != nil {
				return fmt.Errorf("open signed payload: %w", err)
			}
			defer f.Close()
			r = f
		}
		var signed types.PureFIRuleV5Payload
		if err := json.NewDecoder(r).Decode(&signed); err != nil {
			return fmt.Errorf("decode signed payload: %w", err)
		}

		issuerURL := verifyIssuerURL
		if issuerURL == "" {
			issuerURL = cfg.IssuerURL(verifyProd)
		}
		sigType := cfg.Issuer.SignatureType
		if verifySignatureType != "" {
			sigType = types.SignatureType(verifySignatureType)
		}

		svc, err := newServices()
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.Verification.Verify(cmd.Context(), &verification.Request{
			IssuerURL:     issuerURL,
			Payload:       &signed,
			SignatureType: sigType,
		})
		outcome := verification.Classify(res, err, svc.DashboardURL())
		if perr := printJSON(cmd, outcome); perr != nil {
			return perr
		}
		if outcome.Failed() {
			return fmt.Errorf("verification failed: %s", outcome.Message)
		}
		return nil
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyFile, "file", "f", "-", "signed payload JSON file (- for stdin)")
	verifyCmd.Flags().BoolVar(&verifyProd, "prod", false, "use the production issuer")
	verifyCmd.Flags().StringVar(&verifyIssuerURL, "issuer-url", "", "issuer base url (overrides config)")
	verifyCmd.Flags().StringVar(&verifySignatureType, "signature-type", "", "ecdsa or babyjubjub")
}
