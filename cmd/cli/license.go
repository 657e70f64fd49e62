package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/sdk/go/licverifier"
)

func init() {
	licenseCmd := &cobra.Command{
		Use:   "license",
		Short: "Inspect and verify license token files",
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode a license file without verifying its signature",
		Long: `Decode the claims of a license token file and report its temporal
status. The signature is NOT checked; use "license verify" to establish
authenticity.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readTokenArg(args[0])
			if err != nil {
				return err
			}

			parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
			if err != nil {
				return fmt.Errorf("decode license: %w", err)
			}

			claims := parsed.Claims.(jwt.MapClaims)
			fmt.Println("WARNING: signature not verified")
			printHeader(parsed.Header)
			printClaims(claims)
			return nil
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a license file against a trust anchor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyPath, _ := cmd.Flags().GetString("key")
			if keyPath == "" {
				return fmt.Errorf("--key is required")
			}

			pemData, err := os.ReadFile(keyPath)
			if err != nil {
				return fmt.Errorf("read trust anchor: %w", err)
			}
			verifier, err := licverifier.NewVerifierFromPEM(pemData)
			if err != nil {
				return fmt.Errorf("load trust anchor: %w", err)
			}

			token, err := readTokenArg(args[0])
			if err != nil {
				return err
			}

			lic, err := verifier.Verify(token)
			if err != nil {
				return fmt.Errorf("verification FAILED: %w", err)
			}

			now := time.Now()
			fmt.Println("Signature: OK")
			fmt.Printf("ID:        %s\n", lic.ID)
			fmt.Printf("Issuer:    %s\n", lic.Issuer)
			fmt.Printf("Subject:   %s\n", lic.Subject)
			fmt.Printf("Status:    %s\n", lic.StatusAt(now, constants.DefaultGracePeriod))
			if lic.NotBefore != nil {
				fmt.Printf("NotBefore: %s\n", lic.NotBefore.Format(time.RFC3339))
			}
			if lic.ExpiresAt != nil {
				fmt.Printf("ExpiresAt: %s\n", lic.ExpiresAt.Format(time.RFC3339))
			}
			if lic.ClientLimit != nil {
				fmt.Printf("ClientLimit: %d\n", *lic.ClientLimit)
			}
			if lic.IssuerLimit != nil {
				fmt.Printf("IssuerLimit: %d\n", *lic.IssuerLimit)
			}
			if len(lic.ValidIssuers) > 0 {
				fmt.Printf("ValidIssuers: %s\n", strings.Join(lic.ValidIssuers, ", "))
			}
			return nil
		},
	}
	verifyCmd.Flags().String("key", "", "Path to the PEM trust anchor")

	licenseCmd.AddCommand(inspectCmd, verifyCmd)
	rootCmd.AddCommand(licenseCmd)
}

// readTokenArg reads a license token from a file path, or from stdin when the
// argument is "-".
func readTokenArg(arg string) (string, error) {
	var data []byte
	var err error
	if arg == "-" {
		data, err = os.ReadFile("/dev/stdin")
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return "", fmt.Errorf("read license file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("license file is empty")
	}
	return token, nil
}

func printHeader(header map[string]interface{}) {
	fmt.Println("Header:")
	for k, v := range header {
		fmt.Printf("  %s: %v\n", k, v)
	}
}

func printClaims(claims jwt.MapClaims) {
	fmt.Println("Claims:")
	for k, v := range claims {
		switch k {
		case "exp", "nbf", "iat":
			if ts, ok := v.(float64); ok {
				fmt.Printf("  %s: %s\n", k, time.Unix(int64(ts), 0).UTC().Format(time.RFC3339))
				continue
			}
			fmt.Printf("  %s: %v\n", k, v)
		default:
			fmt.Printf("  %s: %v\n", k, v)
		}
	}
}
