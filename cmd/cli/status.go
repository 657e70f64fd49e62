package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Query the entitlement state of a running service",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			client := &http.Client{Timeout: 10 * time.Second}

			resp, err := client.Get(addr + "/api/v1/entitlements")
			if err != nil {
				return fmt.Errorf("query service: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("service answered %s", resp.Status)
			}

			var envelope struct {
				Data struct {
					Tier          string     `json:"tier"`
					Licensed      bool       `json:"licensed"`
					ClientLimit   *int64     `json:"client_limit"`
					IssuerLimit   *int64     `json:"issuer_limit"`
					ValidIssuers  []string   `json:"valid_issuers"`
					KnownClients  int64      `json:"known_clients"`
					KnownIssuers  int64      `json:"known_issuers"`
					GraceDeadline *time.Time `json:"grace_deadline"`
				} `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}

			d := envelope.Data
			fmt.Printf("Tier:     %s\n", d.Tier)
			fmt.Printf("Licensed: %v\n", d.Licensed)
			if d.GraceDeadline != nil {
				fmt.Printf("Grace:    enforcement ends %s\n", d.GraceDeadline.Format(time.RFC3339))
			}
			if d.ClientLimit != nil {
				fmt.Printf("ClientLimit: %d\n", *d.ClientLimit)
			} else {
				fmt.Println("ClientLimit: unlimited")
			}
			if d.IssuerLimit != nil {
				fmt.Printf("IssuerLimit: %d\n", *d.IssuerLimit)
			} else {
				fmt.Println("IssuerLimit: unlimited")
			}
			for _, iss := range d.ValidIssuers {
				fmt.Printf("ValidIssuer: %s\n", iss)
			}
			fmt.Printf("KnownClients: %d\n", d.KnownClients)
			fmt.Printf("KnownIssuers: %d\n", d.KnownIssuers)
			return nil
		},
	}
	statusCmd.Flags().String("addr", "http://localhost:8080", "Base URL of the license service")

	rootCmd.AddCommand(statusCmd)
}
