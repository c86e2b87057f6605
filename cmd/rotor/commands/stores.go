package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/secretstores"
)

func NewStoresCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List supported secret store types and configured stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := secretstores.NewRegistry(cfg.Logger)

			fmt.Println("Supported store types:")
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "TYPE\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "----\t-----------\n")
			for _, storeType := range registry.Types() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", storeType, storeDescription(storeType))
			}
			_ = w.Flush()

			if err := cfg.Load(); err == nil && cfg.Definition != nil {
				fmt.Println("\nConfigured stores:")
				w2 := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintf(w2, "NAME\tTYPE\tSTATUS\n")
				_, _ = fmt.Fprintf(w2, "----\t----\t------\n")
				for name, sc := range cfg.Definition.SecretStores {
					status := "configured"
					if !registry.Supports(sc.Type) {
						status = "unsupported"
					}
					_, _ = fmt.Fprintf(w2, "%s\t%s\t%s\n", name, sc.Type, status)
				}
				_ = w2.Flush()
			}

			return nil
		},
	}
}

func storeDescription(storeType string) string {
	descriptions := map[string]string{
		secretstores.TypeMemory:            "In-memory store (testing only)",
		secretstores.TypeAzureKeyVault:     "Azure Key Vault",
		secretstores.TypeAWSSecretsManager: "AWS Secrets Manager",
		secretstores.TypeAWSSSM:            "AWS SSM Parameter Store (SecureString)",
		secretstores.TypeGCPSecretManager:  "Google Cloud Secret Manager",
		secretstores.TypeKeyring:           "OS keyring (workstation use)",
	}
	if desc, ok := descriptions[storeType]; ok {
		return desc
	}
	return ""
}
