package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/pkg/rotation"
)

func NewStrategiesCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List available rotation strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Pass a placeholder cloud client so the cloud-backed
			// strategies are listed without Azure credentials.
			registry := rotation.NewRegistry(cfg.Logger, listingCloudClient{})

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "STRATEGY\tDESCRIPTION\n")
			_, _ = fmt.Fprintf(w, "--------\t-----------\n")
			for _, tag := range registry.Strategies() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", tag, strategyDescription(tag))
			}
			return w.Flush()
		},
	}
}

// listingCloudClient satisfies the cloud client interface without talking
// to Azure. It exists only so the registry lists every built-in strategy.
type listingCloudClient struct{}

func (listingCloudClient) GetDatabaseServer(context.Context, string) (*rotation.DatabaseServer, error) {
	return nil, nil
}

func (listingCloudClient) UpdateDatabaseAdminPassword(context.Context, string, string) error {
	return nil
}

func (listingCloudClient) ListStorageAccountKeys(context.Context, string) ([]rotation.StorageAccountKey, error) {
	return nil, nil
}

func (listingCloudClient) RegenerateStorageAccountKey(context.Context, string, string) (*rotation.StorageAccountKey, error) {
	return nil, nil
}

func strategyDescription(tag string) string {
	descriptions := map[string]string{
		rotation.StrategyManual:            "Operator-supplied secret value",
		rotation.StrategyPostgresAdmin:     "Azure PostgreSQL flexible server administrator password",
		rotation.StrategyPostgresUser:      "PostgreSQL user with server-side expiration",
		rotation.StrategyMySQLUser:         "MySQL user with server-side expiration",
		rotation.StrategyStorageAccountKey: "Azure storage account access key (alternating slots)",
	}
	if desc, ok := descriptions[tag]; ok {
		return desc
	}
	return "Custom strategy"
}
