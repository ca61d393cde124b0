package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/piwi3910/ceph2swift/internal/config"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}

	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		configPath string
		tenant     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration as YAML",
		Long: `Print the configuration after merging file, environment and defaults,
exactly as a migration run would see it. Secrets are masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, config.Options{Tenant: tenant})
			if err != nil {
				return err
			}

			masked := *cfg
			masked.Ceph.AccessKey = maskSecret(masked.Ceph.AccessKey)
			masked.Swift.Password = maskSecret(masked.Swift.Password)
			masked.Dest.SecretKey = maskSecret(masked.Dest.SecretKey)

			out, err := yaml.Marshal(masked)
			if err != nil {
				return err
			}

			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "Tenant to migrate")

	return cmd
}

func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}
