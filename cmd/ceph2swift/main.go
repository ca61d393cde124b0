package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/piwi3910/ceph2swift/cmd/ceph2swift/commands"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ceph2swift",
		Short: "Migrate tenant objects from Ceph RGW to OpenStack Swift",
		Long: `ceph2swift copies every object of a tenant's Ceph RGW bucket into the
matching Swift container (or an S3-compatible bucket), recreating the
folder structure, skipping objects that already exist with the same
checksum, and verifying each upload by checksum.

Connection settings come from a config file, or from the environment:
  CEPH_KEY_ID, CEPH_ACCESS_KEY, CEPH_HOST
  SWIFT_AUTH_URL, SWIFT_TENANT_NAME, SWIFT_USER, SWIFT_PASSWORD`,
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
