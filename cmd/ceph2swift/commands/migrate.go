package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/piwi3910/ceph2swift/internal/config"
	"github.com/piwi3910/ceph2swift/internal/metrics"
	"github.com/piwi3910/ceph2swift/internal/migrate"
	"github.com/piwi3910/ceph2swift/internal/store"
)

// NewMigrateCmd creates the migrate command
func NewMigrateCmd() *cobra.Command {
	var (
		configPath    string
		tenant        string
		destType      string
		folderMode    string
		stateDir      string
		metricsListen string
		noPreload     bool
		debug         bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run a migration for one tenant",
		Long: `Migrate every object of the tenant's source bucket into the destination
container. The run is resumable: objects that already exist in the
destination with a matching checksum are skipped, so re-running after an
interruption or partial failure picks up where the last run left off.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, config.Options{
				Tenant:        tenant,
				DestType:      destType,
				FolderMode:    folderMode,
				StateDir:      stateDir,
				MetricsListen: metricsListen,
				NoPreload:     noPreload,
				Debug:         debug,
			})
			if err != nil {
				return err
			}

			setupLogging(cfg.LogLevel)

			// Stop listing and uploading on Ctrl-C, but finish the
			// in-flight object first.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.MetricsListen != "" {
				metrics.Serve(cfg.MetricsListen)
			}

			source, err := newSource(ctx, cfg)
			if err != nil {
				return err
			}
			dest, err := newDestination(ctx, cfg)
			if err != nil {
				return err
			}

			return migrate.NewRunner(cfg, source, dest).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "Tenant to migrate")
	cmd.Flags().StringVar(&destType, "dest", "", "Destination backend (swift or s3)")
	cmd.Flags().StringVar(&folderMode, "folder-mode", "", "Folder discovery mode (suffix or content-type)")
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Directory for the failed-object log")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "Expose Prometheus metrics on this address")
	cmd.Flags().BoolVar(&noPreload, "no-preload", false, "Check destination per object instead of listing it up front")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if lvl <= zerolog.DebugLevel {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func newSource(ctx context.Context, cfg *config.Config) (migrate.Source, error) {
	client, err := store.NewS3Client(ctx, cfg.Ceph.Host, cfg.Ceph.KeyID, cfg.Ceph.AccessKey, cfg.Ceph.Region, cfg.Ceph.Secure)
	if err != nil {
		return nil, fmt.Errorf("failed to create source client: %w", err)
	}
	return store.NewSourceBucket(client, cfg.SourceBucketName()), nil
}

func newDestination(ctx context.Context, cfg *config.Config) (migrate.Destination, error) {
	switch cfg.Dest.Type {
	case config.DestSwift:
		return store.NewSwiftContainer(ctx, store.SwiftConfig{
			AuthURL:     cfg.Swift.AuthURL,
			User:        cfg.Swift.User,
			Password:    cfg.Swift.Password,
			TenantName:  cfg.Swift.TenantName,
			AuthVersion: cfg.Swift.AuthVersion,
		}, cfg.ContainerName())
	case config.DestS3:
		return store.NewS3Target(store.S3TargetConfig{
			Endpoint:  cfg.Dest.Endpoint,
			AccessKey: cfg.Dest.AccessKey,
			SecretKey: cfg.Dest.SecretKey,
			Region:    cfg.Dest.Region,
			UseSSL:    cfg.Dest.UseSSL,
		}, cfg.ContainerName())
	default:
		return nil, fmt.Errorf("unknown destination type: %s", cfg.Dest.Type)
	}
}
