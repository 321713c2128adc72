package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsfactor/tgrender/pkg/log"
)

var (
	// Global flags
	logLevel string

	// Version info
	versionInfo struct {
		Version string
		Commit  string
		Date    string
	}
)

// rootCmd renders the merged configuration for a resource path; the
// subcommands cover the surrounding repo tooling.
var rootCmd = &cobra.Command{
	Use:   "tgrender [resource-path]",
	Short: "Render merged Terragrunt configuration without running Terragrunt",
	Long: `tgrender replays the shared base configuration's merge logic offline:
it walks a resource directory upward through the hierarchy files
(account, env, project, region, common), resolves the expressions they
and the resource's template use, and prints the final configuration.

By default only the hierarchy merge is rendered. With --full the
resource's terragrunt.hcl and its deep-merge template are evaluated too,
producing the terraform source and final inputs. Full mode needs the
hcl2json binary on PATH.

Examples:
  # Hierarchy-only (default)
  tgrender live/non-production/development/platform/dp-dev-01/europe-west2/gke/cluster-01
  tgrender -f table --show-sources live/.../compute/sql-server-01
  tgrender --show-labels live/non-production/hub/vpn-gateway/europe-west2/compute/vpn-server
  tgrender -k project_name -k region live/.../vpc-network

  # Full config render (template + resource deep merge)
  tgrender --full live/.../compute/sql-server-01
  tgrender --full -f table live/non-production/hub/dns-hub/global/cloud-dns/example-io`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		log.Init()

		if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
			logLevel = "debug"
		}
		if logLevel != "" {
			if err := log.SetLevelFromString(logLevel); err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
		}

		if cmd.Name() != "version" && versionInfo.Version != "" {
			log.WithField("version", versionInfo.Version).Debug("tgrender")
		}
		return nil
	},
	RunE: runRender,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets version information
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output (shorthand for --log-level=debug)")
}
