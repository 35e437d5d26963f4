// Package cli wires the cobra commands, viper configuration, and the
// top-level error handling policy: every fatal error is logged once with
// ERROR severity and surfaces as exit code 1.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yairfalse/lustre-client-installer/internal/installer"
	"github.com/yairfalse/lustre-client-installer/internal/logging"
	"github.com/yairfalse/lustre-client-installer/internal/plan"
)

var (
	cfgFile    string
	verbose    bool
	dryRun     bool
	fsxDNSName string
)

var rootCmd = &cobra.Command{
	Use:   "lustre-client-installer",
	Short: "Install and verify the Lustre filesystem client kernel module",
	Long: `lustre-client-installer detects the host distribution and kernel,
installs the matching Lustre client packages from the vendor repository,
verifies that the kernel module loads, and can confirm that the remote
filesystem endpoint is reachable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, opts := setup()
		defer log.Sync()

		inst := installer.New(log, opts, installer.Deps{})
		if err := inst.Run(cmd.Context()); err != nil {
			log.Error(err.Error())
			return err
		}
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove an installed Lustre client",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, opts := setup()
		defer log.Sync()

		inst := installer.New(log, opts, installer.Deps{})
		if err := inst.Uninstall(cmd.Context()); err != nil {
			log.Error(err.Error())
			return err
		}
		return nil
	},
}

// Execute runs the root command. Callers map a non-nil error to exit code 1.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lustre-client-installer.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dryrun", false, "log planned actions without changing the host")
	rootCmd.PersistentFlags().String("log-file", "", "persistent log file path")
	rootCmd.Flags().StringVar(&fsxDNSName, "fsx_dns_name", "", "filesystem endpoint to check reachability against after install")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("dryrun", rootCmd.PersistentFlags().Lookup("dryrun"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func initConfig() {
	viper.SetDefault("log_file", "/var/log/lustre-client-installer.log")
	viper.SetDefault("repo_base_url", plan.DefaultRepoConfig().BaseURL)
	viper.SetDefault("key_base_url", plan.DefaultRepoConfig().KeyBaseURL)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lustre-client-installer")
	}

	viper.SetEnvPrefix("FSX_INSTALLER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setup builds the logger and run options from flags and configuration.
func setup() (*logging.Logger, installer.Options) {
	log, err := logging.New(logging.Options{
		LogFile: viper.GetString("log_file"),
		Verbose: viper.GetBool("verbose"),
	})
	if err != nil {
		// Console-only logging still works; say why the file is missing.
		log.Info("persistent log disabled", zap.Error(err))
	}

	opts := installer.Options{
		DryRun:     viper.GetBool("dryrun"),
		FSxDNSName: fsxDNSName,
		Repos: plan.RepoConfig{
			BaseURL:    viper.GetString("repo_base_url"),
			KeyBaseURL: viper.GetString("key_base_url"),
		},
	}
	if opts.DryRun {
		log.Info("dry-run mode: no host state will be changed")
	}
	return log, opts
}
