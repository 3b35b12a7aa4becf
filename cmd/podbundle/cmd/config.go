package cmd

import (
	"os"
	"path/filepath"

	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// configCmd represents the config related commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Commands to manage the configuration",
	Long: `Commands to manage the configuration of the build server.

The configuration is the set of settings of the serve command that do not change across runs.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Prints the effective configuration",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		o, err := yaml.Marshal(settings)
		if err != nil {
			return errors.New("serialize config to yaml").Wrap(err)
		}
		_, err = cmd.OutOrStdout().Write(o)
		return err
	},
}

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates a config file",
	Long:  "Creates a config file from the effective configuration. The file is placed in $HOME/.podbundle/podbundle.yaml unless --output is set.",
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindFlags(cmd)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		o, err := yaml.Marshal(settings)
		if err != nil {
			return errors.New("serialize config to yaml").Wrap(err)
		}

		target, _ := cmd.Flags().GetString("output")
		if target == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return errors.New("could not get home directory for user").Wrap(err)
			}
			target = filepath.Join(home, ".podbundle", "podbundle.yaml")
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.New("create config directory").Wrap(err)
		}
		if err := os.WriteFile(target, o, 0o600); err != nil {
			return errors.New("write config file").Wrap(err)
		}
		cmd.Println("Config written to", target)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{configShowCmd, configCreateCmd} {
		addServerFlags(c.Flags())
		addBuildFlags(c.Flags())
		addSinkFlags(c.Flags())
		addLogFlags(c.Flags())
		configCmd.AddCommand(c)
	}
	configCreateCmd.Flags().String("output", "", "path of the config file to write")
	rootCmd.AddCommand(configCmd)
}
