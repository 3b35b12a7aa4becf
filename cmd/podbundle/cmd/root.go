// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/oneconcern/podbundle/internal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "podbundle",
	Short: "podbundle builds the asset bundles of podlet layouts",
	Long: `podbundle is an asset build server for micro-frontends.

Podlets upload feeds of JavaScript or CSS modules. Layouts publish instructions, listing the podlets they use.
As soon as every podlet of a layout has published a feed, the bundle of the layout is built ahead of any request.

Bundles are immutable: a bundle is identified by the ordered list of the feeds it is made of.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		dir, _ := cmd.Flags().GetString("profile-dir")
		if dir == "" {
			return nil
		}
		var err error
		profile, err = internal.StartProfile(dir, nil)
		return err
	},
	// upstream api note:  *PostRun functions aren't called in case of a panic() in Run
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		if profile == nil {
			return nil
		}
		defer func() { profile = nil }()
		return profile.Stop()
	},
}

var profile *internal.Profile

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("profile-dir", "", "write cpu and memory profiles of the run to this directory")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if os.Getenv("PODBUNDLE_CONFIG") != "" {
		viper.SetConfigFile(os.Getenv("PODBUNDLE_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.podbundle")
		viper.AddConfigPath("/etc/podbundle")
		viper.SetConfigName("podbundle")
	}

	viper.SetEnvPrefix("podbundle")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
