/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/ltsched/InputParameters"
)

var (
	cfgFile string
	log     = logrus.WithField("pkg", "cmd")
)

var rootCmd = &cobra.Command{
	Use:   "ltsched",
	Short: "Task graph builder and executor for local time stepping DG solvers",
	Long: `
Builds the dependency ordered task list of one global time step of a
discontinuous Galerkin solver with local time stepping, and replays it
with the reference kernels.

ltsched tasklist -I input.yaml
ltsched run -I input.yaml --executor concurrent --workers 8`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setLogLevel(viper.GetString("logLevel"))
	},
}

// Execute runs the root command, called once from main
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ltsched.yaml)")
	rootCmd.PersistentFlags().String("logLevel", "warning", "log level: trace, debug, info, warning, error")
	rootCmd.PersistentFlags().StringP("inputConditionsFile", "I", "", "YAML file with the run configuration and the partition layout")
	_ = viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("logLevel"))
	_ = viper.BindPFlag("inputConditionsFile", rootCmd.PersistentFlags().Lookup("inputConditionsFile"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".ltsched")
	}
	viper.SetEnvPrefix("ltsched")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	// Only a config file that was asked for has to exist
	if cfgFile != "" && err != nil {
		fmt.Fprintf(os.Stderr, "error reading configuration %s: %v\n", cfgFile, err)
		os.Exit(2)
	}
	if err == nil {
		log.WithField("file", viper.ConfigFileUsed()).Debug("using config file")
	}
}

func setLogLevel(level string) (err error) {
	var lvl logrus.Level
	if lvl, err = logrus.ParseLevel(level); err != nil {
		return errors.Wrap(err, "logLevel")
	}
	logrus.SetLevel(lvl)
	return
}

const exampleFile = `
########################################
Title: "Two level partition"
TimeIntegration: ADER # or RK
NumIntegrationPoints: 2
TimeStep: 0.01
Steps: 10
Levels:
  - {Owned: 4, Internal: 2, Halo: 2, LocalFaces: 3, HaloFaces: 2, CommRequests: 1, AdjacentOwned: 1}
  - {Owned: 3, Internal: 3, LocalFaces: 2}
Markers:
  wall: {Type: Wall, FacesPerLevel: [1, 0]}
########################################
`

func loadInput(file string) (ip *InputParameters.InputParametersLTS, err error) {
	if len(file) == 0 {
		return nil, errors.Errorf("must supply an input parameters file (-I, --inputConditionsFile), example file:%s",
			exampleFile)
	}
	var data []byte
	if data, err = os.ReadFile(file); err != nil {
		return
	}
	ip = &InputParameters.InputParametersLTS{}
	if err = ip.Parse(data); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", file)
	}
	if err = ip.Validate(); err != nil {
		return nil, errors.Wrapf(err, "validating %s", file)
	}
	return
}
