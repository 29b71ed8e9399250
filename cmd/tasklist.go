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
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/ltsched/taskgraph"
	"github.com/notargets/ltsched/topology"
)

// TaskListCmd represents the tasklist command
var TaskListCmd = &cobra.Command{
	Use:   "tasklist",
	Short: "Build and print the task list of one global time step",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ip, err := loadInput(viper.GetString("inputConditionsFile"))
		if err != nil {
			return
		}
		cfg, err := ip.Config()
		if err != nil {
			return
		}
		topo, err := ip.Topology()
		if err != nil {
			return
		}
		stats, _ := cmd.Flags().GetBool("stats")
		return printTaskList(cmd.OutOrStdout(), ip.Title, cfg, topo, stats)
	},
}

func init() {
	rootCmd.AddCommand(TaskListCmd)
	TaskListCmd.Flags().BoolP("stats", "s", false, "print the number of tasks per kind and time level")
}

func printTaskList(w io.Writer, title string, cfg taskgraph.Config, topo *topology.Topology, stats bool) (err error) {
	tl, err := taskgraph.Build(cfg, topo)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "%s: %s, %d tasks\n", title, cfg, len(tl))
	if err = tl.Format(w); err != nil || !stats {
		return
	}
	fmt.Fprintf(w, "\n%-34s", "Kind")
	for l := 0; l < cfg.NumTimeLevels; l++ {
		fmt.Fprintf(w, "%8s", fmt.Sprintf("L%d", l))
	}
	fmt.Fprintln(w)
	var (
		histo                    = tl.Histogram()
		nPredictor, nCommunicate int
	)
	for _, kind := range taskgraph.AllKinds() {
		if histo[kind] == 0 {
			continue
		}
		fmt.Fprintf(w, "%-34s", kind)
		for l := 0; l < cfg.NumTimeLevels; l++ {
			fmt.Fprintf(w, "%8d", tl.Count(kind, l))
		}
		fmt.Fprintln(w)
		switch {
		case kind.IsPredictor():
			nPredictor += histo[kind]
		case kind.IsCommunication():
			nCommunicate += histo[kind]
		}
	}
	fmt.Fprintf(w, "\n%d predictor tasks, %d communication tasks, %d other tasks\n",
		nPredictor, nCommunicate, len(tl)-nPredictor-nCommunicate)
	return
}
