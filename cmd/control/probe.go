/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package control

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"ezemfi.io/go-probe/pkg/command"
	"ezemfi.io/go-probe/pkg/config"
	srvcontrol "ezemfi.io/go-probe/pkg/srv/control"
)

const (
	VoltsOptionName = "volts"
	RawOptionName   = "raw"
	LimitOptionName = "limit"
)

// ProbeActions are the button presses exposed as top level commands
var ProbeActions = []string{"arm", "fire", "reset", "reset-all"}

var probeActionHelp = map[string]string{
	"arm":       "Arm the probe",
	"fire":      "Force an armed probe to fire",
	"reset":     "Return a finished probe to ready",
	"reset-all": "Pulse the global reset",
}

func NewProbeCommand(action string) *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   action,
		Short: probeActionHelp[action],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.NewApiClient(cfg).ProbeAction(action)
		},
	}
	return cmd
}

func printYAML(cmd *cobra.Command, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func NewStatusCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the probe state, counters and outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := command.NewApiClient(cfg).Status()
			if err != nil {
				return err
			}
			return printYAML(cmd, snap)
		},
	}
	return cmd
}

func NewInputCommand() *cobra.Command {
	var volts float64
	var raw int16
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "input",
		Short: "Set the sample seen on input A",
		RunE: func(cmd *cobra.Command, args []string) error {
			setup := &srvcontrol.InputSetup{}
			switch {
			case cmd.Flags().Changed(RawOptionName):
				setup.Raw = &raw
			case cmd.Flags().Changed(VoltsOptionName):
				setup.Volts = &volts
			default:
				return errors.New("one of --volts or --raw is required")
			}
			return command.NewApiClient(cfg).SetInput(setup)
		},
	}
	cmd.Flags().Float64Var(&volts, VoltsOptionName, 0, "Input level in volts")
	cmd.Flags().Int16Var(&raw, RawOptionName, 0, "Input level as a signed 16-bit sample")
	return cmd
}

func NewRunsCommand() *cobra.Command {
	var limit int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Print finished arm cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := command.NewApiClient(cfg).Runs(limit)
			if err != nil {
				return err
			}
			return printYAML(cmd, runs)
		},
	}
	cmd.Flags().IntVar(&limit, LimitOptionName, 10, "Number of most recent runs, 0 for all")
	return cmd
}
