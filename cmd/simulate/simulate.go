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

package simulate

import (
	"fmt"

	"github.com/spf13/cobra"

	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/regmap"
	"ezemfi.io/go-probe/pkg/simulate"
)

const (
	ScenarioOptionName    = "scenario"
	TicksOptionName       = "ticks"
	ArmAtOptionName       = "arm-at"
	TriggerAtOptionName   = "trigger-at"
	VoltsOptionName       = "volts"
	FireAtOptionName      = "fire-at"
	RegisterMapOptionName = "register-map"
)

// registerFlags maps flag names to the signals they set
var registerFlags = map[string]string{
	"firing":    regmap.SignalFiringDuration,
	"cooling":   regmap.SignalCoolingDuration,
	"timeout":   regmap.SignalArmTimeout,
	"divider":   regmap.SignalClockDivider,
	"threshold": regmap.SignalTriggerThreshold,
	"intensity": regmap.SignalIntensity,
}

func NewCommand() *cobra.Command {
	var scenarioPath, mapPath string
	var ticks, armAt, triggerAt, fireAt int
	var volts float64
	registers := map[string]*int{}
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the probe offline and print a YAML trace",
		Example: `
Arm on tick 1 and raise input A above the threshold on tick 20
# go-probe simulate --ticks 80 --trigger-at 20

Replay a scenario file
# go-probe simulate --scenario scenario.yaml
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := regmap.Default()
			if mapPath == "" {
				mapPath = cfg.RegisterMap
			}
			if mapPath != "" {
				var err error
				if m, err = regmap.Load(mapPath); err != nil {
					return err
				}
			}

			var sc *simulate.Scenario
			if scenarioPath != "" {
				var err error
				if sc, err = simulate.LoadScenario(scenarioPath); err != nil {
					return err
				}
			} else {
				sc = &simulate.Scenario{Ticks: ticks, Registers: map[string]int{}}
				for name, signal := range registerFlags {
					if cmd.Flags().Changed(name) {
						sc.Registers[signal] = *registers[name]
					}
				}
				if armAt >= 0 {
					sc.Events = append(sc.Events, simulate.Event{Tick: armAt, Action: simulate.ActionArm})
				}
				if fireAt >= 0 {
					sc.Events = append(sc.Events, simulate.Event{Tick: fireAt, Action: simulate.ActionFire})
				}
				if triggerAt >= 0 {
					sc.Events = append(sc.Events, simulate.Event{Tick: triggerAt, Action: simulate.ActionInput, Volts: volts})
				}
			}

			trace, err := simulate.Run(m, probe.Config{
				VMin: cfg.Observer.VMin,
				VMax: cfg.Observer.VMax,
			}, sc)
			if err != nil {
				return err
			}
			data, err := trace.Marshal()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&scenarioPath, ScenarioOptionName, "", "Scenario YAML file. Other scenario flags are ignored when set")
	cmd.Flags().StringVar(&mapPath, RegisterMapOptionName, "", "Register map YAML file")
	cmd.Flags().IntVar(&ticks, TicksOptionName, 64, "Number of ticks to run")
	cmd.Flags().IntVar(&armAt, ArmAtOptionName, 1, "Tick to press arm on, negative to never arm")
	cmd.Flags().IntVar(&triggerAt, TriggerAtOptionName, -1, "Tick to raise input A on, negative to never")
	cmd.Flags().Float64Var(&volts, VoltsOptionName, 3.0, "Input A level raised at --trigger-at")
	cmd.Flags().IntVar(&fireAt, FireAtOptionName, -1, "Tick to press force fire on, negative to never")
	for name, signal := range registerFlags {
		v := new(int)
		registers[name] = v
		cmd.Flags().IntVar(v, name, 0, fmt.Sprintf("Value of %s", signal))
	}
	return cmd
}
