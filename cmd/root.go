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

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ezemfi.io/go-probe/cmd/completion"
	"ezemfi.io/go-probe/cmd/config"
	"ezemfi.io/go-probe/cmd/control"
	"ezemfi.io/go-probe/cmd/control/bram"
	"ezemfi.io/go-probe/cmd/control/reg"
	"ezemfi.io/go-probe/cmd/simulate"
	pkgconfig "ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/log"
)

const (
	LogLevelOptionName = "log-level"
)

func NewRootCommand(out io.Writer) *cobra.Command {
	var logLevel string
	cfg := pkgconfig.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:          "go-probe",
		Short:        "Tool to drive and simulate the DS1140-PD EMFI probe",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Init(cmd.ErrOrStderr(), cfg.LogLevel)
			return nil
		},
	}
	cmd.SetOut(out)
	cmd.AddCommand(config.NewCommand())
	cmd.AddCommand(control.NewStartCommand())
	cmd.AddCommand(reg.NewCommand())
	cmd.AddCommand(bram.NewCommand())
	for _, action := range control.ProbeActions {
		cmd.AddCommand(control.NewProbeCommand(action))
	}
	cmd.AddCommand(control.NewStatusCommand())
	cmd.AddCommand(control.NewInputCommand())
	cmd.AddCommand(control.NewRunsCommand())
	cmd.AddCommand(simulate.NewCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.PersistentFlags().StringVar(&logLevel, LogLevelOptionName, "", fmt.Sprintf("Log level. %s", log.HelpLevels))
	return cmd
}
