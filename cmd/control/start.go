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
	"fmt"

	"github.com/spf13/cobra"

	"ezemfi.io/go-probe/pkg/command"
	"ezemfi.io/go-probe/pkg/config"
)

const (
	IPOptionName          = "ip"
	ApiPortOptionName     = "api-port"
	RegPortOptionName     = "reg-port"
	DBPathOptionName      = "db-path"
	TickPeriodOptionName  = "tick-period-us"
	RegisterMapOptionName = "register-map"
)

func NewStartCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the probe server: tick engine, register endpoint and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return command.StartControlServer(cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.IP, IPOptionName, cfg.IP, fmt.Sprintf("IP to bind. E.g. %s", config.DefaultIP))
	cmd.Flags().IntVar(&cfg.ApiPort, ApiPortOptionName, cfg.ApiPort, "API port")
	cmd.Flags().IntVar(&cfg.RegPort, RegPortOptionName, cfg.RegPort, "UDP register endpoint port")
	cmd.Flags().StringVar(&cfg.DBPath, DBPathOptionName, cfg.DBPath, "Register database path")
	cmd.Flags().IntVar(&cfg.TickPeriodUs, TickPeriodOptionName, cfg.TickPeriodUs, "Tick period in microseconds")
	cmd.Flags().StringVar(&cfg.RegisterMap, RegisterMapOptionName, cfg.RegisterMap, "Register map YAML file. Built-in DS1140-PD map if empty")

	return cmd
}
