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

package bram

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	pkgbram "ezemfi.io/go-probe/pkg/bram"
	"ezemfi.io/go-probe/pkg/command"
	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/lut"
)

const (
	FileOptionName  = "file"
	AddrOptionName  = "addr"
	CountOptionName = "count"
	VMinOptionName  = "vmin"
	VMaxOptionName  = "vmax"
	PrintOptionName = "print"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bram",
		Short: "Load and inspect the lookup buffer",
	}
	cmd.AddCommand(NewLoadCommand())
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewLutCommand())
	return cmd
}

func NewLoadCommand() *cobra.Command {
	var file string
	var addr uint16
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load words from a file into the lookup buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			words, err := pkgbram.ParseWords(f)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			if err = command.NewApiClient(cfg).BramLoad(addr, words); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d words at 0x%03x\n", len(words), addr)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, FileOptionName, "", "File with one or more words per line")
	cmd.MarkFlagRequired(FileOptionName)
	cmd.Flags().Uint16Var(&addr, AddrOptionName, 0, "First buffer address")
	return cmd
}

func NewReadCommand() *cobra.Command {
	var addr uint16
	var count int
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print words from the lookup buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			words, err := command.NewApiClient(cfg).BramRead(addr, count)
			if err != nil {
				return err
			}
			for i, w := range words {
				fmt.Fprintf(cmd.OutOrStdout(), "0x%03x = 0x%08x\n", int(addr)+i, w)
			}
			return nil
		},
	}
	cmd.Flags().Uint16Var(&addr, AddrOptionName, 0, "First buffer address")
	cmd.Flags().IntVar(&count, CountOptionName, 16, "Number of words, at most "+strconv.Itoa(pkgbram.Depth))
	return cmd
}

func NewLutCommand() *cobra.Command {
	var vMin, vMax float64
	var addr uint16
	var printOnly bool
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "lut",
		Short: "Load a linear voltage table, indexed by percent, into the lookup buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			words := lut.LinearVoltage(vMin, vMax).Words()
			if printOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "# linear %.3f V .. %.3f V, index 0..%d\n", vMin, vMax, lut.MaxIndex)
				for _, w := range words {
					fmt.Fprintf(cmd.OutOrStdout(), "0x%04x\n", w)
				}
				return nil
			}
			if err := command.NewApiClient(cfg).BramLoad(addr, words); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %d words at 0x%03x\n", len(words), addr)
			return nil
		},
	}
	cmd.Flags().Float64Var(&vMin, VMinOptionName, 0, "Voltage at index 0")
	cmd.Flags().Float64Var(&vMax, VMaxOptionName, lut.PctSpanVolts, "Voltage at index 100")
	cmd.Flags().Uint16Var(&addr, AddrOptionName, 0, "First buffer address")
	cmd.Flags().BoolVar(&printOnly, PrintOptionName, false, "Print the table as a word file instead of loading it")
	return cmd
}
