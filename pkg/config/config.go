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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

type ObserverConfig struct {
	VMin float64 `yaml:"vMin"`
	VMax float64 `yaml:"vMax"`
}

type Config struct {
	IP           string          `yaml:"ip"`
	ApiPort      int             `yaml:"apiPort"`
	RegPort      int             `yaml:"regPort"`
	DBPath       string          `yaml:"dbPath"`
	DeviceName   string          `yaml:"deviceName"`
	TickPeriodUs int             `yaml:"tickPeriodUs"`
	RegisterMap  string          `yaml:"registerMap,omitempty"`
	LogLevel     string          `yaml:"logLevel"`
	Observer     *ObserverConfig `yaml:"observer"`
	filepath     string
}

// TickPeriod returns the engine tick period
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.TickPeriodUs) * time.Microsecond
}

func (c *Config) ApiAddr() string {
	return fmt.Sprintf("%s:%d", c.IP, c.ApiPort)
}

func (c *Config) RegAddr() string {
	return fmt.Sprintf("%s:%d", c.IP, c.RegPort)
}

func (c *Config) Path() string {
	return c.filepath
}

func (c *Config) SetPath(path string) {
	c.filepath = path
}

func (c *Config) Validate() error {
	if c.TickPeriodUs <= 0 {
		return ErrInvalidConfig{What: fmt.Sprintf("tickPeriodUs must be positive, got %d", c.TickPeriodUs)}
	}
	if c.DeviceName == "" {
		return ErrInvalidConfig{What: "deviceName is empty"}
	}
	if c.Observer == nil || c.Observer.VMax <= c.Observer.VMin {
		return ErrInvalidConfig{What: "observer vMax must be greater than vMin"}
	}
	return nil
}

func (c *Config) Persist(overwrite bool) error {
	if _, err := os.Stat(c.filepath); err == nil && !overwrite {
		return ErrConfigFileExists{Path: c.filepath}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(c.filepath), 0755); err != nil {
		return err
	}
	return os.WriteFile(c.filepath, data, 0644)
}

// Load reads the config file over the current values. A missing file leaves defaults untouched.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.filepath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", c.filepath, err)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return home
}

func DefaultConfigPath() string {
	return filepath.Join(homeDir(), ConfigDir, ConfigFile)
}

func DefaultDBPath() string {
	return filepath.Join(homeDir(), ConfigDir, DBFile)
}

func NewDefaultConfig() *Config {
	return &Config{
		IP:           DefaultIP,
		ApiPort:      DefaultApiPort,
		RegPort:      DefaultRegPort,
		DBPath:       DefaultDBPath(),
		DeviceName:   DefaultDeviceName,
		TickPeriodUs: DefaultTickPeriod,
		LogLevel:     DefaultLogLevel,
		Observer: &ObserverConfig{
			VMin: DefaultObserverMin,
			VMax: DefaultObserverMax,
		},
		filepath: DefaultConfigPath(),
	}
}
