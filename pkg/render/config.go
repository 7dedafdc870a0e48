// Copyright ASDL Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package render implements component C8 (§4.8): rendering a netlist.Design
// into backend-specific netlist text via a Config's system templates and
// each device's per-backend templates.
package render

import (
	"fmt"

	"github.com/spf13/viper"
)

// SystemTemplates is the required set of system-level template names every
// Config must define a subset of; the renderer errors on any it
// actually needs (header/footer, per-module subckt framing, per-instance
// module calls) that is missing.
var SystemTemplates = []string{
	"__netlist_header__",
	"__netlist_footer__",
	"__subckt_header__",
	"__subckt_header_params__",
	"__subckt_footer__",
	"__subckt_call__",
	"__subckt_call_params__",
}

// Config is a backend rendering configuration: the name the config selects
// device backends by, whether the top module is wrapped in its own subckt
// framing, and the system/device template table.
type Config struct {
	BackendName string
	TopAsSubckt bool
	Templates   map[string]string
}

type rawConfig struct {
	BackendName string            `mapstructure:"backend_name"`
	TopAsSubckt bool              `mapstructure:"top_as_subckt"`
	Templates   map[string]string `mapstructure:"templates"`
}

// LoadConfig reads a backend configuration YAML file at path using viper,
// the same configuration-loading idiom pkg/views/config.go uses.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read backend config: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal backend config: %w", err)
	}

	return &Config{
		BackendName: raw.BackendName,
		TopAsSubckt: raw.TopAsSubckt,
		Templates:   raw.Templates,
	}, nil
}
