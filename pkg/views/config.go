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
package views

import (
	"fmt"

	"github.com/spf13/viper"
)

// rawProfile mirrors the on-disk YAML shape of a view profile, unmarshaled
// via viper/mapstructure before being converted into the plain Profile type
// this package operates on.
type rawProfile struct {
	ViewOrder []string `mapstructure:"view_order"`
	Rules     []rawRule `mapstructure:"rules"`
}

type rawRule struct {
	Path     string `mapstructure:"path"`
	Instance string `mapstructure:"instance"`
	Module   string `mapstructure:"module"`
	View     string `mapstructure:"view"`
}

// LoadProfile reads a view-binding profile YAML file at path using viper,
// the same configuration-loading library the rest of this module's
// backend config (pkg/render) uses, and validates it before returning.
func LoadProfile(path string) (*Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read view profile: %w", err)
	}

	var raw rawProfile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal view profile: %w", err)
	}

	profile := &Profile{ViewOrder: raw.ViewOrder}
	for _, r := range raw.Rules {
		profile.Rules = append(profile.Rules, Rule{
			Path: r.Path, Instance: r.Instance, Module: r.Module, View: r.View,
		})
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid view profile %s: %w", path, err)
	}
	return profile, nil
}
