/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config round-trips a model.Config through YAML, giving the
// frame approximator's tuning surface (the Theta staircase, the frame
// ceiling, the folding-parameter search space) a concrete on-disk form
// instead of requiring every caller to build it in code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ciminilorenzo/webgraph-ans-go/model"
)

// document is the on-disk shape: model.Config's SearchSpace is a slice
// of fixed-size arrays, which yaml.v3 round-trips fine on its own, but
// pairing fidelity/radix with field names reads better in a checked-in
// config file than a bare two-element list.
type document struct {
	Theta        []float64 `yaml:"theta"`
	FrameCeiling uint      `yaml:"frame_ceiling"`
	SearchSpace  []pairDoc `yaml:"search_space,omitempty"`
}

type pairDoc struct {
	Fidelity uint `yaml:"fidelity"`
	Radix    uint `yaml:"radix"`
}

// Save writes cfg to path as YAML. An empty cfg.SearchSpace is omitted
// so the file stays short when the caller just wants the default
// (model.FoldingParams()) search space.
func Save(path string, cfg model.Config) error {
	doc := document{Theta: cfg.Theta, FrameCeiling: cfg.FrameCeiling}

	for _, pair := range cfg.SearchSpace {
		doc.SearchSpace = append(doc.SearchSpace, pairDoc{Fidelity: pair[0], Radix: pair[1]})
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("ans/config: marshal: %w", err)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("ans/config: write %s: %w", path, err)
	}

	return nil
}

// Load reads a model.Config from path. A missing or empty search_space
// falls back to model.FoldingParams(), the full default search space.
func Load(path string) (model.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Config{}, fmt.Errorf("ans/config: read %s: %w", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return model.Config{}, fmt.Errorf("ans/config: parse %s: %w", path, err)
	}

	cfg := model.Config{Theta: doc.Theta, FrameCeiling: doc.FrameCeiling}

	if len(doc.SearchSpace) == 0 {
		cfg.SearchSpace = model.FoldingParams()
	} else {
		for _, pair := range doc.SearchSpace {
			cfg.SearchSpace = append(cfg.SearchSpace, [2]uint{pair.Fidelity, pair.Radix})
		}
	}

	return cfg, nil
}
