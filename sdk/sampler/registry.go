// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sampler

import (
	"fmt"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/spec"
)

// Builder builds a Drawer bound to a specific weight vector.
// It is invoked during machine initialization.
type Builder func(weights []float64) (Drawer, error)

// Registry maps sampler keys to engine builders. Machines look up their
// engine here by the sampler_key in the dist setting.
type Registry struct {
	builders map[spec.SamplerKey]Builder
}

func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[spec.SamplerKey]Builder, 8),
	}
}

// NewDefaultRegistry returns a registry with every built-in engine wired:
// linear inverse-CDF scan, alias table, and look-up table.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	// builtin keys cannot collide, errors are impossible here
	_ = r.Register(spec.SamplerLinear, func(weights []float64) (Drawer, error) {
		return BuildLinear(weights)
	})
	_ = r.Register(spec.SamplerAlias, func(weights []float64) (Drawer, error) {
		return BuildAliasTable(weights)
	})
	_ = r.Register(spec.SamplerLUT, func(weights []float64) (Drawer, error) {
		return BuildLUTEngine(weights)
	})
	return r
}

func (r *Registry) Register(key spec.SamplerKey, b Builder) error {
	if _, ok := r.builders[key]; ok {
		return errs.NewFatal("duplicate sampler builder")
	}
	r.builders[key] = b
	return nil
}

func (r *Registry) Build(key spec.SamplerKey, weights []float64) (Drawer, error) {
	b, ok := r.builders[key]
	if !ok {
		return nil, errs.NewFatal(fmt.Sprintf("sampler is not exist: %s", key))
	}
	return b(weights)
}

func (r *Registry) IsExist(key spec.SamplerKey) bool {
	_, ok := r.builders[key]
	return ok
}

// MergeRegistry merges multiple registries into a new one.
//
// Because function values are not comparable in Go (except to nil), duplicate
// keys are treated as an error unconditionally. This keeps behavior
// deterministic and avoids “last one wins” surprises.
func MergeRegistry(regs ...*Registry) (*Registry, error) {
	mr := NewRegistry()

	// Track where a key first came from to produce a useful error message.
	origin := make(map[spec.SamplerKey]int, 8)

	for i, r := range regs {
		if r == nil {
			continue
		}
		for key, builder := range r.builders {
			if _, ok := mr.builders[key]; ok {
				prev := origin[key]
				return nil, errs.NewFatal(fmt.Sprintf("duplicate sampler key %s (registry #%d and #%d)", key, prev, i))
			}
			mr.builders[key] = builder
			origin[key] = i
		}
	}

	return mr, nil
}
