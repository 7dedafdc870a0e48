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
package docfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asdl-hdl/asdlc/pkg/docfile"
)

const sampleYAML = `
file: top.asdl
top: inv
devices:
  - name: nmos
    ports: [d, g, s]
    params:
      - {name: w, kind: float, float: 1.0}
    backends:
      - name: spice
        template: "M{name} {ports} nmos {params}"
modules:
  - name: inv
    instances:
      - {name: m1, expr: nmos}
    nets:
      - {name: out, implicit_port: true, endpoints: ["m1.d"]}
      - {name: in, implicit_port: true, endpoints: ["!m1.g"]}
      - {name: gnd, endpoints: ["m1.s"]}
`

func writeSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "top.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))
	return path
}

func TestLoadConvertsOrderedCollections(t *testing.T) {
	path := writeSample(t)
	doc, err := docfile.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "top.asdl", doc.File)
	assert.Equal(t, "inv", doc.Top)

	require.Equal(t, 1, doc.Devices.Len())
	dev, ok := doc.Devices.Get("nmos")
	require.True(t, ok)
	assert.Equal(t, []string{"d", "g", "s"}, dev.Ports)
	w, ok := dev.Params.Get("w")
	require.True(t, ok)
	assert.Equal(t, "float", w.Kind)
	assert.Equal(t, 1.0, w.Float)

	backend, ok := dev.Backends.Get("spice")
	require.True(t, ok)
	assert.Equal(t, "M{name} {ports} nmos {params}", backend.Template)

	require.Equal(t, 1, doc.Modules.Len())
	mod, ok := doc.Modules.Get("inv")
	require.True(t, ok)
	require.Equal(t, 1, mod.Instances.Len())
	inst, ok := mod.Instances.Get("m1")
	require.True(t, ok)
	assert.Equal(t, "nmos", inst.Raw)

	require.Equal(t, 3, mod.Nets.Len())
	outNet, ok := mod.Nets.Get("out")
	require.True(t, ok)
	assert.True(t, outNet.ImplicitPort)
	require.Len(t, outNet.Endpoints, 1)
	assert.Equal(t, "m1.d", outNet.Endpoints[0].Expr)
	assert.False(t, outNet.Endpoints[0].Suppressed)

	inNet, ok := mod.Nets.Get("in")
	require.True(t, ok)
	require.Len(t, inNet.Endpoints, 1)
	assert.Equal(t, "m1.g", inNet.Endpoints[0].Expr)
	assert.True(t, inNet.Endpoints[0].Suppressed)
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := docfile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
