// Copyright EPFL.
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

package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/epfl-vlsc/bitfiltrator/pkg/arch"
)

const sampleCatalog = `{
  "Kintex UltraScale": {
    "xcku040": ["xcku040-ffva1156-2-e", "xcku040-ffva1156-1-c"]
  },
  "Virtex UltraScale+": {
    "xcu250": ["xcu250-figd2104-2-e", "xcu250-figd2104-2L-e", "xcu250-figd2104-2LV-e"]
  },
  "Artix-7": {
    "xc7a35t": ["xc7a35t-cpg236-1"]
  }
}`

func Test_Catalog_00(t *testing.T) {
	catalog, err := ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatal(err)
	}

	entry, err := catalog.Lookup("xcu250-figd2104-2LV-e")
	if err != nil {
		t.Fatal(err)
	}

	if entry.Device != "xcu250" || entry.Arch != arch.UltraScalePlus {
		t.Errorf("got %v", entry)
	}

	entry, err = catalog.Lookup("xcku040-ffva1156-2-e")
	if err != nil {
		t.Fatal(err)
	}

	if entry.Arch != arch.UltraScale {
		t.Errorf("got %v", entry)
	}

	// Series-7 parts are not part of the catalog.
	if _, err := catalog.Lookup("xc7a35t-cpg236-1"); err == nil {
		t.Error("expected unknown part")
	}
}

func Test_Catalog_01(t *testing.T) {
	catalog, err := ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatal(err)
	}

	devices := catalog.Devices()
	if len(devices) != 2 || devices[0] != "xcku040" || devices[1] != "xcu250" {
		t.Errorf("got %v", devices)
	}

	part, err := catalog.RepresentativePart("xcku040")
	if err != nil {
		t.Fatal(err)
	}

	if part != "xcku040-ffva1156-1-c" {
		t.Errorf("got %s", part)
	}

	if _, err := catalog.RepresentativePart("xc7a35t"); err == nil {
		t.Error("expected no parts")
	}
}

func Test_Runner_00(t *testing.T) {
	if _, err := buildCommand(Script{Path: "probe.sh"}); err == nil {
		t.Error("expected unknown extension")
	}

	cmd, err := buildCommand(Script{Path: "probe.tcl", Args: []string{"xcku040", "out.json"}})
	if err != nil {
		t.Fatal(err)
	}

	expected := []string{"vivado", "-mode", "batch", "-source", "probe.tcl", "-notrace", "-tclargs", "xcku040", "out.json"}
	if len(cmd) != len(expected) {
		t.Fatalf("got %v", cmd)
	}

	for i := range expected {
		if cmd[i] != expected[i] {
			t.Errorf("arg %d: got %s, expected %s", i, cmd[i], expected[i])
		}
	}

	cmd, err = buildCommand(Script{Path: "gen.py", Args: []string{"--part", "xcku040"}})
	if err != nil {
		t.Fatal(err)
	}

	if cmd[0] != "python3" || cmd[1] != "gen.py" {
		t.Errorf("got %v", cmd)
	}
}

func Test_Runner_01(t *testing.T) {
	// An invocation whose artifacts already exist is skipped entirely, even
	// when the tool itself is unavailable.
	artifact := filepath.Join(t.TempDir(), "out.json")
	if err := os.WriteFile(artifact, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	runner := NewRunner()

	ok, err := runner.Run(context.Background(), Script{
		Path:            "probe.tcl",
		ExpectedOutputs: []string{artifact},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !ok {
		t.Error("expected skip to report success")
	}
}

func Test_Geometry_00(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geometry.json")

	dump := `{
	  "part": "xcku040-ffva1156-2-e",
	  "slrs": [
	    {"name": "SLR0", "index": 0, "idcode": 58859667, "regions": [
	      {"name": "X0Y1", "x": 0, "y": 1, "columns": []},
	      {"name": "X0Y0", "x": 0, "y": 0, "columns": [
	        {"index": 3, "type": "CLB", "sites": [
	          {"name": "SLICE_X0Y13", "type": "SLICEL", "x": 0, "y": 13},
	          {"name": "SLICE_X0Y0", "type": "SLICEL", "x": 0, "y": 0}
	        ]}
	      ]}
	    ]}
	  ]
	}`

	if err := os.WriteFile(path, []byte(dump), 0644); err != nil {
		t.Fatal(err)
	}

	device, err := LoadGeometry(path)
	if err != nil {
		t.Fatal(err)
	}

	if device.SLRs[0].Regions[0].Name != "X0Y0" {
		t.Errorf("got region %s first", device.SLRs[0].Regions[0].Name)
	}

	sites := device.SLRs[0].Regions[0].Columns[0].Sites
	if sites[0].Name != "SLICE_X0Y0" {
		t.Errorf("got site %s first", sites[0].Name)
	}
}

func Test_Catalog_02(t *testing.T) {
	catalog, err := ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatal(err)
	}

	licensed, err := ParseCatalog([]byte(`{
  "Kintex UltraScale": {
    "xcku040": ["xcku040-ffva1156-1-c"]
  }
}`))
	if err != nil {
		t.Fatal(err)
	}

	kept := catalog.Intersect(licensed)

	if parts := kept.Parts(); len(parts) != 1 || parts[0] != "xcku040-ffva1156-1-c" {
		t.Errorf("got %v", parts)
	}
}

func Test_Catalog_03(t *testing.T) {
	catalog, err := ParseCatalog([]byte(sampleCatalog))
	if err != nil {
		t.Fatal(err)
	}

	numLuts := map[string]uint{
		"xcku040-ffva1156-2-e":  242400,
		"xcku040-ffva1156-1-c":  242400,
		"xcu250-figd2104-2-e":   1728000,
		"xcu250-figd2104-2L-e":  1728000,
		"xcu250-figd2104-2LV-e": 1728000,
	}

	part, err := catalog.SmallestPart(arch.UltraScale, numLuts)
	if err != nil {
		t.Fatal(err)
	}

	// Tie on size, so sorted order decides.
	if part != "xcku040-ffva1156-1-c" {
		t.Errorf("got %s", part)
	}

	if _, err := catalog.SmallestPart(arch.UltraScale, nil); err == nil {
		t.Error("expected an error for missing counts")
	}
}
