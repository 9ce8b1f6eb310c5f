package output

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/anvil/internal/clone"
)

func sampleResult() *clone.Result {
	return &clone.Result{
		RunID:         "7d444840-9dc0-11d1-b245-5ffdce74fad2",
		SourceVM:      "web01",
		ResourceGroup: "rg1",
		Location:      "eastus2",
		VMName:        "web01-dev",
		VMID:          "/subscriptions/sub/resourceGroups/rg1/providers/Microsoft.Compute/virtualMachines/web01-dev",
		Size:          "Standard_B2s",
		OSType:        "Linux",
		SnapshotName:  "osdisk-web01-snapshot-20260827120000",
		DiskName:      "web01-dev-osdisk",
		DiskSKU:       "Standard_LRS",
		NICName:       "web01-dev-nic",
		NSGName:       "web01-dev-nsg",
		NSGMode:       "hardened-new",
		DiagAccount:   "bootdiag00412345",
		DiagCreated:   true,
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		wantErr bool
	}{
		{name: "table", format: FormatTable},
		{name: "yaml", format: FormatYAML},
		{name: "json", format: FormatJSON},
		{name: "invalid", format: Format("xml"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(Options{Format: tt.format})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f == nil {
				t.Error("expected a formatter")
			}
		})
	}
}

func TestValidateFormat(t *testing.T) {
	for _, valid := range []string{"table", "yaml", "json"} {
		if err := ValidateFormat(valid); err != nil {
			t.Errorf("ValidateFormat(%q) = %v", valid, err)
		}
	}
	if err := ValidateFormat("csv"); err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestTableFormatter(t *testing.T) {
	f := &TableFormatter{}
	out, err := f.FormatResult(sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out, "RESOURCE") {
		t.Error("missing header row")
	}
	for _, want := range []string{
		"web01-dev (Standard_B2s, Linux)",
		"web01-dev-osdisk (Standard_LRS)",
		"osdisk-web01-snapshot-20260827120000 (kept)",
		"web01-dev-nsg (hardened-new)",
		"bootdiag00412345 (created)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	f := &TableFormatter{NoHeaders: true}
	out, err := f.FormatResult(sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "RESOURCE") {
		t.Errorf("header present with NoHeaders:\n%s", out)
	}
}

func TestTableFormatter_DeletedSnapshotAndReusedDiag(t *testing.T) {
	r := sampleResult()
	r.SnapshotDeleted = true
	r.DiagCreated = false

	f := &TableFormatter{}
	out, err := f.FormatResult(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "(deleted)") {
		t.Errorf("deleted snapshot not reported:\n%s", out)
	}
	if !strings.Contains(out, "bootdiag00412345 (reused)") {
		t.Errorf("reused diagnostics account not reported:\n%s", out)
	}
}

func TestYAMLFormatter(t *testing.T) {
	f := &YAMLFormatter{}
	out, err := f.FormatResult(sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed clone.Result
	if err := yaml.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if parsed.VMName != "web01-dev" || parsed.NSGMode != "hardened-new" {
		t.Errorf("roundtrip lost data: %+v", parsed)
	}
	if !strings.Contains(out, "vmName: web01-dev") {
		t.Errorf("expected camelCase keys:\n%s", out)
	}
}

func TestJSONFormatter(t *testing.T) {
	f := &JSONFormatter{}
	out, err := f.FormatResult(sampleResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed clone.Result
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.RunID != "7d444840-9dc0-11d1-b245-5ffdce74fad2" {
		t.Errorf("roundtrip lost run ID: %+v", parsed)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("JSON output should end with a newline")
	}
}
