package plan

import (
	"testing"
)

const planLog = "\x1b[32mOpenTofu will perform the following actions:\x1b[0m\n" + `
  + resource "google_compute_instance" "vm" {
      + machine_type = "e2-small"
      + name         = "sql-server-01"
      + zone         = (known after apply)
      + count        = 2
      + enabled      = true
    }

  ~ resource "google_sql_database" "db" {
      ~ tier = "db-f1-micro"
    }

  - resource "google_storage_bucket" "old" {
    }

12:01:02.123 STDOUT tofu: data.google_project.current: Read complete after 1s
`

func TestParseTextCounts(t *testing.T) {
	summary := ParseText(planLog)

	if summary.Summary.ToCreate != 1 {
		t.Errorf("to_create = %d", summary.Summary.ToCreate)
	}
	if summary.Summary.ToUpdate != 1 {
		t.Errorf("to_update = %d", summary.Summary.ToUpdate)
	}
	if summary.Summary.ToDestroy != 1 {
		t.Errorf("to_destroy = %d", summary.Summary.ToDestroy)
	}
	if len(summary.Resources) != 3 {
		t.Fatalf("resources = %d", len(summary.Resources))
	}
}

func TestParseTextResourceDetails(t *testing.T) {
	summary := ParseText(planLog)
	vm := summary.Resources[0]

	if vm.Action != "create" || vm.Type != "google_compute_instance" || vm.Name != "vm" {
		t.Errorf("vm = %+v", vm)
	}
	if v, _ := vm.Attributes.Get("machine_type"); v != "e2-small" {
		t.Errorf("machine_type = %v", v)
	}
	if v, present := vm.Attributes.Get("zone"); !present || v != nil {
		t.Errorf("computed value must be null: %v", v)
	}
	if v, _ := vm.Attributes.Get("count"); v != int64(2) {
		t.Errorf("count = %v (%T)", v, v)
	}
	if v, _ := vm.Attributes.Get("enabled"); v != true {
		t.Errorf("enabled = %v", v)
	}
}

func TestParseTextDataSources(t *testing.T) {
	summary := ParseText(planLog)
	if len(summary.DataSources) != 1 {
		t.Fatalf("data sources = %v", summary.DataSources)
	}
	ds := summary.DataSources[0]
	if ds.Name != "google_project.current" || ds.Status != "read_complete" {
		t.Errorf("data source = %+v", ds)
	}
}

func TestParseTextStripsANSI(t *testing.T) {
	summary := ParseText("\x1b[1m\x1b[32m  + resource \"a\" \"b\" {\x1b[0m\n")
	if summary.Summary.ToCreate != 1 {
		t.Errorf("coloured header must still parse: %+v", summary.Summary)
	}
}

func TestParseTextReplace(t *testing.T) {
	summary := ParseText(`
-/+ resource "google_compute_instance" "vm" {
    }
`)
	if summary.Summary.ToReplace != 1 {
		t.Errorf("to_replace = %d", summary.Summary.ToReplace)
	}
	if summary.Resources[0].Action != "replace" {
		t.Errorf("action = %s", summary.Resources[0].Action)
	}
}
