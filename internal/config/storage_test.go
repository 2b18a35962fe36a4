package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestNewStorageWithPath(t *testing.T) {
	customPath := "/custom/config/path"
	ds := NewStorageWithPath(customPath)
	if ds == nil {
		t.Fatal("NewStorageWithPath returned nil")
	}
	if ds.Root() != customPath {
		t.Errorf("Expected root %s, got %s", customPath, ds.Root())
	}
}

func TestStorage_Save(t *testing.T) {
	tempDir := t.TempDir()
	ds := NewStorageWithPath(tempDir)

	tests := []struct {
		name        string
		kind        string
		itemName    string
		data        []byte
		wantErr     bool
		errContains string
	}{
		{
			name:     "save valid service",
			kind:     KindServices,
			itemName: "Shop",
			data:     []byte("name: Shop\nisActive: true\n"),
		},
		{
			name:        "empty kind",
			kind:        "",
			itemName:    "test",
			data:        []byte("data"),
			wantErr:     true,
			errContains: "kind cannot be empty",
		},
		{
			name:        "empty name",
			kind:        KindServices,
			itemName:    "",
			data:        []byte("data"),
			wantErr:     true,
			errContains: "name cannot be empty",
		},
		{
			name:     "sanitize filename",
			kind:     KindServices,
			itemName: "test/service:with*problematic?chars",
			data:     []byte("name: test\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ds.Save(tt.kind, tt.itemName, tt.data)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Save() error = nil, wantErr %v", tt.wantErr)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Save() error = %v, want error containing %s", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			expectedPath := filepath.Join(tempDir, tt.kind, SanitizeFilename(tt.itemName)+".yaml")
			content, err := os.ReadFile(expectedPath)
			if err != nil {
				t.Fatalf("Failed to read saved file: %v", err)
			}
			if !reflect.DeepEqual(content, tt.data) {
				t.Errorf("File content = %s, want %s", string(content), string(tt.data))
			}
		})
	}
}

func TestStorage_SaveLeavesNoTemporaryFiles(t *testing.T) {
	tempDir := t.TempDir()
	ds := NewStorageWithPath(tempDir)

	for i := 0; i < 3; i++ {
		if err := ds.Save(KindServices, "Shop", []byte("name: Shop\n")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(tempDir, KindServices))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "Shop.yaml" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only Shop.yaml, got %v", names)
	}
}

func TestStorage_LoadAndDelete(t *testing.T) {
	ds := NewStorageWithPath(t.TempDir())

	if _, err := ds.Load(KindServices, "missing"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Load() of missing record error = %v, want ErrEntityNotFound", err)
	}

	if err := ds.Save(KindServices, "Shop", []byte("name: Shop\n")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := ds.Load(KindServices, "Shop")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(data) != "name: Shop\n" {
		t.Errorf("Load() = %q", string(data))
	}

	exists, err := ds.Exists(KindServices, "Shop")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true, nil", exists, err)
	}

	if err := ds.Delete(KindServices, "Shop"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := ds.Delete(KindServices, "Shop"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("second Delete() error = %v, want ErrEntityNotFound", err)
	}

	exists, err = ds.Exists(KindServices, "Shop")
	if err != nil || exists {
		t.Errorf("Exists() after delete = %v, %v; want false, nil", exists, err)
	}
}

func TestStorage_List(t *testing.T) {
	tempDir := t.TempDir()
	ds := NewStorageWithPath(tempDir)

	names, err := ds.List(KindServices)
	if err != nil {
		t.Fatalf("List() on missing dir error = %v", err)
	}
	if len(names) != 0 {
		t.Errorf("List() on missing dir = %v, want empty", names)
	}

	for _, n := range []string{"Store", "Billing", "Shop"} {
		if err := ds.Save(KindServices, n, []byte("name: "+n+"\n")); err != nil {
			t.Fatalf("Save(%s) error = %v", n, err)
		}
	}
	// Noise that must be ignored
	dir := filepath.Join(tempDir, KindServices)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".Shop.yaml.tmp-1"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755); err != nil {
		t.Fatal(err)
	}

	names, err = ds.List(KindServices)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"Billing", "Shop", "Store"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Shop", "Shop"},
		{"my service", "my_service"},
		{"a/b:c", "a_b_c"},
		{"__x__", "x"},
		{"v1.2", "v1_2"},
		{"...", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsRecordFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/x/services/Shop.yaml", true},
		{"/x/services/Shop.YAML", true},
		{"/x/services/.Shop.yaml.tmp-123", false},
		{"/x/services/.hidden.yaml", false},
		{"/x/services/Shop.json", false},
	}

	for _, tt := range tests {
		if got := IsRecordFile(tt.path); got != tt.want {
			t.Errorf("IsRecordFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
