package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig := func(t *testing.T, contents string) string {
		t.Helper()
		path := filepath.Join(dir, t.Name()+".yaml")
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	for _, tt := range []struct {
		desc    string
		config  string // empty: no config file
		env     map[string]string
		want    Config
		wantErr bool
	}{
		{
			desc: "defaults",
			want: Config{Blocks: DefaultBlocks},
		},
		{
			desc:   "file",
			config: "volume: /tmp/disk.img\nblocks: 100\n",
			want:   Config{Volume: "/tmp/disk.img", Blocks: 100},
		},
		{
			desc:   "environment overrides file",
			config: "volume: /tmp/disk.img\n",
			env:    map[string]string{"ECSFS_VOLUME": "/srv/other.img"},
			want:   Config{Volume: "/srv/other.img", Blocks: DefaultBlocks},
		},
		{
			desc:    "unknown key",
			config:  "volumes: typo\n",
			wantErr: true,
		},
		{
			desc:    "bad environment value",
			env:     map[string]string{"ECSFS_BLOCKS": "many"},
			wantErr: true,
		},
	} {
		t.Run(tt.desc, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(dir, "nonexistent.yaml")
			if tt.config != "" {
				path = writeConfig(t, tt.config)
			}
			got, err := load(path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("load unexpectedly succeeded: %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Fatalf("load: diff (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPath(t *testing.T) {
	t.Setenv("ECSFS_CONFIG_FILE", "/etc/ecsfs.yaml")
	if got, want := Path(), "/etc/ecsfs.yaml"; got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
}
