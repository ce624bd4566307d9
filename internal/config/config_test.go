package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Assignment.AutoReserve {
		t.Error("auto reserve should default to true")
	}
	if cfg.Assignment.ProtectLockedStatuses {
		t.Error("locked statuses should be overwritten by default")
	}
	if !cfg.DevTools.Enabled {
		t.Error("dev tools should be enabled in development")
	}
	if cfg.Blob.Driver != BlobDriverMemory {
		t.Errorf("blob driver %q", cfg.Blob.Driver)
	}
}

func TestLoadRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown store", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without dsn", map[string]string{"STORE_DRIVER": "postgres", "POSTGRES_DSN": ""}},
		{"s3 without bucket", map[string]string{"STORE_DRIVER": "memory", "BLOB_DRIVER": "s3", "BLOB_S3_BUCKET": ""}},
		{"bad redis db", map[string]string{"STORE_DRIVER": "memory", "REDIS_DB": "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
