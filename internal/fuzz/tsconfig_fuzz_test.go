package fuzztests

import (
	"os"
	"path/filepath"
	"testing"

	"ngbuild/internal/tsconfig"
)

func FuzzTsconfigLoad(f *testing.F) {
	addTestdataSeeds(f, ".json")
	f.Add([]byte(`{"extends": "./tsconfig.json"}`))
	f.Add([]byte(`{"compilerOptions": {"target": 5}}`))
	f.Add([]byte(`{`))
	f.Fuzz(func(t *testing.T, input []byte) {
		dir := t.TempDir()
		path := filepath.Join(dir, "tsconfig.json")
		if err := os.WriteFile(path, clampInput(input), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg, err := tsconfig.Load(path)
		if err != nil {
			return
		}
		if cfg.Options == nil {
			t.Fatal("loaded config without options")
		}
	})
}
