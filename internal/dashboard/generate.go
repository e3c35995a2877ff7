// Package dashboard renders the bundled Grafana dashboard, wiring it
// to the datasource UIDs of the target Grafana install.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/grafana-dashboard.json.tmpl
var content embed.FS

var templateFiles = []string{
	"templates/grafana-dashboard.json.tmpl",
}

// Render writes the rendered dashboards to outDir. Datasource UIDs
// come from OPENSEARCH_DATASOURCE_UID and PROMETHEUS_DATASOURCE_UID;
// rendering fails when either is unset instead of producing a
// dashboard that points nowhere.
func Render(outDir string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, tplName := range templateFiles {
		t, err := template.New(filepath.Base(tplName)).Funcs(funcMap).ParseFS(content, tplName)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(tplName), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, nil); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
