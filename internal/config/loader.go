package config

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"gatewayfleet/pkg/logging"
)

// Load reads a FleetConfig from path, first rendering it as a Go template
// with the sprig function library (so operators can write things like
// {{ env "UPSTREAM_HOST" }} or {{ default "8080" (env "PORT") }} into any
// value) and then unmarshalling the rendered YAML. The result is
// validated before being returned.
func Load(path string) (FleetConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FleetConfig{}, &LoadError{
			File:     path,
			Category: "parse",
			Message:  fmt.Sprintf("reading config file: %s", err),
		}
	}

	rendered, err := render(path, raw)
	if err != nil {
		return FleetConfig{}, &LoadError{
			File:        path,
			Category:    "parse",
			Message:     fmt.Sprintf("rendering template: %s", err),
			Suggestions: []string{"check for unbalanced {{ }} or unknown template functions"},
		}
	}

	var cfg FleetConfig
	if err := yaml.Unmarshal(rendered, &cfg); err != nil {
		return FleetConfig{}, &LoadError{
			File:     path,
			Category: "parse",
			Message:  fmt.Sprintf("parsing yaml: %s", err),
		}
	}

	if err := Validate(cfg); err != nil {
		return FleetConfig{}, err
	}

	logging.Info("config", "loaded %d sites from %s", len(cfg.Sites), path)
	return cfg, nil
}

func render(path string, raw []byte) ([]byte, error) {
	tmpl, err := template.New(path).Funcs(sprig.TxtFuncMap()).Parse(string(raw))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
