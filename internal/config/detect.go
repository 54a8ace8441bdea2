package config

import (
	"os"
	"path/filepath"
)

// Detection holds defaults inferred from the project's contents.
type Detection struct {
	Language string
	Ports    []PortSpec
	Services []ServiceSpec
}

// Detect inspects the project directory and suggests a starting config.
func Detect(projectDir string) Detection {
	checks := []struct {
		file     string
		language string
		ports    []PortSpec
		services []ServiceSpec
	}{
		{"go.mod", "go",
			[]PortSpec{{Name: "APP", Base: 8080, Increment: DefaultPortIncrement}},
			nil},
		{"package.json", "node",
			[]PortSpec{{Name: "APP", Base: 3000, Increment: DefaultPortIncrement}},
			[]ServiceSpec{{Name: "dev-server", Dir: "/workspace", Command: "npm run dev"}}},
		{"requirements.txt", "python",
			[]PortSpec{{Name: "APP", Base: 8000, Increment: DefaultPortIncrement}},
			nil},
		{"pyproject.toml", "python",
			[]PortSpec{{Name: "APP", Base: 8000, Increment: DefaultPortIncrement}},
			nil},
		{"Cargo.toml", "rust",
			[]PortSpec{{Name: "APP", Base: 8080, Increment: DefaultPortIncrement}},
			nil},
	}

	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(projectDir, c.file)); err == nil {
			return Detection{Language: c.language, Ports: c.ports, Services: c.services}
		}
	}
	return Detection{Language: "unknown"}
}
