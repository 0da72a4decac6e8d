// Package config loads a VSOP project's optional "vsop.yaml" file: the
// default output name, default dialect, and extra runtime objects to link,
// read by the no-stage-flag build pipeline. Grounded on the teacher's
// tawaModule ("Tawa Module Information" YAML marshal/unmarshal in main.go).
package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

// FileName is the project configuration file's conventional name, the VSOP
// analogue of the teacher's "Tawa Module Information".
const FileName = "vsop.yaml"

// Project is the decoded shape of vsop.yaml.
type Project struct {
	Package   string   `yaml:"package"`
	Output    string   `yaml:"output,omitempty"`
	Extended  bool     `yaml:"extended,omitempty"`
	LinkLibs  []string `yaml:"linkLibraries,omitempty"`
	RuntimeOf string   `yaml:"runtimeObject,omitempty"`
}

// Load reads and decodes FileName out of dir. A missing file is not an
// error — callers fall back to command-line flags and positional defaults.
func Load(dir string) (*Project, error) {
	path := dir + string(os.PathSeparator) + FileName
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &p, nil
}

// Init writes a fresh vsop.yaml naming packageName as the project's package,
// matching the teacher's `init` subcommand.
func Init(dir, packageName string) error {
	p := Project{Package: packageName}
	out, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", FileName, err)
	}

	path := dir + string(os.PathSeparator) + FileName
	fi, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer fi.Close()

	if _, err := fi.Write(out); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
