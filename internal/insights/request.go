package insights

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Request is an analysis request, loadable from a YAML file so repeated
// surveillance queries can be kept under version control.
type Request struct {
	Prefix        string   `yaml:"prefix"`
	Manufacturers []string `yaml:"manufacturers"`
	Grain         string   `yaml:"grain"`
	ThresholdK    float64  `yaml:"threshold_k"`
}

// LoadRequest reads a Request from a YAML file.
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "insights: read request %s", path)
	}

	var req Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, eris.Wrapf(err, "insights: parse request %s", path)
	}
	if req.Prefix == "" {
		return nil, eris.Errorf("insights: request %s missing prefix", path)
	}
	return &req, nil
}
