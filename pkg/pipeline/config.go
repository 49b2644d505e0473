package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	scanerrors "github.com/matzehuels/treescan/pkg/errors"
)

// LoadConfig reads run options from a TOML, YAML or JSON file, chosen by
// extension. Unknown keys are rejected so that typos do not silently fall
// back to defaults. Defaults are not applied.
func LoadConfig(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Options{}, scanerrors.Wrap(scanerrors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return Options{}, err
	}

	var opts Options
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(string(data), &opts)
		if err != nil {
			return Options{}, scanerrors.Wrap(scanerrors.ErrCodeInputParse, err, "config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Options{}, scanerrors.New(scanerrors.ErrCodeInvalidInput, "config %s: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&opts); err != nil {
			return Options{}, scanerrors.Wrap(scanerrors.ErrCodeInputParse, err, "config %s", path)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return Options{}, scanerrors.Wrap(scanerrors.ErrCodeInputParse, err, "config %s", path)
		}
	default:
		return Options{}, scanerrors.New(scanerrors.ErrCodeUnsupported, "config %s: unsupported extension %q (want .toml, .yaml or .json)", path, ext)
	}
	return opts, nil
}
