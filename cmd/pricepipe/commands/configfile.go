package commands

import (
	"errors"
	"io/fs"
	"os"

	"github.com/dyluth/pricepipe/internal/config"
	"github.com/dyluth/pricepipe/internal/printer"
)

// defaultConfigFile is read when -f is not given
const defaultConfigFile = "pipeline.yml"

// loadConfig loads path. A missing file is only an error when the user named
// it explicitly; otherwise nil is returned and flags alone drive the command.
func loadConfig(path string, explicit bool) (*config.PipelineConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid pipeline configuration",
			err.Error(),
			map[string]string{"File": path},
			[]string{"Create a starter configuration:\n  pricepipe init"},
		)
	}
	return cfg, nil
}
