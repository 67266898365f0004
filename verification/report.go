package verification

import (
	"encoding/json"
	"fmt"

	"github.com/crytic/solverify/utils"
	"github.com/crytic/solverify/verification/config"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MarshalReport serializes the outcome in the provided report format.
func MarshalReport(outcome *Outcome, format string) ([]byte, error) {
	switch format {
	case config.ReportFormatJSON, "":
		b, err := json.MarshalIndent(outcome, "", "\t")
		return b, errors.WithStack(err)
	case config.ReportFormatYAML:
		b, err := yaml.Marshal(outcome)
		return b, errors.WithStack(err)
	default:
		return nil, fmt.Errorf("unsupported report format '%s'", format)
	}
}

// WriteReport serializes the outcome in the provided report format and writes it to path, creating its parent
// directory if needed.
func WriteReport(outcome *Outcome, path string, format string) error {
	b, err := MarshalReport(outcome, format)
	if err != nil {
		return err
	}
	return utils.WriteFileCreatingDirectory(path, b)
}
