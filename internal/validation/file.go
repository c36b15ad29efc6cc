package validation

import (
	"os"

	"github.com/morikuni/failure/v2"

	"aistack/internal/errcode"
	"aistack/internal/mcpconfig"
	"aistack/pkg/fileops"
)

// MaxConfigSize bounds the size of a configuration file.
const MaxConfigSize = 4 << 20

// Exit codes of the validate command.
const (
	ExitPassed  = 0
	ExitFailed  = 1
	ExitMissing = 2
)

// ValidateFile reads and validates the configuration at path. A missing file
// is a NotFound error; unreadable JSON is reported as an error finding.
func ValidateFile(path string) (Report, error) {
	report := Report{File: path}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return report, failure.New(errcode.NotFound,
				failure.Message("Config file not found: "+path),
				failure.Context{"path": path})
		}
		return report, failure.Wrap(err, failure.Context{"path": path})
	}
	if err := fileops.ValidateFileSizeLimit(path, MaxConfigSize); err != nil {
		report.add(LevelError, "", err.Error())
		return report, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return report, failure.Wrap(err, failure.Context{"path": path})
	}

	raw, err := mcpconfig.Parse(data)
	if err != nil {
		report.add(LevelError, "", "Invalid JSON: "+errcode.Message(err))
		return report, nil
	}

	result := ValidateDocument(raw)
	report.Findings = result.Findings
	return report, nil
}

// ExitCode maps a ValidateFile outcome to the validate command's exit code.
func ExitCode(report Report, err error, strict bool) int {
	switch {
	case failure.Is(err, errcode.NotFound):
		return ExitMissing
	case err != nil:
		return ExitFailed
	case report.Passed(strict):
		return ExitPassed
	default:
		return ExitFailed
	}
}
