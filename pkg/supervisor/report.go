// pkg/supervisor/report.go

package supervisor

import (
	"os"
	"path/filepath"
	"time"

	cerr "github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type attemptReport struct {
	Number            int            `yaml:"number"`
	RestartOutcome    RestartOutcome `yaml:"restart_outcome"`
	StateAfterRestart ServiceState   `yaml:"state_after_restart"`
	PortListening     bool           `yaml:"port_listening"`
	Started           time.Time      `yaml:"started"`
	Duration          string         `yaml:"duration"`
	Error             string         `yaml:"error,omitempty"`
}

type runReport struct {
	RunID       string          `yaml:"run_id"`
	ServiceName string          `yaml:"service_name"`
	Port        int             `yaml:"port"`
	Outcome     Outcome         `yaml:"outcome"`
	Started     time.Time       `yaml:"started"`
	Elapsed     string          `yaml:"elapsed"`
	Attempts    []attemptReport `yaml:"attempts"`
}

// MarshalReport renders the result as a YAML run report.
func (r *Result) MarshalReport() ([]byte, error) {
	doc := runReport{
		RunID:       r.RunID,
		ServiceName: r.ServiceName,
		Port:        r.Port,
		Outcome:     r.Outcome,
		Started:     r.Started.UTC(),
		Elapsed:     r.Elapsed.String(),
	}
	for _, a := range r.Attempts {
		ar := attemptReport{
			Number:            a.Number,
			RestartOutcome:    a.RestartOutcome,
			StateAfterRestart: a.StateAfterRestart,
			PortListening:     a.PortListening,
			Started:           a.Started.UTC(),
			Duration:          a.Duration.String(),
		}
		if a.Err != nil {
			ar.Error = a.Err.Error()
		}
		doc.Attempts = append(doc.Attempts, ar)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, cerr.Wrap(err, "marshal run report")
	}
	return out, nil
}

// WriteReport writes the YAML run report to path, creating parent directories.
func (r *Result) WriteReport(path string) error {
	data, err := r.MarshalReport()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return cerr.Wrapf(err, "create report directory for %s", path)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return cerr.Wrapf(err, "write run report %s", path)
	}
	return nil
}
