package forecast

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Commands are the pipeline steps, each a command line split on spaces.
// An empty step is skipped.
type Commands struct {
	Input   string
	Predict string
	Advise  string
}

// Runner drives one forecast run end to end. Runs are serialized because
// every step shares the files in DataDir.
type Runner struct {
	svc      *Service
	dataDir  string
	commands Commands
	horizon  int

	mu sync.Mutex
}

func NewRunner(svc *Service, dataDir string, cmds Commands) *Runner {
	return &Runner{svc: svc, dataDir: dataDir, commands: cmds, horizon: 7}
}

// StepError is a pipeline command that exited unsuccessfully.
type StepError struct {
	Step   string
	Stderr string
	Err    error
}

func (e *StepError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("forecast %s step failed: %s", e.Step, msg)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run writes the prediction input and the operator's context note, runs the
// input, predict and advise steps in order, and ingests what they produced.
// The first failing step aborts the run and nothing is stored.
func (r *Runner) Run(ctx context.Context, productIDs []uint, externalContext string) (*IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir, err := filepath.Abs(r.dataDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	if err := r.writeInput(ctx, dir, productIDs); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ContextFile), []byte(externalContext), 0o644); err != nil {
		return nil, err
	}

	ids := make([]string, len(productIDs))
	for i, id := range productIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	args := []string{"--products", strings.Join(ids, ",")}

	steps := []struct{ name, line string }{
		{"input", r.commands.Input},
		{"predict", r.commands.Predict},
		{"advise", r.commands.Advise},
	}
	for _, st := range steps {
		if strings.TrimSpace(st.line) == "" {
			continue
		}
		start := time.Now()
		if err := runStep(ctx, dir, st.name, st.line, args); err != nil {
			log.Error().Err(err).Str("step", st.name).Msg("forecast pipeline aborted")
			return nil, err
		}
		log.Info().Str("step", st.name).Dur("took", time.Since(start)).Msg("forecast step done")
	}

	res, err := r.svc.Ingest(ctx, dir)
	if err != nil {
		return nil, err
	}
	log.Info().Int("saved", res.Saved).Int("products", len(productIDs)).Msg("forecast run stored")
	return res, nil
}

func (r *Runner) writeInput(ctx context.Context, dir string, productIDs []uint) error {
	f, err := os.Create(filepath.Join(dir, InputFile))
	if err != nil {
		return err
	}
	_, werr := r.svc.WriteForecastInput(ctx, f, productIDs, r.svc.now(), r.horizon)
	cerr := f.Close()
	if werr != nil {
		return werr
	}
	return cerr
}

func runStep(ctx context.Context, dir, name, line string, args []string) error {
	fields := strings.Fields(line)
	cmd := exec.CommandContext(ctx, fields[0], append(fields[1:], args...)...)
	cmd.Env = append(os.Environ(), "ML_DATA_DIR="+dir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &StepError{Step: name, Stderr: stderr.String(), Err: err}
	}
	return nil
}
