package motif

import (
	"bufio"
	"context"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-motif-service/pkg/graph"
)

// ExecConfig describes how to reach the external census binary
type ExecConfig struct {
	Command    string        `json:"command"`     // e.g. "./Kavosh"; the motif size is appended
	WorkDir    string        `json:"work_dir"`    // directory the command runs in
	InputFile  string        `json:"input_file"`  // relative to WorkDir
	OutputFile string        `json:"output_file"` // relative to WorkDir
	Timeout    time.Duration `json:"timeout"`     // 0 means no timeout
}

// DefaultExecConfig matches the Kavosh layout: result/OUTPUT.txt in, result/MotifCount.txt out
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		Command:    "./Kavosh",
		WorkDir:    ".",
		InputFile:  filepath.Join("result", "OUTPUT.txt"),
		OutputFile: filepath.Join("result", "MotifCount.txt"),
	}
}

// ExecCounter runs the census engine as a subprocess communicating through files.
// The files are shared state, so calls are serialized.
type ExecCounter struct {
	config ExecConfig
	argv   []string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewExecCounter validates the configuration and splits the command line
func NewExecCounter(config ExecConfig, logger zerolog.Logger) (*ExecCounter, error) {
	argv, err := shellquote.Split(config.Command)
	if err != nil {
		return nil, errors.Wrap(err, "invalid counter command")
	}
	if len(argv) == 0 {
		return nil, errors.New("counter command cannot be empty")
	}
	if config.InputFile == "" || config.OutputFile == "" {
		return nil, errors.New("counter input and output files must be set")
	}
	if config.WorkDir == "" {
		config.WorkDir = "."
	}

	return &ExecCounter{config: config, argv: argv, logger: logger}, nil
}

// CountMotifs writes g to the input file, runs the engine and parses its output
func (c *ExecCounter) CountMotifs(ctx context.Context, g *graph.Digraph, size int) (*Census, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	inputPath := filepath.Join(c.config.WorkDir, c.config.InputFile)
	outputPath := filepath.Join(c.config.WorkDir, c.config.OutputFile)

	if err := c.writeInput(inputPath, g); err != nil {
		return nil, err
	}
	// a stale result from the previous subject must never be read back
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to clear previous counter output")
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, c.argv[1:]...), strconv.Itoa(size))
	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	cmd.Dir = c.config.WorkDir

	start := time.Now()
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Mark(
			errors.Wrapf(err, "counter command failed: %s", tail(string(output), 512)),
			ErrCollaboratorFailure)
	}

	file, err := os.Open(outputPath)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "counter produced no output"), ErrCollaboratorFailure)
	}
	defer file.Close()

	census, err := ParseCensus(file)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("nodes", g.NumNodes).
		Int("edges", g.NumEdges()).
		Int("motif_size", size).
		Int64("subgraphs", census.Total).
		Int("motifs", len(census.Counts)).
		Dur("duration", time.Since(start)).
		Msg("Motif census complete")

	return census, nil
}

func (c *ExecCounter) writeInput(path string, g *graph.Digraph) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create counter input directory")
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create counter input")
	}
	if err := g.WriteEdgeList(file); err != nil {
		file.Close()
		return errors.Wrap(err, "failed to write counter input")
	}
	return file.Close()
}

// ParseCensus reads "total" on the first line followed by "id count" rows.
// Numbers may be written in float notation but must be integral.
func ParseCensus(r io.Reader) (*Census, error) {
	scanner := bufio.NewScanner(r)
	census := &Census{Counts: make(map[ID]int64)}
	haveTotal := false
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !haveTotal {
			total, err := parseIntegral(line)
			if err != nil {
				return nil, errors.Mark(errors.Wrapf(err, "invalid subgraph total on line %d", lineNum), ErrCollaboratorFailure)
			}
			census.Total = total
			haveTotal = true
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, errors.Mark(errors.Newf("line %d: expected \"id count\", got %q", lineNum, line), ErrCollaboratorFailure)
		}
		id, err := parseIntegral(fields[0])
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "line %d: invalid motif id", lineNum), ErrCollaboratorFailure)
		}
		count, err := parseIntegral(fields[1])
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "line %d: invalid count", lineNum), ErrCollaboratorFailure)
		}
		census.Counts[ID(id)] += count
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to read counter output"), ErrCollaboratorFailure)
	}
	if !haveTotal {
		return nil, errors.Mark(errors.New("counter output is empty"), ErrCollaboratorFailure)
	}
	if err := census.Validate(); err != nil {
		return nil, err
	}
	return census, nil
}

func parseIntegral(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.Newf("not an integer: %s", s)
	}
	return int64(f), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
