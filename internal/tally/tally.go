package tally

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"tallyreport/internal/domain"
)

// Outcome is what one tally run hands back: the results document and one
// log entry per question.
type Outcome struct {
	Results *domain.ResultsDocument
	Logs    []json.RawMessage
}

type Tallier interface {
	Tally(ctx context.Context, extractDir string, questions []json.RawMessage, ignoreInvalidVotes bool) (Outcome, error)
}

// ExecTallier runs an external tally program. The program receives the
// question list as a JSON array on stdin and the extraction directory as
// its last argument, and prints {"results": ..., "logs": [...]} on stdout.
type ExecTallier struct {
	Command string
	Args    []string
	Env     []string
	Timeout time.Duration
}

const ignoreInvalidVotesFlag = "--ignore-invalid-votes"

// CommandError is returned when the tally program fails to run or exits
// non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("tally command %s failed", e.Command)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + lastLine(stderr)
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

func (t ExecTallier) Tally(ctx context.Context, extractDir string, questions []json.RawMessage, ignoreInvalidVotes bool) (Outcome, error) {
	if t.Command == "" {
		return Outcome{}, errors.New("tally command is not configured")
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	if questions == nil {
		questions = []json.RawMessage{}
	}
	input, err := json.Marshal(questions)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding questions: %w", err)
	}

	args := append([]string{}, t.Args...)
	if ignoreInvalidVotes {
		args = append(args, ignoreInvalidVotesFlag)
	}
	args = append(args, extractDir)

	cmd := exec.CommandContext(ctx, t.Command, args...)
	if len(t.Env) > 0 {
		cmd.Env = append(os.Environ(), t.Env...)
	}
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	log.Printf("tally exec command=%s dir=%s questions=%d elapsed=%s", t.Command, extractDir, len(questions), time.Since(start).Round(time.Millisecond))
	if runErr != nil {
		cmdErr := &CommandError{Command: t.Command, Stderr: stderr.String(), Err: runErr}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			cmdErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			cmdErr.Err = ctxErr
		}
		return Outcome{}, cmdErr
	}

	return ParseOutput(stdout.Bytes())
}

// ParseOutput decodes the tally program's stdout.
func ParseOutput(data []byte) (Outcome, error) {
	var raw struct {
		Results json.RawMessage   `json:"results"`
		Logs    []json.RawMessage `json:"logs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Outcome{}, &domain.DecodeError{Path: "tally output", Err: err}
	}
	if len(raw.Results) == 0 {
		return Outcome{}, &domain.SchemaError{Question: -1, Field: "results", Reason: "tally output has no results"}
	}
	doc, err := domain.DecodeResults(raw.Results)
	if err != nil {
		return Outcome{}, fmt.Errorf("tally output: %w", err)
	}
	return Outcome{Results: doc, Logs: raw.Logs}, nil
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
