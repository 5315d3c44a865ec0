package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/johnquangdev/grain-sync/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/grain-sync/internal/usecase/errors"
)

// StdinPrompter asks the resume question on a terminal
type StdinPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdinPrompter creates a prompter reading answers from in and writing questions to out
func NewStdinPrompter(in io.Reader, out io.Writer) *StdinPrompter {
	return &StdinPrompter{in: bufio.NewReader(in), out: out}
}

// ConfirmResume returns true only when the answer is "y". Input that ends before any answer
// is typed is an error, so unattended runs never discard the checkpoint.
func (p *StdinPrompter) ConfirmResume(ctx context.Context, cp *entities.Checkpoint) (bool, error) {
	fmt.Fprintf(p.out, "\nFound saved state from %s\n", cp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(p.out, "Already processed: %d recordings\n", cp.ProcessedCount)
	fmt.Fprint(p.out, "Resume from saved state? (y/n): ")

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case a := <-answers:
		if a.err != nil && a.err != io.EOF {
			return false, a.err
		}
		answer := strings.ToLower(strings.TrimSpace(a.line))
		if a.err == io.EOF && answer == "" {
			return false, usecaseErrors.ErrNoResumeAnswer
		}
		return answer == "y", nil
	}
}
