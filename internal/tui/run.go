package tui

import (
	"context"
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"vidlore/internal/pipeline"
)

// Work is the pipeline call the program waits on.
type Work func(ctx context.Context) (string, error)

// Run shows progress for work until it finishes or the user quits. messages
// must be the channel the pipeline emits on; the caller closes it after Run
// returns. Quitting cancels the context passed to work; Run still waits for
// work to return.
func Run(ctx context.Context, title string, messages <-chan pipeline.Message, out io.Writer, work Work) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	program := tea.NewProgram(New(title, messages, cancel), opts...)

	type result struct {
		output string
		err    error
	}
	done := make(chan result, 1)
	go func() {
		output, err := work(ctx)
		done <- result{output: output, err: err}
		program.Send(FinishedMsg{Output: output, Err: err})
	}()

	_, runErr := program.Run()
	cancel()
	res := <-done
	if res.err != nil {
		return res.output, res.err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return res.output, runErr
	}
	return res.output, nil
}
