package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// linePrompter asks the operator to finish a step in the browser and waits
// for Enter. A single reader goroutine owns in for the prompter's lifetime.
type linePrompter struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan error
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: in, out: out, lines: make(chan error)}
}

// read feeds one value per line into lines and closes it after the first
// read error.
func (p *linePrompter) read() {
	r := bufio.NewReader(p.in)
	for {
		_, err := r.ReadString('\n')
		p.lines <- err
		if err != nil {
			close(p.lines)
			return
		}
	}
}

func (p *linePrompter) Await(ctx context.Context, msg string) error {
	p.once.Do(func() { go p.read() })
	fmt.Fprintf(p.out, "%s\nPress Enter to continue... ", msg)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-p.lines:
		if !ok {
			err = io.EOF
		}
		if err != nil {
			return fmt.Errorf("waiting for operator: %w", err)
		}
		return nil
	}
}
