package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ayusman/formcoach/internal/session"
)

// setupPrompt confirms the setup checklist from a terminal when neither the
// tray nor the HTTP API is available to do it.
type setupPrompt struct {
	in     io.Reader
	out    io.Writer
	check  func(id string) error
	logger *slog.Logger

	once sync.Once
	done chan struct{}
}

func newSetupPrompt(in io.Reader, out io.Writer, check func(id string) error, logger *slog.Logger) *setupPrompt {
	return &setupPrompt{in: in, out: out, check: check, logger: logger, done: make(chan struct{})}
}

// observe is a state observer. The first time the session waits on items
// only the user can confirm, it lists them and waits for Enter.
func (p *setupPrompt) observe(s session.State) {
	if s.Phase != session.PhaseSettingUp {
		return
	}
	pending := s.PendingConfirmations()
	if len(pending) == 0 {
		return
	}

	p.once.Do(func() {
		fmt.Fprintln(p.out, "Before you start:")
		for _, item := range pending {
			fmt.Fprintf(p.out, "  [ ] %s\n", item.Label)
		}
		fmt.Fprintln(p.out, "Press Enter when ready.")
		// Observers run on the session loop, which CheckItem waits on.
		go p.confirm(pending)
	})
}

func (p *setupPrompt) confirm(items []session.ChecklistItem) {
	defer close(p.done)

	// End of input also confirms, so piped runs do not wait forever.
	if _, err := bufio.NewReader(p.in).ReadString('\n'); err != nil && err != io.EOF {
		p.logger.Warn("read setup confirmation", "error", err)
	}
	for _, item := range items {
		if err := p.check(item.ID); err != nil {
			p.logger.Warn("confirm setup item", "item", item.ID, "error", err)
		}
	}
}
