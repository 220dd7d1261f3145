package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a status line on uiOut while a slow step runs. It stops
// when stop is called or when the context it was started with ends.
type spinner struct {
	msg    string
	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}

	mu   sync.Mutex
	once sync.Once
}

func startSpinner(ctx context.Context, msg string) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{
		msg:    msg,
		ctx:    ctx,
		cancel: cancel,
		exited: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *spinner) loop() {
	defer close(s.exited)
	t := time.NewTicker(spinnerInterval)
	defer t.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-t.C:
			s.mu.Lock()
			fmt.Fprintf(uiOut, "\r%s %s", styleAccent.Render(spinnerFrames[i%len(spinnerFrames)]), styleFaint.Render(s.msg))
			s.mu.Unlock()
		}
	}
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(uiOut, "\r%s\r", strings.Repeat(" ", len(s.msg)+4))
}

// stop ends the animation and waits until the line is cleared. It is safe to
// call more than once.
func (s *spinner) stop() {
	s.once.Do(s.cancel)
	<-s.exited
}

// fail stops the spinner and prints msg as an error.
func (s *spinner) fail(msg string) {
	s.stop()
	printError("%s", msg)
}

// running reports whether the animation goroutine is still active.
func (s *spinner) running() bool {
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}
