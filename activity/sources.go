package activity

import (
	"bufio"
	"context"
	"io"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
)

var _ Source = (*Dispatcher)(nil)

// Dispatcher is an in-process Source. Hosts call Emit for each interaction.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[Kind][]func(Event)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[Kind][]func(Event))}
}

func (d *Dispatcher) AddListener(kind Kind, listener func(Event)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[kind] = append(d.listeners[kind], listener)
	return nil
}

// Emit delivers e to the listeners registered for its kind.
func (d *Dispatcher) Emit(e Event) {
	d.mu.RLock()
	listeners := slices.Clone(d.listeners[e.Kind])
	d.mu.RUnlock()

	for _, l := range listeners {
		l(e)
	}
}

var _ Source = (*LineSource)(nil)

// LineSource turns each line read from a terminal into a keypress event.
type LineSource struct {
	r         io.Reader
	mu        sync.Mutex
	listeners []func(Event)
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r}
}

func (s *LineSource) AddListener(kind Kind, listener func(Event)) error {
	if kind != KindKeyPress {
		return ErrUnsupportedKind
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
	return nil
}

// Run reads until EOF or ctx is done, calling onLine with each line after
// the keypress listeners.
func (s *LineSource) Run(ctx context.Context, onLine func(string)) error {
	lines := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(s.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errCh <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case line := <-lines:
			s.mu.Lock()
			listeners := slices.Clone(s.listeners)
			s.mu.Unlock()
			for _, l := range listeners {
				l(Event{Kind: KindKeyPress})
			}
			if onLine != nil {
				onLine(line)
			}
			log.Debug().Msg("terminal activity")
		}
	}
}
