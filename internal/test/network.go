package test

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrLinkDown is returned by Transmit when the card side is not being served.
var ErrLinkDown = errors.New("test: link down")

type exchange struct {
	command  []byte
	response chan []byte
}

// Network is an in-memory half-duplex link between a host and a Card.
// Frames only move while Serve runs; each Transmit blocks until the card answered.
type Network struct {
	card     *Card
	requests chan exchange
	done     chan struct{}

	open   bool
	closed bool
	mtx    sync.Mutex
}

// NewNetwork returns a closed link to card.
func NewNetwork(card *Card) *Network {
	return &Network{
		card:     card,
		requests: make(chan exchange),
		done:     make(chan struct{}),
	}
}

// Serve answers commands until ctx is done or the link is closed.
func (n *Network) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = n.Close()
			return ctx.Err()
		case <-n.done:
			return nil
		case ex := <-n.requests:
			ex.response <- n.card.Transmit(ex.command)
		}
	}
}

func (n *Network) Open() error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.closed {
		return ErrLinkDown
	}
	n.open = true
	return nil
}

func (n *Network) IsOpen() bool {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	return n.open
}

func (n *Network) Transmit(command []byte) ([]byte, error) {
	if !n.IsOpen() {
		return nil, ErrLinkDown
	}
	ex := exchange{command: append([]byte(nil), command...), response: make(chan []byte, 1)}
	select {
	case n.requests <- ex:
	case <-n.done:
		return nil, ErrLinkDown
	}
	return <-ex.response, nil
}

// Close stops Serve. The link cannot be reopened.
func (n *Network) Close() error {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.open = false
	if !n.closed {
		n.closed = true
		close(n.done)
	}
	return nil
}

// Run serves card on a fresh Network while host runs, and returns the first
// error of either side. The link is closed once host returns.
func Run(ctx context.Context, card *Card, host func(*Network) error) error {
	n := NewNetwork(card)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.Serve(ctx)
	})
	g.Go(func() error {
		defer n.Close()
		return host(n)
	})
	return g.Wait()
}
