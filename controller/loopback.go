package controller

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calvinmclean/dualstep/commands"
	"github.com/calvinmclean/dualstep/motion"
	"github.com/calvinmclean/dualstep/sim"
)

// loopback is a link to a simulated board running the same command loop as the firmware
type loopback struct {
	in     *io.PipeWriter
	out    *io.PipeReader
	cancel context.CancelFunc
	done   chan struct{}
}

func newLoopback(cfg motion.Config, log logrus.FieldLogger) (*loopback, error) {
	c, err := sim.NewBoard(sim.DefaultResolution).NewController(cfg, motion.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("error creating simulated board: %w", err)
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	l := &loopback{in: inW, out: outR, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(l.done)
		err := commands.NewSession(c, log).Run(ctx, sim.NewByteReader(inR), outW, func() {
			time.Sleep(time.Millisecond)
		})
		_ = outW.CloseWithError(err)
	}()

	return l, nil
}

func (l *loopback) Read(p []byte) (int, error) {
	return l.out.Read(p)
}

func (l *loopback) Write(p []byte) (int, error) {
	return l.in.Write(p)
}

func (l *loopback) Close() error {
	l.cancel()
	_ = l.in.Close()
	_ = l.out.Close()
	<-l.done
	return nil
}
