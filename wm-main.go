package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/function61/gokit/sync/taskrunner"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/mstarongithub/tidewm/config"
)

// runCompositor wires config, server and task supervision together and
// blocks until the compositor stops
func runCompositor(ctx context.Context, logger *log.Logger) error {
	conf := config.Load()
	logrus.WithFields(logrus.Fields{
		"workspaces": conf.Workspaces,
		"outputs":    len(conf.Outputs),
	}).Infoln("Config loaded")

	server := NewServer(conf, kmsBackend{})

	tasks := taskrunner.New(ctx, logger)
	tasks.Start("loop", server.Run)
	tasks.Start("hotplug", server.RunHotplug)
	tasks.Start("session-signals", func(ctx context.Context) error {
		return watchSessionSignals(ctx, server)
	})

	switch conf.StartType {
	case config.START_REPL:
		go replRunner(server)
	case config.START_SINGLE_COMMAND:
		if conf.StartCommand != nil {
			server.post(execIntent{command: *conf.StartCommand})
		} else {
			logrus.Warnln("start_type wants a single command but start_command is not set")
		}
	case config.START_NONE:
	}

	return tasks.Wait()
}

// watchSessionSignals maps SIGUSR1/SIGUSR2 onto session pause and resume,
// the usual convention when a session manager parks the compositor during
// a vt switch
func watchSessionSignals(ctx context.Context, server *Server) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, unix.SIGUSR1, unix.SIGUSR2)
	defer signal.Stop(signals)
	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-signals:
			if sig == unix.SIGUSR1 {
				server.PauseSession()
			} else {
				server.ResumeSession()
			}
		}
	}
}
