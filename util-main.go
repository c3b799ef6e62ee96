package main

import (
	"context"
	"fmt"
	"os"

	"github.com/function61/gokit/log/logex"
	"github.com/function61/gokit/os/osutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mstarongithub/tidewm/common/ipc"
	"github.com/mstarongithub/tidewm/drm"
)

// toolCommand groups the query helpers for figuring out a config without
// starting a whole compositor
func toolCommand() *cobra.Command {
	tool := &cobra.Command{
		Use:   "tool",
		Short: "Query helpers for writing a config",
	}

	tool.AddCommand(&cobra.Command{
		Use:   "outputs",
		Short: "List the connectors of every card",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			osutil.ExitIfError(printOutputs(ipc.OutputRequest{}))
		},
	})

	tool.AddCommand(&cobra.Command{
		Use:   "modes <output>",
		Short: "List the modes one output advertises",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			osutil.ExitIfError(printOutputs(ipc.OutputRequest{
				IncludeModes: true,
				TargetOutput: args[0],
			}))
		},
	})

	tool.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Stream card hotplug events until interrupted",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rootLogger := logex.StandardLogger()

			osutil.ExitIfError(watchHotplug(
				osutil.CancelOnInterruptOrTerminate(rootLogger)))
		},
	})

	return tool
}

// collectOutputs scans every card node for the requested connectors
func collectOutputs(req ipc.OutputRequest) (ipc.OutputResponse, error) {
	var resp ipc.OutputResponse
	cards, err := drm.ListCards()
	if err != nil {
		return resp, err
	}
	for _, info := range cards {
		card, err := drm.OpenCard(info.Path)
		if err != nil {
			logrus.WithError(err).WithField("path", info.Path).Warnln("Skipping card")
			continue
		}
		conns, err := card.ScanConnectors()
		_ = card.Close()
		if err != nil {
			logrus.WithError(err).WithField("path", info.Path).Warnln("Connector scan failed")
			continue
		}
		for _, conn := range conns {
			name := conn.Name()
			if req.TargetOutput != "" && name != req.TargetOutput {
				continue
			}
			out := ipc.Output{
				Name:      name,
				Device:    info.Path,
				Connected: conn.Connected,
			}
			if req.IncludeModes {
				for _, m := range conn.Modes {
					out.Modes = append(out.Modes, ipc.OutputMode{
						Width:       m.Width,
						Height:      m.Height,
						RefreshRate: m.RefreshMHz,
						Preferred:   m.Preferred,
					})
				}
			}
			resp.Outputs = append(resp.Outputs, out)
		}
	}
	resp.OutputsFound = len(resp.Outputs)
	return resp, nil
}

func printOutputs(req ipc.OutputRequest) error {
	resp, err := collectOutputs(req)
	if err != nil {
		return err
	}
	encoded, err := yaml.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(encoded)
	return err
}

func watchHotplug(ctx context.Context) error {
	monitor := drm.NewMonitor()
	if err := monitor.Start(); err != nil {
		return err
	}
	sub, err := monitor.Subscribe("tool")
	if err != nil {
		return err
	}
	fmt.Println("Watching for card events, ctrl-c to stop")
	for {
		select {
		case <-ctx.Done():
			go monitor.Stop()
			for range sub {
			}
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			fmt.Printf("%s %s (%s)\n", ev.Action.String(), ev.Path, ev.ID.String())
		}
	}
}
