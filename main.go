// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"os"

	"github.com/function61/gokit/app/dynversion"
	"github.com/function61/gokit/log/logex"
	"github.com/function61/gokit/os/osutil"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var debug bool

func main() {
	app := &cobra.Command{
		Use:     os.Args[0],
		Short:   "tidewm, a tiling compositor for the tty",
		Version: dynversion.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	app.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")

	app.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the compositor",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			rootLogger := logex.StandardLogger()

			osutil.ExitIfError(runCompositor(
				osutil.CancelOnInterruptOrTerminate(rootLogger),
				rootLogger))
		},
	})

	app.AddCommand(toolCommand())

	osutil.ExitIfError(app.Execute())
}
