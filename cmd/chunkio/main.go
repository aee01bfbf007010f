// cmd/chunkio/main.go

package main

import (
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"chunkio/pkg/utils"
	"chunkio/pkg/version"
)

var logger = utils.GetLogger("chunkio")

func setLoggerLevel(c *cli.Context) {
	if c.Bool("trace") {
		utils.SetLogLevel(logrus.TraceLevel)
	} else if c.Bool("verbose") {
		utils.SetLogLevel(logrus.DebugLevel)
	} else if c.Bool("quiet") {
		utils.SetLogLevel(logrus.WarnLevel)
	} else {
		utils.SetLogLevel(logrus.InfoLevel)
	}
	if name := c.String("log"); name != "" {
		utils.SetOutFile(name)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug log"},
		&cli.BoolFlag{Name: "trace", Usage: "enable trace log"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only warnings and errors"},
		&cli.StringFlag{Name: "log", Usage: "path to redirect log output to"},
		&cli.BoolFlag{Name: "gops", Usage: "listen for gops (runtime introspection) requests"},
		&cli.BoolFlag{Name: "stats", Usage: "report elapsed time and CPU usage after a scan"},
	}
}

// startStats begins CPU and wall-clock accounting when --stats is set,
// returning a func that logs the deltas; a no-op otherwise.
func startStats(c *cli.Context, path string) func() {
	if !c.Bool("stats") {
		return func() {}
	}
	startClock := utils.Clock()
	startRusage := utils.GetRusage()
	return func() {
		endRusage := utils.GetRusage()
		logger.Infof("%s: elapsed %s, cpu user %.3fs sys %.3fs", path, utils.Clock()-startClock,
			endRusage.GetUtime()-startRusage.GetUtime(), endRusage.GetStime()-startRusage.GetStime())
	}
}

func main() {
	app := &cli.App{
		Name:    "chunkio",
		Usage:   "inspect and repair block-framed chunk files",
		Version: version.Version(),
		Flags:   globalFlags(),
		Before: func(c *cli.Context) error {
			if c.Bool("gops") {
				if err := agent.Listen(agent.Options{}); err != nil {
					logger.Warnf("gops agent: %s", err)
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			checkFlags(),
			catFlags(),
			recoverFlags(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
