package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// errorsCmd implements the resumable failure ledger named in spec §6 but
// left unspecified by the distilled spec (§12 supplement 1): it either
// records the failed (ok:false) lines of an upstream run's NDJSON output
// into a local flatfs-backed store, or replays everything previously
// recorded back out as NDJSON, clearing the ledger as it goes.
var errorsCmd = &cli.Command{
	Name:  "errors",
	Usage: "record failed NDJSON results from stdin, or replay previously recorded failures",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "data-path",
			Value:    "./migrate-errors",
			Usage:    "on-disk directory for the failure ledger",
			Required: false,
		},
		&cli.BoolFlag{
			Name:  "replay",
			Usage: "replay and clear recorded failures instead of recording new ones",
		},
	},
	Action: func(cCtx *cli.Context) error {
		ledger, err := openFailureLedger(cCtx.String("data-path"))
		if err != nil {
			return err
		}

		if cCtx.Bool("replay") {
			failures, err := ledger.Replay(cCtx.Context)
			if err != nil {
				return err
			}
			for _, r := range failures {
				if err := writeResult(cCtx.App.Writer, r); err != nil {
					return err
				}
			}
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var recorded int
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var r result
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("parsing NDJSON line: %w", err)
			}
			if r.OK {
				continue
			}
			if err := ledger.Record(cCtx.Context, r); err != nil {
				return err
			}
			recorded++
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		log.Infof("recorded %d failures", recorded)
		return nil
	},
}
