// cmd/chunkio/recover.go

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"chunkio/pkg/chunk"
	"chunkio/pkg/ioreader"
)

func recoverFlags() *cli.Command {
	return &cli.Command{
		Name:      "recover",
		Usage:     "scan a corrupted chunk file, skipping unreadable regions",
		ArgsUsage: "FILE",
		Action:    recoverChunks,
	}
}

func recoverChunks(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Args().Len() < 1 {
		return fmt.Errorf("FILE is required")
	}
	path := c.Args().Get(0)

	r, err := ioreader.OpenFdReader(path, 0, ioreader.FdOptions{BufferSize: ioreader.DefaultBufferSize})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	cr := chunk.NewChunkReader(r, true, chunk.Options{})
	defer cr.Close()
	defer startStats(c, path)()

	var chunks, records uint64
	var skippedBytes uint64
	var ck chunk.Chunk
	var region chunk.SkippedRegion
	for {
		if cr.ReadChunk(&ck) {
			chunks++
			records += ck.Header.NumRecords
			continue
		}
		if cr.Healthy() {
			break
		}
		if !cr.Recover(&region) {
			st := cr.LastStatus()
			return fmt.Errorf("unrecoverable at %d: %s", cr.Pos(), st)
		}
		skippedBytes += region.Length()
		logger.Warnf("skipped [%d, %d) (%d bytes) resynchronizing after corruption",
			region.Begin, region.End, region.Length())
	}
	logger.Infof("%s: %d chunks, %d records recovered, %d bytes skipped", path, chunks, records, skippedBytes)
	return nil
}
