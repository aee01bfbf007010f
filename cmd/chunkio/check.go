// cmd/chunkio/check.go

package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"chunkio/pkg/chunk"
	"chunkio/pkg/ioreader"
	"chunkio/pkg/utils"
)

func checkFlags() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "walk a chunk file and report format errors",
		ArgsUsage: "FILE",
		Action:    check,
	}
}

func check(c *cli.Context) error {
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

	if !cr.CheckFileFormat() {
		return reportUnhealthy(cr, "CheckFileFormat")
	}

	var size uint64
	cr.Size(&size)
	progress, bar := utils.NewDynProgressBar(fmt.Sprintf("checking %s", path), c.Bool("quiet"))
	if size > 0 {
		bar.SetTotal(int64(size), false)
	}

	var chunks, records uint64
	var payload chunk.Chunk
	for cr.ReadChunk(&payload) {
		chunks++
		records += payload.Header.NumRecords
		bar.SetCurrent(int64(cr.Pos()))
	}
	bar.SetTotal(int64(size), true)
	progress.Wait()

	if !cr.Healthy() {
		return reportUnhealthy(cr, "ReadChunk")
	}
	// A source truncated mid-chunk ends the loop healthy; Close reports it.
	if !cr.Close() {
		return reportUnhealthy(cr, "Close")
	}
	logger.Infof("%s: %d chunks, %d records, clean EOF at %d", path, chunks, records, cr.Pos())
	return nil
}

func reportUnhealthy(cr *chunk.ChunkReader, op string) error {
	st := cr.LastStatus()
	if st == nil {
		return fmt.Errorf("%s: reader unhealthy with no status", op)
	}
	logger.Errorf("%s failed: %s", op, st)
	return fmt.Errorf("%s: %s (run `chunkio recover` to resynchronize)", op, st)
}
