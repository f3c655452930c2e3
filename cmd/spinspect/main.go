// Command spinspect validates a compressed partition image and prints the
// memory layout and boot descriptor the loader would hand it, without
// entering anything.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/klauspost/compress/zlib"
	"github.com/urfave/cli/v2"

	"github.com/teekernel/tee-partition-manager/interfaces"
	"github.com/teekernel/tee-partition-manager/partition"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:     "image",
		Usage:    "path to the compressed partition image",
		Required: true,
	},
	&cli.Uint64Flag{
		Name:  "base",
		Value: 0x40000000,
		Usage: "assumed base address of the combined region",
	},
	&cli.Uint64Flag{
		Name:  "stack-pages",
		Value: 4,
		Usage: "stack size in pages",
	},
	&cli.Uint64Flag{
		Name:  "heap-pages",
		Value: 398,
		Usage: "heap size in pages",
	},
	&cli.BoolFlag{
		Name:  "json",
		Value: false,
		Usage: "print the layout as JSON",
	},
}

func main() {
	app := &cli.App{
		Name:   "spinspect",
		Usage:  "Inspect a compressed partition image and its computed layout",
		Flags:  flags,
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(cCtx *cli.Context) error {
	image, err := os.ReadFile(cCtx.String("image"))
	if err != nil {
		return err
	}

	zr, err := zlib.NewReader(bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("image does not inflate: %w", err)
	}
	inflated, err := io.ReadAll(zr)
	zr.Close()
	if err != nil {
		return fmt.Errorf("image does not inflate: %w", err)
	}

	cfg := partition.DefaultConfig(image, uint64(len(inflated)))
	cfg.StackSize = cCtx.Uint64("stack-pages") * interfaces.PageSize
	cfg.HeapSize = cCtx.Uint64("heap-pages") * interfaces.PageSize

	l := partition.ComputeLayout(&cfg, interfaces.Addr(cCtx.Uint64("base")))

	if cCtx.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"compressed_size":   len(image),
			"uncompressed_size": len(inflated),
			"total_size":        l.TotalSize,
			"image_base":        l.ImageBase,
			"heap_base":         l.HeapBase,
			"stack_base":        l.StackBase,
			"shared_base":       l.SharedBase,
		})
	}

	fmt.Printf("image:      %d bytes compressed, %d bytes inflated\n", len(image), len(inflated))
	fmt.Printf("total:      %#x bytes\n", l.TotalSize)
	fmt.Printf("image base: %#x (%#x bytes)\n", uint64(l.ImageBase), l.ImageSize)
	fmt.Printf("heap base:  %#x (%#x bytes)\n", uint64(l.HeapBase), cfg.HeapSize)
	fmt.Printf("stack base: %#x (%#x bytes)\n", uint64(l.StackBase), cfg.StackSize)
	fmt.Printf("shared:     %#x (%#x bytes)\n", uint64(l.SharedBase), cfg.SharedBufSize)

	return nil
}
