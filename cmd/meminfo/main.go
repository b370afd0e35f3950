package main

import (
	"context"
	"fmt"
	"os"

	"github.com/i474232898/weather-station/internal/config"
	"github.com/i474232898/weather-station/internal/logging"
	"github.com/i474232898/weather-station/internal/meminfo"
	"github.com/rs/zerolog/log"
)

func main() {
	if _, err := logging.Setup(logging.Options{
		Config:  config.Log{Level: "info"},
		Console: logging.Stderr,
	}); err != nil {
		log.Fatal().Err(err).Msg("failed to set up logging")
	}

	rep, err := meminfo.NewReader().Read(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read memory")
	}

	fmt.Fprintf(os.Stdout, "total memory:     %s\n", meminfo.FormatBytes(rep.TotalBytes))
	fmt.Fprintf(os.Stdout, "available memory: %s\n", meminfo.FormatBytes(rep.AvailableBytes))
	fmt.Fprintf(os.Stdout, "go heap:          %s of %s reserved\n",
		meminfo.FormatBytes(rep.HeapAllocBytes), meminfo.FormatBytes(rep.HeapSysBytes))
	fmt.Fprintf(os.Stdout, "go stacks:        %s\n", meminfo.FormatBytes(rep.StackSysBytes))

	if rep.External() {
		fmt.Fprintln(os.Stdout, "external memory:  available")
	} else {
		fmt.Fprintln(os.Stdout, "external memory:  not available")
	}
}
