package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ocr-provenance/workers/internal/gpu"
	"github.com/ocr-provenance/workers/internal/worker"
)

var gpuCmd = &cobra.Command{
	Use:   "gpu",
	Short: "GPU diagnostics and maintenance",
}

var gpuVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report accelerator availability and capabilities",
	Long: `verify probes for a CUDA accelerator and reports its name, memory
and driver metadata. A machine without CUDA is not an error: the report
carries available=false so callers can branch on it.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		info := gpu.New(rt.prober, rt.logger).Verify()
		return worker.Emit(os.Stdout, info)
	},
}

var gpuVRAMCmd = &cobra.Command{
	Use:   "vram",
	Short: "Report current device memory usage",
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		usage, err := gpu.New(rt.prober, rt.logger).VRAM()
		if err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		return worker.Emit(os.Stdout, usage)
	},
}

var gpuClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Release cached device memory",
	RunE: func(_ *cobra.Command, _ []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()
		if err := gpu.New(rt.prober, rt.logger).ClearMemory(); err != nil {
			worker.Fail(os.Stdout, err)
			return err
		}
		return worker.Emit(os.Stdout, map[string]any{"success": true, "cleared": true})
	},
}

func init() {
	gpuCmd.AddCommand(gpuVerifyCmd, gpuVRAMCmd, gpuClearCmd)
	rootCmd.AddCommand(gpuCmd)
}
