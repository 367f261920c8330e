// SPDX-License-Identifier: Unlicense OR MIT

// Command surfinfo prints the backends, adapters and device capabilities
// surf can reach on this machine.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/go-surf/surf"
)

var (
	verbose       = flag.Bool("v", false, "enable debug logging")
	nativeDisplay = flag.Uint64("display", 0, "caller-owned native display handle, 0 for the platform default")
)

const mainUsage = `surfinfo prints the GPU adapters reachable through surf.

Usage:

	surfinfo [-v] [-display handle]

For every adapter surfinfo opens a device and reports what contexts it can
create. A failure to open one adapter is printed in its row; the exit
status reflects only whether the connection itself succeeded.
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, mainUsage)
	}
	flag.Parse()
	if err := mainErr(); err != nil {
		fmt.Fprintf(os.Stderr, "surfinfo: %v\n", err)
		os.Exit(1)
	}
}

func mainErr() error {
	if *verbose {
		surf.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	conn, err := surf.ConnectWithNativeDisplay(uintptr(*nativeDisplay))
	if err != nil {
		return err
	}
	defer conn.Close()
	adapters, err := conn.EnumerateAdapters()
	if err != nil {
		return err
	}
	fmt.Printf("connection: %s preferred, %d adapter(s)\n\n", conn.Backend(), len(adapters))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tKIND\tNAME\tMAX GL\tMAX SAMPLES\tWIDGETS")
	for _, a := range adapters {
		dev, err := conn.CreateDevice(a)
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\terror: %v\t\t\n", a.Backend(), a.Kind(), a.Name(), err)
			continue
		}
		caps := dev.Capabilities()
		maxGL := caps.MaxGLVersion.String()
		if caps.Software {
			maxGL = "none (CPU)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\n",
			a.Backend(), a.Kind(), a.Name(), maxGL, caps.MaxSamples, caps.WindowSurfaces)
		if err := dev.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "surfinfo: destroying %s device: %v\n", a.Name(), err)
		}
	}
	return w.Flush()
}
