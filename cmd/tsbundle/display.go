package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"

	"github.com/jward/tsbundle"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgCyan
	InfoStyleBG    = pterm.NewStyle(pterm.BgCyan, pterm.FgBlack)
)

// printError prints a fatal error to stderr.
func printError(err error) {
	fmt.Fprintln(os.Stderr, ErrorStyleBG.Sprint(" Error ")+" "+ErrorColorFG.Sprint(err.Error()))
}

// printDiagnostics writes one tagged line per diagnostic. Errors are red,
// informational notes cyan.
func printDiagnostics(w io.Writer, diags []tsbundle.Diagnostic) {
	for _, d := range diags {
		tag, color := InfoStyleBG.Sprint(" "+string(d.Kind)+" "), InfoColorFG
		if d.Severity == tsbundle.SeverityError {
			tag, color = ErrorStyleBG.Sprint(" "+string(d.Kind)+" "), ErrorColorFG
		}
		where := ""
		if d.Module != "" {
			where = " " + pterm.FgGray.Sprint(relPath(d.Module))
		}
		fmt.Fprintln(w, tag+" "+color.Sprint(d.Message)+where)
	}
}

// printSummary prints the status line for one bundle: green when clean,
// yellow when it carries error diagnostics.
func printSummary(w io.Writer, res *tsbundle.Result, output string) {
	errs := len(res.Errors())
	tag, color := SuccessStyleBG.Sprint(" Bundled "), SuccessColorFG
	if errs > 0 {
		tag, color = WarnStyleBG.Sprint(" Bundled "), WarnColorFG
	}
	dest := "stdout"
	if output != "" {
		dest = relPath(output)
	}
	fmt.Fprintln(w, tag+" "+color.Sprintf("%s -> %s: %d declaration(s) from %d module(s), %d error(s) in %s",
		relPath(res.Entry), dest, res.Stats.Emitted, res.Stats.Modules, errs,
		res.Stats.Duration.Round(time.Millisecond)))
}

// relPath shortens p relative to the working directory when it lies below
// it.
func relPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, filepath.FromSlash(p))
	if err != nil || filepath.IsAbs(rel) || (len(rel) >= 2 && rel[:2] == "..") {
		return p
	}
	return rel
}
