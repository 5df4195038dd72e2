package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bsundman/nodle/pkg/lib/render"
)

func printSummary(w io.Writer, reqs []render.Request, outcomes []*render.Outcome) {
	rows := make([][3]string, len(outcomes))
	outW, stateW, detailW := len("OUTPUT"), len("STATE"), len("DETAIL")
	for i, o := range outcomes {
		state, detail := "ok", fmt.Sprintf("%d bytes in %s", o.OutputSize, o.Duration.Round(time.Millisecond))
		if !o.Success {
			state = "failed"
			detail = o.Stage.String()
			if o.Err != nil {
				detail += ": " + firstLine(o.Err.Error())
			}
		}
		rows[i] = [3]string{reqs[i].OutputPath, state, detail}
		outW = maxInt(outW, len(rows[i][0]))
		stateW = maxInt(stateW, len(state))
		detailW = maxInt(detailW, len(detail))
	}

	sep := fmt.Sprintf("+-%s-+-%s-+-%s-+\n", strings.Repeat("-", outW), strings.Repeat("-", stateW), strings.Repeat("-", detailW))
	fmt.Fprint(w, sep)
	fmt.Fprintf(w, "| %s | %s | %s |\n", pad("OUTPUT", outW), pad("STATE", stateW), pad("DETAIL", detailW))
	fmt.Fprint(w, sep)
	for _, r := range rows {
		fmt.Fprintf(w, "| %s | %s | %s |\n", pad(r[0], outW), pad(r[1], stateW), pad(r[2], detailW))
	}
	fmt.Fprint(w, sep)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
