package main

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/aayushdutt/packkeeper/internal/core"
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row(header))
	return t
}

func ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func packLabel(ref *core.PackRef) string {
	if ref == nil {
		return "-"
	}
	return string(ref.Platform) + ":" + ref.ProjectID
}

func versionLabel(ref *core.PackRef) string {
	switch {
	case ref == nil:
		return "-"
	case ref.VersionName != "":
		return ref.VersionName
	case ref.VersionID != "":
		return ref.VersionID
	default:
		return "?"
	}
}
