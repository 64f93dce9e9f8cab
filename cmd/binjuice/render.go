package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/binjuice/internal/audio"
	"github.com/jmylchreest/binjuice/internal/event"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

// soundRow is one configured sound as reported by check.
type soundRow struct {
	Kind event.Kind
	Path string
	Size int
	Info audio.Info
	Err  error
}

// probeSounds decodes every sound in table.
func probeSounds(table *audio.Table) []soundRow {
	var rows []soundRow
	for _, res := range table.Resources() {
		info, err := audio.Probe(res)
		rows = append(rows, soundRow{
			Kind: res.Kind,
			Path: res.Path,
			Size: res.Size(),
			Info: info,
			Err:  err,
		})
	}
	return rows
}

// renderSounds formats the check report.
func renderSounds(rows []soundRow, mask event.Mask) string {
	nameWidth := len("EVENT")
	for _, r := range rows {
		nameWidth = max(nameWidth, len(r.Kind.String()))
	}
	nameCol := lipgloss.NewStyle().Width(nameWidth + 2)
	sizeCol := lipgloss.NewStyle().Width(10)
	fmtCol := lipgloss.NewStyle().Width(22)

	var b strings.Builder
	b.WriteString(headerStyle.Render(nameCol.Render("EVENT") + sizeCol.Render("SIZE") + fmtCol.Render("FORMAT") + "PATH"))
	b.WriteString("\n")

	failed := 0
	for _, r := range rows {
		format := okStyle.Render(describeInfo(r.Info))
		if r.Err != nil {
			format = errStyle.Render("undecodable")
			failed++
		}
		b.WriteString(nameCol.Render(r.Kind.String()))
		b.WriteString(sizeCol.Render(humanize.Bytes(uint64(r.Size))))
		b.WriteString(fmtCol.Render(format))
		b.WriteString(labelStyle.Render(r.Path))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(labelStyle.Render("subscribed events: "))
	if mask.Empty() {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(mask.WireNames(), ", "))
	}
	b.WriteString("\n")

	switch {
	case len(rows) == 0:
		b.WriteString(labelStyle.Render("no sounds configured"))
	case failed > 0:
		b.WriteString(errStyle.Render(fmt.Sprintf("%d of %d sounds cannot be decoded", failed, len(rows))))
	default:
		b.WriteString(okStyle.Render(fmt.Sprintf("%d sounds ok", len(rows))))
	}
	b.WriteString("\n")
	return b.String()
}

func describeInfo(info audio.Info) string {
	return fmt.Sprintf("%s %s %s", info.Container, humanize.SIWithDigits(float64(info.SampleRate), 1, "Hz"),
		info.Length.Round(time.Millisecond))
}

// renderCatalog formats the event catalog for the events command.
func renderCatalog(kinds []event.Kind) string {
	nameWidth, wireWidth := len("EVENT"), len("CALLBACK")
	for _, k := range kinds {
		nameWidth = max(nameWidth, len(k.String()))
		wireWidth = max(wireWidth, len(k.WireName()))
	}
	nameCol := lipgloss.NewStyle().Width(nameWidth + 2)
	wireCol := lipgloss.NewStyle().Width(wireWidth + 2)

	var b strings.Builder
	b.WriteString(headerStyle.Render(nameCol.Render("EVENT") + wireCol.Render("CALLBACK") + "ARGUMENTS"))
	b.WriteString("\n")

	for _, k := range kinds {
		wire := k.WireName()
		if !k.Subscribable() {
			wire = labelStyle.Render("(lifecycle)")
		}

		params := make([]string, len(k.Params()))
		for i, p := range k.Params() {
			params[i] = p.String()
		}

		b.WriteString(nameCol.Render(k.String()))
		b.WriteString(wireCol.Render(wire))
		b.WriteString(labelStyle.Render(strings.Join(params, " ")))
		b.WriteString("\n")
	}
	return b.String()
}
